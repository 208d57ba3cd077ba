package format

import (
	"time"

	"github.com/kidsweather/kidsweather/internal/weather"
)

// DisplayCurrent holds rounded current conditions for templates and the CLI.
type DisplayCurrent struct {
	Temp       *int   `json:"temp"`
	FeelsLike  *int   `json:"feels_like"`
	Conditions string `json:"conditions"`
	Icon       string `json:"icon"`
}

// DisplayForecast holds today's temperature range.
type DisplayForecast struct {
	HighTemp *int `json:"high_temp"`
	LowTemp  *int `json:"low_temp"`
}

// DisplayAlert is a short alert summary with pre-formatted times.
type DisplayAlert struct {
	Event string `json:"event"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// DailyForecast is one day of raw forecast data for icon/temperature rows.
type DailyForecast struct {
	Day        string  `json:"day"`
	High       *int    `json:"high"`
	Low        *int    `json:"low"`
	Conditions string  `json:"conditions"`
	PrecipProb float64 `json:"precip_prob"` // percentage 0..100
	Icon       string  `json:"icon"`
}

// Display is the projection of a snapshot needed by display layers.
type Display struct {
	Current          DisplayCurrent  `json:"current"`
	Forecast         DisplayForecast `json:"forecast"`
	Alerts           []DisplayAlert  `json:"alerts"`
	DailyForecastRaw []DailyForecast `json:"daily_forecast_raw"`
	Location         string          `json:"location"`
}

// ExtractDisplay derives the display projection from a snapshot. Today's
// range comes from daily[0] when present, else the current temperature stands
// in for both ends.
func ExtractDisplay(snap *weather.Snapshot) Display {
	current := snap.Current

	alerts := make([]DisplayAlert, 0, len(snap.Alerts))
	for _, alert := range snap.Alerts {
		event := alert.Event
		if event == "" {
			event = "Weather Alert"
		}
		alerts = append(alerts, DisplayAlert{
			Event: event,
			Start: alertTime(alert.Start, snap.TimezoneOffset),
			End:   alertTime(alert.End, snap.TimezoneOffset),
		})
	}

	days := make([]DailyForecast, 0, 5)
	for _, day := range snap.Daily {
		if len(days) == 5 {
			break
		}
		days = append(days, DailyForecast{
			Day:        dayName(day.Dt, snap.TimezoneOffset),
			High:       safeRound(day.Temp.Max),
			Low:        safeRound(day.Temp.Min),
			Conditions: conditionDescription(day.Weather),
			PrecipProb: day.Pop * 100,
			Icon:       conditionIcon(day.Weather),
		})
	}

	high := current.Temp
	low := current.Temp
	if len(snap.Daily) > 0 {
		high = snap.Daily[0].Temp.Max
		low = snap.Daily[0].Temp.Min
	}

	return Display{
		Current: DisplayCurrent{
			Temp:       safeRound(current.Temp),
			FeelsLike:  safeRound(current.FeelsLike),
			Conditions: displayCondition(current.Weather),
			Icon:       conditionIcon(current.Weather),
		},
		Forecast: DisplayForecast{
			HighTemp: safeRound(high),
			LowTemp:  safeRound(low),
		},
		Alerts:           alerts,
		DailyForecastRaw: days,
	}
}

// alertTime renders an alert boundary: same-day alerts show the hour only,
// multi-day alerts add the weekday abbreviation.
func alertTime(ts int64, tzOffsetSeconds int) string {
	if ts == 0 {
		return "N/A"
	}
	offset := time.Duration(tzOffsetSeconds) * time.Second
	local := time.Unix(ts, 0).UTC().Add(offset)
	today := timeNow().UTC().Add(offset)
	if local.Year() == today.Year() && local.YearDay() == today.YearDay() {
		return local.Format("3PM")
	}
	return local.Format("3PM Mon")
}

func displayCondition(conditions []weather.Condition) string {
	if len(conditions) == 0 {
		return ""
	}
	return conditions[0].Description
}

func conditionIcon(conditions []weather.Condition) string {
	if len(conditions) == 0 {
		return ""
	}
	return conditions[0].Icon
}

func safeRound(v *float64) *int {
	if v == nil {
		return nil
	}
	r := roundInt(*v)
	return &r
}
