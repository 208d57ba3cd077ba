// Package format turns weather snapshots into deterministic natural-language
// context for the language model and into display projections for the web and
// CLI front-ends. Everything here is a pure function of its inputs plus the
// wall clock.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kidsweather/kidsweather/internal/weather"
)

// overridable in tests
var timeNow = time.Now

// ForLLM renders the snapshot (and optional yesterday summary) as the text
// block sent to the LLM as user content. The current-time line is floored to
// the nearest 15-minute boundary so that requests within the same quarter
// hour produce identical context, which keeps the LLM cache key stable.
func ForLLM(snap *weather.Snapshot, yesterday *weather.YesterdaySummary) string {
	tzOffset := time.Duration(snap.TimezoneOffset) * time.Second
	var lines []string

	now := timeNow().UTC().Add(tzOffset)
	rounded := now.Truncate(15 * time.Minute)
	lines = append(lines, "Current Date and Time: "+rounded.Format("Monday, January 02, 2006 at 03:04 PM"))
	lines = append(lines, fmt.Sprintf("Weather Forecast for location near Lat: %s, Lon: %s (Timezone: %s).",
		floatOrNA(snap.Lat), floatOrNA(snap.Lon), stringOrNA(snap.Timezone)))

	if yesterday != nil {
		lines = append(lines, "\nYESTERDAY'S WEATHER ("+yesterday.Date+"):")
		lines = append(lines, fmt.Sprintf("  Average Temperature: %s (felt like %s)",
			formatTemp(yesterday.AvgTemp), formatTemp(yesterday.AvgFeelsLike)))
		lines = append(lines, fmt.Sprintf("  High: %s, Low: %s",
			formatTemp(yesterday.HighTemp), formatTemp(yesterday.LowTemp)))
		lines = append(lines, "  Main Condition: "+stringOrNA(yesterday.MainCondition))
	}

	if len(snap.Alerts) > 0 {
		lines = append(lines, "\nACTIVE WEATHER ALERTS:")
		for _, alert := range snap.Alerts {
			lines = append(lines, fmt.Sprintf("- %s from %s: %s (Effective: %s to %s)",
				stringOrNA(alert.Event), stringOrNA(alert.SenderName), stringOrNA(alert.Description),
				formatStamp(alert.Start, snap.TimezoneOffset, "2006-01-02 03:04 PM"),
				formatStamp(alert.End, snap.TimezoneOffset, "2006-01-02 03:04 PM")))
		}
	}

	current := snap.Current
	lines = append(lines, "\nTODAY'S FORECAST:")

	rightNow := fmt.Sprintf("  Right Now: %s at %s", conditionDescription(current.Weather), formatTemp(current.Temp))
	if current.Temp != nil && current.FeelsLike != nil {
		// Only worth mentioning when it feels noticeably different.
		if math.Abs(math.Round(*current.Temp)-math.Round(*current.FeelsLike)) > 5 {
			rightNow += fmt.Sprintf(" (feels like %d°F)", roundInt(*current.FeelsLike))
		}
	}
	lines = append(lines, rightNow)

	switch {
	case current.Rain != nil && current.Rain.OneHour > 0:
		lines = append(lines, fmt.Sprintf("  Current Precipitation: Currently raining (%s mm/hr).", formatFloat(current.Rain.OneHour)))
	case current.Snow != nil && current.Snow.OneHour > 0:
		lines = append(lines, fmt.Sprintf("  Current Precipitation: Currently snowing (%s mm/hr).", formatFloat(current.Snow.OneHour)))
	default:
		lines = append(lines, "  Current Precipitation: none.")
	}

	lines = append(lines, "  Current Wind: "+describeWind(current.WindSpeed, current.WindGust))
	lines = append(lines, "  Current UV Index: "+describeUVI(current.UVI))
	lines = append(lines, fmt.Sprintf("  Sunrise: %s, Sunset: %s.",
		formatStamp(current.Sunrise, snap.TimezoneOffset, "03:04 PM"),
		formatStamp(current.Sunset, snap.TimezoneOffset, "03:04 PM")))

	if len(snap.Daily) > 0 {
		today := snap.Daily[0]
		lines = append(lines, fmt.Sprintf("\n  Overall for Today (%s):", dayName(today.Dt, snap.TimezoneOffset)))
		lines = append(lines, "  Summary: "+summaryOrDefault(today.Summary))
		lines = append(lines, fmt.Sprintf("  High: %s, Low for tonight: %s.",
			formatTemp(today.Temp.Max), formatTemp(today.Temp.Min)))
		lines = append(lines, "  Precipitation: "+describeDayPrecipitation(today))
		lines = append(lines, "  Day Wind: "+describeWind(today.WindSpeed, today.WindGust))
		lines = append(lines, "  Max UV Index: "+describeUVI(today.UVI))
	}

	if len(snap.Hourly) > 0 {
		lines = append(lines, "\nNEXT 8 HOURS:")
		limit := len(snap.Hourly)
		if limit > 8 {
			limit = 8
		}
		for _, hour := range snap.Hourly[:limit] {
			lines = append(lines, hourLine(hour, snap.TimezoneOffset))
		}
	}

	lines = append(lines, "\nNEXT FEW DAYS (for daily_forecasts - use these exact day names):")
	if len(snap.Daily) > 1 {
		end := len(snap.Daily)
		if end > 5 {
			end = 5
		}
		for _, day := range snap.Daily[1:end] {
			lines = append(lines, fmt.Sprintf("\n  %s:", dayName(day.Dt, snap.TimezoneOffset)))
			lines = append(lines, "    Summary: "+summaryOrDefault(day.Summary))
			lines = append(lines, fmt.Sprintf("    High: %s, Low: %s.",
				formatTemp(day.Temp.Max), formatTemp(day.Temp.Min)))
			lines = append(lines, "    Precipitation: "+describeDayPrecipitation(day))
			lines = append(lines, "    Wind: "+describeWind(day.WindSpeed, day.WindGust))
		}
	} else {
		lines = append(lines, "  No extended forecast available.")
	}

	return strings.Join(lines, "\n")
}

func hourLine(hour weather.Hour, tzOffset int) string {
	line := fmt.Sprintf("  %s: %s at %s",
		formatStamp(hour.Dt, tzOffset, "03:04 PM"),
		conditionDescription(hour.Weather),
		formatTemp(hour.Temp))

	if hour.UVI != nil && *hour.UVI >= 6 {
		line += fmt.Sprintf(" (UV %s)", describeUVI(hour.UVI))
	}

	if hour.Pop > 0 {
		details := []string{fmt.Sprintf("%d%% chance precip", int(hour.Pop*100))}
		if hour.Rain != nil && hour.Rain.OneHour > 0 {
			details = append(details, formatFloat(hour.Rain.OneHour)+"mm rain")
		}
		if hour.Snow != nil && hour.Snow.OneHour > 0 {
			details = append(details, formatFloat(hour.Snow.OneHour)+"mm snow")
		}
		line += " (" + strings.Join(details, ", ") + ")"
	}
	return line
}

// describeWind tiers the speed (mph) and appends a gust clause only when the
// gust is both meaningfully above the sustained speed and above walking pace.
func describeWind(speed, gust *float64) string {
	if speed == nil {
		return "Wind data not available."
	}
	s := *speed
	var desc string
	switch {
	case s >= 25:
		desc = fmt.Sprintf("Very windy, around %.0f mph.", s)
	case s >= 15:
		desc = fmt.Sprintf("Windy, around %.0f mph.", s)
	case s >= 5:
		desc = fmt.Sprintf("Light winds around %.0f mph.", s)
	case s > 1:
		desc = "Mostly calm."
	default:
		desc = "No wind."
	}
	if gust != nil && *gust > s*1.5 && *gust > 5 {
		desc += fmt.Sprintf(" Gusts up to %.0f mph.", *gust)
	}
	return desc
}

func describeUVI(uvi *float64) string {
	if uvi == nil {
		return "N/A"
	}
	v := *uvi
	switch {
	case v < 4:
		return fmt.Sprintf("%.1f (Low)", v)
	case v < 6:
		return fmt.Sprintf("%.1f (Moderate)", v)
	case v < 8:
		return fmt.Sprintf("%.1f (High) - Mention sunscreen.", v)
	case v < 11:
		return fmt.Sprintf("%.1f (Very High) - You must mention sunscreen!", v)
	default:
		return fmt.Sprintf("%.1f (Extreme) - Sunscreen and a hat are a must!", v)
	}
}

// describeDayPrecipitation summarizes a daily entry's precipitation: chance,
// type (sniffed from the weather mains, falling back to reported amounts) and
// an intensity qualifier at fixed mm thresholds.
func describeDayPrecipitation(day weather.Day) string {
	if day.Pop < 0.1 {
		return "Low chance of precipitation."
	}

	parts := []string{fmt.Sprintf("%d%% chance", int(day.Pop*100))}

	var types []string
	for _, w := range day.Weather {
		main := strings.ToLower(w.Main)
		if hasAny(main, "rain", "drizzle") && !contains(types, "rain") {
			types = append(types, "rain")
		}
		if hasAny(main, "snow", "sleet") && !contains(types, "snow") {
			types = append(types, "snow")
		}
	}
	if len(types) == 0 {
		if day.Rain != nil && *day.Rain > 0 {
			types = append(types, "rain")
		}
		if day.Snow != nil && *day.Snow > 0 {
			types = append(types, "snow")
		}
	}

	if len(types) > 0 {
		parts = append(parts, "of "+strings.Join(types, "/"))
	} else {
		parts = append(parts, "of precipitation")
	}

	var intensity []string
	if contains(types, "rain") && day.Rain != nil && *day.Rain > 0 {
		intensity = append(intensity, rainIntensity(*day.Rain)+" rain")
	}
	if contains(types, "snow") && day.Snow != nil && *day.Snow > 0 {
		intensity = append(intensity, snowIntensity(*day.Snow)+" snow")
	}
	if len(intensity) > 0 {
		parts = append(parts, "("+strings.Join(intensity, ", ")+")")
	}

	return strings.Join(parts, " ") + "."
}

func rainIntensity(mm float64) string {
	switch {
	case mm < 1:
		return "trace"
	case mm < 2.5:
		return "light"
	case mm < 10:
		return "moderate"
	default:
		return "heavy"
	}
}

func snowIntensity(mm float64) string {
	switch {
	case mm < 5:
		return "trace"
	case mm < 25:
		return "light"
	case mm < 75:
		return "moderate"
	default:
		return "heavy"
	}
}

// --- shared helpers ---

func conditionDescription(conditions []weather.Condition) string {
	if len(conditions) == 0 || conditions[0].Description == "" {
		return "Not available"
	}
	return conditions[0].Description
}

func summaryOrDefault(s string) string {
	if s == "" {
		return "No summary available."
	}
	return s
}

func formatTemp(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d°F", roundInt(*v))
}

func roundInt(v float64) int {
	return int(math.Round(v))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func floatOrNA(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func stringOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// formatStamp converts a UTC unix timestamp to local time using the
// snapshot's offset. Zero timestamps render as "N/A".
func formatStamp(ts int64, tzOffsetSeconds int, layout string) string {
	if ts == 0 {
		return "N/A"
	}
	local := time.Unix(ts, 0).UTC().Add(time.Duration(tzOffsetSeconds) * time.Second)
	return local.Format(layout)
}

func dayName(ts int64, tzOffsetSeconds int) string {
	if ts == 0 {
		return "N/A"
	}
	return formatStamp(ts, tzOffsetSeconds, "Monday")
}

func hasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
