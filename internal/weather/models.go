package weather

import "encoding/json"

// Snapshot is one fetched One Call payload for a location at a point in time.
// Optional fields are pointers so that absent data degrades to "N/A" in the
// formatter instead of reading as zero.
type Snapshot struct {
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Timezone       string  `json:"timezone"`
	TimezoneOffset int     `json:"timezone_offset"` // seconds east of UTC
	Current        Current `json:"current"`
	Hourly         []Hour  `json:"hourly"`
	Daily          []Day   `json:"daily"`
	Alerts         []Alert `json:"alerts"`

	// Raw holds the provider response verbatim for logging and replay.
	// It is populated by the client and never re-encoded.
	Raw json.RawMessage `json:"-"`
}

// Condition is one entry of a weather description array.
type Condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Precipitation carries the accumulated amount over the last hour.
type Precipitation struct {
	OneHour float64 `json:"1h"` // mm
}

// Current describes present conditions.
type Current struct {
	Dt        int64          `json:"dt"`
	Sunrise   int64          `json:"sunrise"`
	Sunset    int64          `json:"sunset"`
	Temp      *float64       `json:"temp"`
	FeelsLike *float64       `json:"feels_like"`
	UVI       *float64       `json:"uvi"`
	WindSpeed *float64       `json:"wind_speed"`
	WindGust  *float64       `json:"wind_gust"`
	Weather   []Condition    `json:"weather"`
	Rain      *Precipitation `json:"rain"`
	Snow      *Precipitation `json:"snow"`
}

// Hour is one hourly forecast entry.
type Hour struct {
	Dt      int64          `json:"dt"`
	Temp    *float64       `json:"temp"`
	UVI     *float64       `json:"uvi"`
	Pop     float64        `json:"pop"` // probability of precipitation, 0..1
	Weather []Condition    `json:"weather"`
	Rain    *Precipitation `json:"rain"`
	Snow    *Precipitation `json:"snow"`
}

// DayTemp holds the daily temperature range.
type DayTemp struct {
	Max *float64 `json:"max"`
	Min *float64 `json:"min"`
}

// Day is one daily forecast entry. Rain and Snow are whole-day totals in mm.
type Day struct {
	Dt        int64       `json:"dt"`
	Summary   string      `json:"summary"`
	Temp      DayTemp     `json:"temp"`
	Pop       float64     `json:"pop"`
	UVI       *float64    `json:"uvi"`
	WindSpeed *float64    `json:"wind_speed"`
	WindGust  *float64    `json:"wind_gust"`
	Rain      *float64    `json:"rain"`
	Snow      *float64    `json:"snow"`
	Weather   []Condition `json:"weather"`
}

// Alert is a government weather alert attached to a snapshot.
type Alert struct {
	SenderName  string `json:"sender_name"`
	Event       string `json:"event"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	Description string `json:"description"`
}

// YesterdaySummary is a coarse view of yesterday built from a single
// time-machine sample. The one data point stands in for the whole day, so
// high and low equal the average. This is a documented approximation.
type YesterdaySummary struct {
	Date          string   `json:"date"`
	AvgTemp       *float64 `json:"avg_temp"`
	HighTemp      *float64 `json:"high_temp"`
	LowTemp       *float64 `json:"low_temp"`
	AvgFeelsLike  *float64 `json:"avg_feels_like"`
	MainCondition string   `json:"main_condition"`
}
