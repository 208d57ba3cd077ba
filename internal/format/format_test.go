package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidsweather/kidsweather/internal/weather"
)

func f(v float64) *float64 { return &v }

func fixtureSnapshot() *weather.Snapshot {
	return &weather.Snapshot{
		Lat:            38.9,
		Lon:            -77.0,
		Timezone:       "America/New_York",
		TimezoneOffset: -18000,
		Current: weather.Current{
			Dt:        1710000000,
			Sunrise:   1709985600,
			Sunset:    1710028800,
			Temp:      f(72.5),
			FeelsLike: f(70.1),
			UVI:       f(3.2),
			WindSpeed: f(4.0),
			Weather:   []weather.Condition{{Main: "Clear", Description: "clear sky", Icon: "01d"}},
		},
		Hourly: []weather.Hour{
			{Dt: 1710003600, Temp: f(73), Pop: 0.4, UVI: f(7.0),
				Rain:    &weather.Precipitation{OneHour: 0.5},
				Weather: []weather.Condition{{Main: "Rain", Description: "light rain", Icon: "10d"}}},
			{Dt: 1710007200, Temp: f(71),
				Weather: []weather.Condition{{Main: "Clear", Description: "clear sky", Icon: "01d"}}},
		},
		Daily: []weather.Day{
			{Dt: 1710000000, Summary: "Sunny all day", Temp: weather.DayTemp{Max: f(78), Min: f(65)},
				Pop: 0.05, UVI: f(5.5), WindSpeed: f(8),
				Weather: []weather.Condition{{Main: "Clear", Description: "clear sky", Icon: "01d"}}},
			{Dt: 1710086400, Summary: "Rain moving in", Temp: weather.DayTemp{Max: f(60), Min: f(48)},
				Pop: 0.8, Rain: f(5.2), WindSpeed: f(18),
				Weather: []weather.Condition{{Main: "Rain", Description: "moderate rain", Icon: "10d"}}},
			{Dt: 1710172800, Summary: "Clearing", Temp: weather.DayTemp{Max: f(55), Min: f(40)},
				Pop: 0.0, WindSpeed: f(12),
				Weather: []weather.Condition{{Main: "Clouds", Description: "scattered clouds", Icon: "03d"}}},
		},
	}
}

func withFixedNow(t *testing.T, now time.Time) {
	t.Helper()
	restore := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = restore })
}

func TestForLLMDeterministicWithinQuarterHour(t *testing.T) {
	snap := fixtureSnapshot()

	withFixedNow(t, time.Date(2024, 3, 9, 18, 31, 12, 0, time.UTC))
	first := ForLLM(snap, nil)

	withFixedNow(t, time.Date(2024, 3, 9, 18, 44, 59, 0, time.UTC))
	second := ForLLM(snap, nil)

	assert.Equal(t, first, second, "same quarter hour must produce identical context")

	withFixedNow(t, time.Date(2024, 3, 9, 18, 45, 0, 0, time.UTC))
	third := ForLLM(snap, nil)
	assert.NotEqual(t, first, third, "next quarter hour must change the header")
}

func TestForLLMQuarterHourFloor(t *testing.T) {
	withFixedNow(t, time.Date(2024, 3, 9, 20, 59, 59, 0, time.UTC))
	snap := fixtureSnapshot()
	snap.TimezoneOffset = 0

	out := ForLLM(snap, nil)
	assert.Contains(t, out, "at 08:45 PM", "minute must floor to the 15-minute boundary")
}

func TestForLLMSectionsWithoutOptionalData(t *testing.T) {
	withFixedNow(t, time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC))
	snap := fixtureSnapshot()

	out := ForLLM(snap, nil)
	assert.NotContains(t, out, "YESTERDAY'S WEATHER")
	assert.NotContains(t, out, "ACTIVE WEATHER ALERTS")
	assert.Contains(t, out, "TODAY'S FORECAST:")
	assert.Contains(t, out, "NEXT 8 HOURS:")
	assert.Contains(t, out, "NEXT FEW DAYS")
}

func TestForLLMYesterdaySection(t *testing.T) {
	withFixedNow(t, time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC))
	yesterday := &weather.YesterdaySummary{
		Date:          "Friday, March 08",
		AvgTemp:       f(58.3),
		HighTemp:      f(58.3),
		LowTemp:       f(58.3),
		AvgFeelsLike:  f(55.0),
		MainCondition: "Clouds",
	}

	out := ForLLM(fixtureSnapshot(), yesterday)
	assert.Contains(t, out, "YESTERDAY'S WEATHER (Friday, March 08):")
	assert.Contains(t, out, "Average Temperature: 58°F (felt like 55°F)")
	assert.Contains(t, out, "Main Condition: Clouds")
}

func TestForLLMAlertsSection(t *testing.T) {
	withFixedNow(t, time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC))
	snap := fixtureSnapshot()
	snap.Alerts = []weather.Alert{{
		Event:       "Wind Advisory",
		SenderName:  "NWS Baltimore",
		Description: "Gusty winds expected",
		Start:       1710000000,
		End:         1710086400,
	}}

	out := ForLLM(snap, nil)
	assert.Contains(t, out, "ACTIVE WEATHER ALERTS:")
	assert.Contains(t, out, "Wind Advisory from NWS Baltimore: Gusty winds expected")
}

func TestForLLMFeelsLikeOnlyWhenNoticeable(t *testing.T) {
	withFixedNow(t, time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC))

	snap := fixtureSnapshot()
	out := ForLLM(snap, nil)
	assert.NotContains(t, out, "feels like", "a 2-degree difference is not worth mentioning")

	snap.Current.FeelsLike = f(62.0)
	out = ForLLM(snap, nil)
	assert.Contains(t, out, "(feels like 62°F)")
}

func TestForLLMHourlyAnnotations(t *testing.T) {
	withFixedNow(t, time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC))
	out := ForLLM(fixtureSnapshot(), nil)

	// First hour: high UV and precipitation chance are both annotated.
	require.Contains(t, out, "light rain at 73°F (UV 7.0 (High) - Mention sunscreen.) (40% chance precip, 0.5mm rain)")
	// Second hour: no annotations.
	assert.Contains(t, out, "clear sky at 71°F\n")
}

func TestForLLMNoExtendedForecast(t *testing.T) {
	withFixedNow(t, time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC))
	snap := fixtureSnapshot()
	snap.Daily = snap.Daily[:1]

	out := ForLLM(snap, nil)
	assert.Contains(t, out, "No extended forecast available.")
}

func TestForLLMCurrentPrecipitation(t *testing.T) {
	withFixedNow(t, time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC))

	snap := fixtureSnapshot()
	out := ForLLM(snap, nil)
	assert.Contains(t, out, "Current Precipitation: none.")

	snap.Current.Rain = &weather.Precipitation{OneHour: 1.2}
	out = ForLLM(snap, nil)
	assert.Contains(t, out, "Currently raining (1.2 mm/hr).")

	snap.Current.Rain = nil
	snap.Current.Snow = &weather.Precipitation{OneHour: 3}
	out = ForLLM(snap, nil)
	assert.Contains(t, out, "Currently snowing (3 mm/hr).")
}

func TestDescribeWindTiers(t *testing.T) {
	cases := []struct {
		speed float64
		want  string
	}{
		{30, "Very windy, around 30 mph."},
		{18, "Windy, around 18 mph."},
		{8, "Light winds around 8 mph."},
		{3, "Mostly calm."},
		{0.5, "No wind."},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, describeWind(f(tc.speed), nil))
	}
	assert.Equal(t, "Wind data not available.", describeWind(nil, nil))
}

func TestDescribeWindGustClause(t *testing.T) {
	// Gust must exceed both 1.5x the speed and 5 mph.
	assert.Equal(t, "Light winds around 10 mph. Gusts up to 20 mph.", describeWind(f(10), f(20)))
	assert.Equal(t, "Light winds around 10 mph.", describeWind(f(10), f(12)))
	assert.Equal(t, "Mostly calm.", describeWind(f(2), f(2.5)))
}

func TestDescribeUVITiers(t *testing.T) {
	assert.Equal(t, "N/A", describeUVI(nil))
	assert.Equal(t, "2.0 (Low)", describeUVI(f(2)))
	assert.Equal(t, "5.0 (Moderate)", describeUVI(f(5)))
	assert.Equal(t, "7.0 (High) - Mention sunscreen.", describeUVI(f(7)))
	assert.Equal(t, "9.5 (Very High) - You must mention sunscreen!", describeUVI(f(9.5)))
	assert.Equal(t, "11.0 (Extreme) - Sunscreen and a hat are a must!", describeUVI(f(11)))
}

func TestDescribeDayPrecipitation(t *testing.T) {
	low := weather.Day{Pop: 0.05}
	assert.Equal(t, "Low chance of precipitation.", describeDayPrecipitation(low))

	rainy := weather.Day{
		Pop:     0.8,
		Rain:    f(5.2),
		Weather: []weather.Condition{{Main: "Rain"}},
	}
	assert.Equal(t, "80% chance of rain (moderate rain).", describeDayPrecipitation(rainy))

	snowy := weather.Day{
		Pop:     0.6,
		Snow:    f(30.0),
		Weather: []weather.Condition{{Main: "Snow"}},
	}
	assert.Equal(t, "60% chance of snow (moderate snow).", describeDayPrecipitation(snowy))

	// Type inferred from amounts when the condition mains say nothing.
	unlabeled := weather.Day{Pop: 0.5, Rain: f(0.4)}
	assert.Equal(t, "50% chance of rain (trace rain).", describeDayPrecipitation(unlabeled))

	bare := weather.Day{Pop: 0.3}
	assert.Equal(t, "30% chance of precipitation.", describeDayPrecipitation(bare))
}

func TestRainSnowIntensityThresholds(t *testing.T) {
	assert.Equal(t, "trace", rainIntensity(0.9))
	assert.Equal(t, "light", rainIntensity(1.0))
	assert.Equal(t, "moderate", rainIntensity(2.5))
	assert.Equal(t, "heavy", rainIntensity(10))

	assert.Equal(t, "trace", snowIntensity(4.9))
	assert.Equal(t, "light", snowIntensity(5))
	assert.Equal(t, "moderate", snowIntensity(25))
	assert.Equal(t, "heavy", snowIntensity(75))
}

func TestForLLMMissingFieldsDegradeToNA(t *testing.T) {
	withFixedNow(t, time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC))
	snap := &weather.Snapshot{}

	out := ForLLM(snap, nil)
	assert.Contains(t, out, "Right Now: Not available at N/A")
	assert.Contains(t, out, "Current UV Index: N/A")
	assert.Contains(t, out, "Sunrise: N/A, Sunset: N/A.")
	assert.Contains(t, out, "No extended forecast available.")
}
