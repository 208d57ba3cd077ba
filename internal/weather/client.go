package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kidsweather/kidsweather/internal/cache"
)

// ErrMissingAPIKey is returned before any network attempt when the weather
// key is not configured.
var ErrMissingAPIKey = errors.New("weather api key is not configured")

// Settings holds the provider endpoints and fetch parameters.
type Settings struct {
	BaseURL        string
	TimemachineURL string
	Units          string
	APIKey         string
	CacheTTL       time.Duration
}

// Client fetches current and historical weather, cache-backed. Weather
// failures are fatal to the caller; there is no fallback weather provider.
type Client struct {
	settings Settings
	http     *http.Client
	cache    cache.Provider
	log      *zap.Logger
}

// overridable in tests
var timeNow = time.Now

// NewClient creates a weather client. cacheProvider may be nil, which
// disables caching.
func NewClient(settings Settings, httpClient *http.Client, cacheProvider cache.Provider, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		settings: settings,
		http:     httpClient,
		cache:    cacheProvider,
		log:      log,
	}
}

// FetchCurrent returns current conditions plus hourly/daily forecasts for the
// coordinates. Within a cache window the provider is called at most once per
// location; hits return the cached payload verbatim.
func (c *Client) FetchCurrent(ctx context.Context, lat, lon float64) (*Snapshot, error) {
	if c.settings.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	key := cache.Key("weather", lat, lon)
	if c.cache != nil {
		if raw, ok := c.cache.Get(ctx, key); ok {
			c.log.Debug("weather cache hit", zap.String("key", key))
			return parseSnapshot(raw)
		}
	}
	c.log.Debug("weather cache miss", zap.String("key", key))

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("units", c.settings.Units)
	values.Set("exclude", "minutely")
	values.Set("appid", c.settings.APIKey)

	raw, err := c.getJSON(ctx, c.settings.BaseURL, values)
	if err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}

	snap, err := parseSnapshot(raw)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(ctx, key, raw, c.settings.CacheTTL)
	}
	return snap, nil
}

// FetchYesterdaySummary builds a coarse summary for yesterday from the
// time-machine endpoint. It returns (nil, nil) when the provider has no data
// point for the requested instant; that is expected degradation, not a fault.
func (c *Client) FetchYesterdaySummary(ctx context.Context, lat, lon float64) (*YesterdaySummary, error) {
	if c.settings.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	// Yesterday at local noon. The timestamp participates in the cache key,
	// so the cached entry stops matching once the day rolls over even if the
	// TTL has not fired.
	now := timeNow()
	noon := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
	ts := noon.Unix()

	key := cache.Key("weather_yesterday", lat, lon, ts)
	if c.cache != nil {
		if raw, ok := c.cache.Get(ctx, key); ok {
			var summary YesterdaySummary
			if err := json.Unmarshal(raw, &summary); err == nil {
				return &summary, nil
			}
		}
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("dt", strconv.FormatInt(ts, 10))
	values.Set("units", c.settings.Units)
	values.Set("appid", c.settings.APIKey)

	raw, err := c.getJSON(ctx, c.settings.TimemachineURL, values)
	if err != nil {
		return nil, fmt.Errorf("fetch yesterday weather: %w", err)
	}

	var payload struct {
		TimezoneOffset int `json:"timezone_offset"`
		Data           []struct {
			Dt        int64       `json:"dt"`
			Temp      *float64    `json:"temp"`
			FeelsLike *float64    `json:"feels_like"`
			Weather   []Condition `json:"weather"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode timemachine response: %w", err)
	}
	if len(payload.Data) == 0 {
		c.log.Info("no historical data point available", zap.Float64("lat", lat), zap.Float64("lon", lon))
		return nil, nil
	}

	// The time-machine API returns one instant, not a day aggregate. That
	// single sample stands in for the whole day.
	entry := payload.Data[0]
	condition := "Unknown"
	if len(entry.Weather) > 0 {
		condition = entry.Weather[0].Main
	}
	local := time.Unix(entry.Dt, 0).UTC().Add(time.Duration(payload.TimezoneOffset) * time.Second)
	temp := round1(entry.Temp)
	summary := &YesterdaySummary{
		Date:          local.Format("Monday, January 02"),
		AvgTemp:       temp,
		HighTemp:      temp,
		LowTemp:       temp,
		AvgFeelsLike:  round1(entry.FeelsLike),
		MainCondition: condition,
	}

	if c.cache != nil {
		if encoded, err := json.Marshal(summary); err == nil {
			// Historical data does not change; keep it well past the base TTL.
			c.cache.Set(ctx, key, encoded, c.settings.CacheTTL*6)
		}
	}
	return summary, nil
}

func (c *Client) getJSON(ctx context.Context, baseURL string, values url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("weather provider returned %s: %s", resp.Status, truncate(string(body), 200))
	}
	return body, nil
}

func parseSnapshot(raw []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}
	snap.Raw = raw
	return &snap, nil
}

func round1(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := float64(int(*v*10+0.5)) / 10
	if *v < 0 {
		r = float64(int(*v*10-0.5)) / 10
	}
	return &r
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
