// Package report orchestrates weather retrieval, formatting, LLM generation
// and interaction logging into a single display-ready report.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kidsweather/kidsweather/internal/format"
	"github.com/kidsweather/kidsweather/internal/llm"
	"github.com/kidsweather/kidsweather/internal/logstore"
	"github.com/kidsweather/kidsweather/internal/weather"
)

// builtinPrompt is the last-resort system prompt when no prompt file exists.
const builtinPrompt = "You are a helpful weather assistant providing JSON output."

// WeatherService fetches current and historical weather.
type WeatherService interface {
	FetchCurrent(ctx context.Context, lat, lon float64) (*weather.Snapshot, error)
	FetchYesterdaySummary(ctx context.Context, lat, lon float64) (*weather.YesterdaySummary, error)
}

// Generator produces a structured narrative from formatted weather context.
type Generator interface {
	Generate(ctx context.Context, genCtx any, systemPrompt string, opts llm.GenerateOptions) (*llm.Result, error)
}

// InteractionLogger records LLM interactions. Log failures are telemetry
// losses, never report failures.
type InteractionLogger interface {
	EnsureSchema(ctx context.Context) error
	Log(ctx context.Context, rec logstore.Record) error
}

// Defaults locate the report when the caller supplies no coordinates.
type Defaults struct {
	Lat      float64
	Lon      float64
	Location string
}

// BuilderConfig carries the non-service settings of a Builder.
type BuilderConfig struct {
	Defaults      Defaults
	PromptDir     string
	HasWeatherKey bool
}

// Builder assembles reports.
type Builder struct {
	cfg     BuilderConfig
	weather WeatherService
	llm     Generator
	store   InteractionLogger
	log     *zap.Logger
}

// NewBuilder wires the builder. store may be nil to disable interaction
// logging entirely.
func NewBuilder(cfg BuilderConfig, weatherSvc WeatherService, gen Generator, store InteractionLogger, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		cfg:     cfg,
		weather: weatherSvc,
		llm:     gen,
		store:   store,
		log:     log,
	}
}

// Request is one report build.
type Request struct {
	Lat              *float64
	Lon              *float64
	PromptOverride   string // literal text, or a path to a readable file
	IncludeYesterday bool
	LogInteraction   bool
	Source           string
	SnapshotOverride *weather.Snapshot // bypasses the weather fetch entirely
	ModelOverride    string
}

// Report is the final projection combining the LLM narrative with display
// data derived straight from the snapshot.
type Report struct {
	Description       string                 `json:"description"`
	DailyForecastsLLM []llm.ForecastEntry    `json:"daily_forecasts_llm"`
	Temperature       *int                   `json:"temperature"`
	FeelsLike         *int                   `json:"feels_like"`
	Conditions        string                 `json:"conditions"`
	HighTemp          *int                   `json:"high_temp"`
	LowTemp           *int                   `json:"low_temp"`
	IconURL           *string                `json:"icon_url"`
	Alerts            []string               `json:"alerts"`
	LastUpdated       string                 `json:"last_updated"`
	DailyForecastRaw  []format.DailyForecast `json:"daily_forecast_raw"`
	RawLLMResponse    string                 `json:"_raw_llm_response"`
	ModelUsed         string                 `json:"model_used"`
}

// Build produces one report. Weather and LLM failures are fatal; yesterday
// enrichment and interaction logging are best-effort.
func (b *Builder) Build(ctx context.Context, req Request) (*Report, error) {
	log := b.log.With(
		zap.String("trace_id", uuid.NewString()),
		zap.String("source", req.Source),
	)

	snap := req.SnapshotOverride
	if snap == nil {
		lat, lon := b.resolveCoords(req.Lat, req.Lon)
		fetched, err := b.weather.FetchCurrent(ctx, lat, lon)
		if err != nil {
			return nil, fmt.Errorf("fetch weather: %w", err)
		}
		snap = fetched
	}

	var yesterday *weather.YesterdaySummary
	if req.IncludeYesterday && snap.Lat != 0 && snap.Lon != 0 && b.cfg.HasWeatherKey {
		ys, err := b.weather.FetchYesterdaySummary(ctx, snap.Lat, snap.Lon)
		if err != nil {
			log.Warn("yesterday summary unavailable, continuing without it", zap.Error(err))
		} else {
			yesterday = ys
		}
	}

	prompt := b.resolvePrompt(req.PromptOverride)
	llmContext := format.ForLLM(snap, yesterday)

	result, err := b.llm.Generate(ctx, llmContext, prompt, llm.GenerateOptions{
		ModelOverride: req.ModelOverride,
	})
	if err != nil {
		return nil, err
	}

	if req.LogInteraction && b.store != nil {
		b.logInteraction(ctx, log, snap, llmContext, prompt, result, req.Source)
	}

	display := format.ExtractDisplay(snap)
	report := assemble(snap, result, display)
	log.Info("report built",
		zap.String("model", result.ModelUsed),
		zap.String("provider", result.ProviderLabel),
	)
	return report, nil
}

func (b *Builder) resolveCoords(lat, lon *float64) (float64, float64) {
	latValue, lonValue := b.cfg.Defaults.Lat, b.cfg.Defaults.Lon
	if lat != nil {
		latValue = *lat
	}
	if lon != nil {
		lonValue = *lon
	}
	return latValue, lonValue
}

// resolvePrompt picks the system prompt: explicit text or file, else the
// default prompt file, else a built-in fallback. A sibling instructions file
// is always appended when present.
func (b *Builder) resolvePrompt(override string) string {
	var content string
	switch {
	case override != "":
		if data, err := os.ReadFile(override); err == nil {
			content = string(data)
		} else {
			// Not a readable path; treat the override as literal prompt text.
			return override
		}
	default:
		data, err := os.ReadFile(filepath.Join(b.cfg.PromptDir, "default.txt"))
		if err != nil {
			b.log.Warn("default prompt file missing, using built-in prompt", zap.Error(err))
			content = builtinPrompt
		} else {
			content = string(data)
		}
	}

	if extra, err := os.ReadFile(filepath.Join(b.cfg.PromptDir, "instructions.txt")); err == nil {
		content = content + "\n\n" + string(extra)
	}
	return content
}

// logInteraction appends the interaction best-effort. The raw response lives
// only under its own key; the parsed payload carries model-declared fields.
func (b *Builder) logInteraction(ctx context.Context, log *zap.Logger, snap *weather.Snapshot, llmContext, prompt string, result *llm.Result, source string) {
	if err := b.store.EnsureSchema(ctx); err != nil {
		log.Warn("interaction log schema check failed", zap.Error(err))
		return
	}

	output, err := json.Marshal(map[string]any{
		"raw_llm_response": result.RawResponse,
		"parsed_result":    result.Fields,
	})
	if err != nil {
		log.Warn("could not serialize llm output for logging", zap.Error(err))
		return
	}

	location := snap.Timezone
	if location == "" {
		location = b.cfg.Defaults.Location
	}
	rec := logstore.Record{
		LocationName: location,
		WeatherInput: snap.Raw,
		LLMContext:   llmContext,
		SystemPrompt: prompt,
		ModelUsed:    result.ModelUsed,
		LLMOutput:    output,
		Description:  result.Description(),
		Source:       source,
	}
	if err := b.store.Log(ctx, rec); err != nil {
		log.Warn("interaction log write failed", zap.Error(err))
		return
	}
	log.Debug("interaction logged", zap.String("location", location))
}

func assemble(snap *weather.Snapshot, result *llm.Result, display format.Display) *Report {
	var iconURL *string
	if display.Current.Icon != "" {
		u := fmt.Sprintf("http://openweathermap.org/img/wn/%s@4x.png", display.Current.Icon)
		iconURL = &u
	}

	alerts := make([]string, 0, len(display.Alerts))
	for _, a := range display.Alerts {
		alerts = append(alerts, fmt.Sprintf("%s (%s to %s)", a.Event, a.Start, a.End))
	}

	return &Report{
		Description:       result.Description(),
		DailyForecastsLLM: result.DailyForecasts,
		Temperature:       display.Current.Temp,
		FeelsLike:         display.Current.FeelsLike,
		Conditions:        display.Current.Conditions,
		HighTemp:          display.Forecast.HighTemp,
		LowTemp:           display.Forecast.LowTemp,
		IconURL:           iconURL,
		Alerts:            alerts,
		LastUpdated:       lastUpdated(snap),
		DailyForecastRaw:  display.DailyForecastRaw,
		RawLLMResponse:    result.RawResponse,
		ModelUsed:         result.ModelUsed,
	}
}

// lastUpdated renders the current-conditions timestamp in the snapshot's
// local time without leading zeros.
func lastUpdated(snap *weather.Snapshot) string {
	ts := snap.Current.Dt
	if ts == 0 {
		return "Unknown"
	}
	loc := time.FixedZone("local", snap.TimezoneOffset)
	return time.Unix(ts, 0).In(loc).Format("Monday, January 2 at 3:04 PM")
}
