// Command weatherctl builds a kids-weather report from the terminal. It can
// also save a fetched snapshot for later replay and load a saved snapshot
// instead of calling the weather provider.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kidsweather/kidsweather/internal/cache"
	"github.com/kidsweather/kidsweather/internal/config"
	"github.com/kidsweather/kidsweather/internal/llm"
	"github.com/kidsweather/kidsweather/internal/logger"
	"github.com/kidsweather/kidsweather/internal/logstore"
	"github.com/kidsweather/kidsweather/internal/report"
	"github.com/kidsweather/kidsweather/internal/weather"
)

func main() {
	var (
		lat         = flag.Float64("lat", 0, "latitude (requires -lon)")
		lon         = flag.Float64("lon", 0, "longitude (requires -lat)")
		prompt      = flag.String("prompt", "", "system prompt override: literal text or a file path")
		model       = flag.String("model", "", "model override for the primary LLM provider")
		logFlag     = flag.Bool("log", false, "record the interaction in the log database")
		noYesterday = flag.Bool("no-yesterday", false, "skip yesterday's weather enrichment")
		saveData    = flag.String("save", "", "save the fetched snapshot under the data dir (empty name gets a timestamp); use '-' for the default name")
		loadData    = flag.String("load", "", "load a saved snapshot file instead of fetching")
		saveJSON    = flag.String("save-json", "", "write the report JSON to this file")
		saveTxt     = flag.String("save-txt", "", "write the description text to this file")
	)
	flag.Parse()

	latSet, lonSet := false, false
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lat":
			latSet = true
		case "lon":
			lonSet = true
		}
	})
	if latSet != lonSet {
		log.Fatal("-lat and -lon must be provided together")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zlog := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer zlog.Sync()

	cacheProvider := cache.NewRedis(cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, zlog)
	defer cacheProvider.Close()

	weatherClient := weather.NewClient(weather.Settings{
		BaseURL:        cfg.WeatherAPIURL,
		TimemachineURL: cfg.WeatherTimemachineURL,
		Units:          cfg.WeatherUnits,
		APIKey:         cfg.WeatherAPIKey,
		CacheTTL:       cfg.CacheTTL,
	}, &http.Client{Timeout: 10 * time.Second}, cacheProvider, zlog)

	llmClient := llm.NewClient(cfg.LLM, cfg.FallbackLLM, cacheProvider, cfg.CacheTTL, zlog)

	var store report.InteractionLogger
	if *logFlag {
		if cfg.PostgresDSN == "" {
			log.Fatal("-log requires POSTGRES_DSN")
		}
		pg, err := logstore.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to open interaction log: %v", err)
		}
		defer pg.Close()
		store = pg
	}

	builder := report.NewBuilder(report.BuilderConfig{
		Defaults: report.Defaults{
			Lat:      cfg.DefaultLat,
			Lon:      cfg.DefaultLon,
			Location: cfg.DefaultLocation,
		},
		PromptDir:     cfg.PromptDir,
		HasWeatherKey: cfg.WeatherAPIKey != "",
	}, weatherClient, llmClient, store, zlog)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	req := report.Request{
		PromptOverride:   *prompt,
		IncludeYesterday: !*noYesterday,
		LogInteraction:   *logFlag,
		Source:           "cli",
		ModelOverride:    *model,
	}
	if latSet {
		req.Lat, req.Lon = lat, lon
	}

	switch {
	case *loadData != "":
		path := *loadData
		if _, err := os.Stat(path); err != nil {
			path = filepath.Join(cfg.DataDir, *loadData)
		}
		snap, err := weather.LoadSnapshot(path)
		if err != nil {
			log.Fatalf("failed to load snapshot: %v", err)
		}
		req.SnapshotOverride = snap
	case *saveData != "":
		reqLat, reqLon := cfg.DefaultLat, cfg.DefaultLon
		if latSet {
			reqLat, reqLon = *lat, *lon
		}
		snap, err := weatherClient.FetchCurrent(ctx, reqLat, reqLon)
		if err != nil {
			log.Fatalf("failed to fetch weather: %v", err)
		}
		name := *saveData
		if name == "-" {
			name = ""
		}
		path, err := weather.SaveSnapshot(snap, cfg.DataDir, name)
		if err != nil {
			log.Fatalf("failed to save snapshot: %v", err)
		}
		fmt.Fprintf(os.Stderr, "saved snapshot to %s\n", path)
		req.SnapshotOverride = snap
	}

	rep, err := builder.Build(ctx, req)
	if err != nil {
		log.Fatalf("failed to build report: %v", err)
	}

	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode report: %v", err)
	}
	fmt.Println(string(out))

	if *saveJSON != "" {
		if err := os.WriteFile(*saveJSON, append(out, '\n'), 0o644); err != nil {
			log.Fatalf("failed to write report JSON: %v", err)
		}
	}
	if *saveTxt != "" {
		if err := os.WriteFile(*saveTxt, []byte(rep.Description+"\n"), 0o644); err != nil {
			log.Fatalf("failed to write description: %v", err)
		}
	}
}
