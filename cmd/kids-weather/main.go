package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/kidsweather/kidsweather/internal/api/http"
	"github.com/kidsweather/kidsweather/internal/cache"
	"github.com/kidsweather/kidsweather/internal/config"
	"github.com/kidsweather/kidsweather/internal/llm"
	"github.com/kidsweather/kidsweather/internal/logger"
	"github.com/kidsweather/kidsweather/internal/logstore"
	"github.com/kidsweather/kidsweather/internal/report"
	"github.com/kidsweather/kidsweather/internal/scheduler"
	"github.com/kidsweather/kidsweather/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer zlog.Sync()

	// Shared best-effort cache. A dead Redis degrades every lookup to a
	// miss, it never takes the service down.
	cacheProvider := cache.NewRedis(cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, zlog)
	defer cacheProvider.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cacheProvider.Ping(pingCtx); err != nil {
		zlog.Warn("redis unreachable, caching disabled in practice", zap.Error(err))
	}
	cancelPing()

	weatherClient := weather.NewClient(weather.Settings{
		BaseURL:        cfg.WeatherAPIURL,
		TimemachineURL: cfg.WeatherTimemachineURL,
		Units:          cfg.WeatherUnits,
		APIKey:         cfg.WeatherAPIKey,
		CacheTTL:       cfg.CacheTTL,
	}, &http.Client{Timeout: 10 * time.Second}, cacheProvider, zlog)

	llmClient := llm.NewClient(cfg.LLM, cfg.FallbackLLM, cacheProvider, cfg.CacheTTL, zlog)

	var store report.InteractionLogger
	if cfg.PostgresDSN != "" {
		pg, err := logstore.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to open interaction log: %v", err)
		}
		defer pg.Close()
		store = pg
	} else {
		zlog.Info("POSTGRES_DSN not set, interaction logging disabled")
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

	// Keep the default location inside the cache window.
	sched := scheduler.New(weatherClient, cfg.DefaultLat, cfg.DefaultLon, cfg.WarmInterval, zlog)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "kids-weather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Report generation waits on the LLM, which is slow.
		WriteTimeout: 240 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, builder)

	go func() {
		zlog.Info("server listening", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Error("fiber server stopped", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
}
