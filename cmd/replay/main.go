// Command replay re-runs a logged LLM interaction. It reuses the stored
// weather context verbatim and never calls the weather provider, which makes
// it safe for prompt experiments against historical conditions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kidsweather/kidsweather/internal/cache"
	"github.com/kidsweather/kidsweather/internal/config"
	"github.com/kidsweather/kidsweather/internal/llm"
	"github.com/kidsweather/kidsweather/internal/logger"
	"github.com/kidsweather/kidsweather/internal/logstore"
)

func main() {
	var (
		id          = flag.Int64("id", 0, "interaction id to replay (required)")
		prompt      = flag.String("prompt", "", "substitute system prompt: literal text or a file path")
		model       = flag.String("model", "", "substitute model for the primary LLM provider")
		showContext = flag.Bool("show-context", false, "print the stored interaction and exit without calling the LLM")
		logFlag     = flag.Bool("log", false, "record the replayed interaction in the log database")
	)
	flag.Parse()

	if *id == 0 {
		flag.Usage()
		log.Fatal("-id is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zlog := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer zlog.Sync()

	if cfg.PostgresDSN == "" {
		log.Fatal("replay requires POSTGRES_DSN")
	}
	store, err := logstore.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to open interaction log: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	rec, err := store.GetByID(ctx, *id)
	if err != nil {
		log.Fatalf("failed to load interaction: %v", err)
	}

	fmt.Printf("Interaction %d (%s, source %s)\n", rec.ID, rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Source)
	fmt.Printf("Location:    %s\n", rec.LocationName)
	fmt.Printf("Model used:  %s\n", rec.ModelUsed)
	fmt.Printf("Description: %s\n", rec.Description)

	if *showContext {
		fmt.Printf("\n--- System prompt ---\n%s\n", rec.SystemPrompt)
		fmt.Printf("\n--- LLM context ---\n%s\n", rec.LLMContext)
		return
	}

	systemPrompt := rec.SystemPrompt
	if *prompt != "" {
		if data, err := os.ReadFile(*prompt); err == nil {
			systemPrompt = string(data)
		} else {
			systemPrompt = *prompt
		}
	}

	cacheProvider := cache.NewRedis(cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, zlog)
	defer cacheProvider.Close()

	llmClient := llm.NewClient(cfg.LLM, cfg.FallbackLLM, cacheProvider, cfg.CacheTTL, zlog)

	result, err := llmClient.Generate(ctx, rec.LLMContext, systemPrompt, llm.GenerateOptions{
		ModelOverride: *model,
	})
	if err != nil {
		log.Fatalf("replay generation failed: %v", err)
	}

	fmt.Printf("\n--- Replay result (%s via %s) ---\n", result.ModelUsed, result.ProviderLabel)
	out, err := json.MarshalIndent(result.Fields, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode result: %v", err)
	}
	fmt.Println(string(out))

	if *logFlag {
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatalf("failed to prepare interaction log: %v", err)
		}
		output, err := json.Marshal(map[string]any{
			"raw_llm_response": result.RawResponse,
			"parsed_result":    result.Fields,
		})
		if err != nil {
			log.Fatalf("failed to serialize replay output: %v", err)
		}
		if err := store.Log(ctx, logstore.Record{
			LocationName: rec.LocationName,
			WeatherInput: rec.WeatherInput,
			LLMContext:   rec.LLMContext,
			SystemPrompt: systemPrompt,
			ModelUsed:    result.ModelUsed,
			LLMOutput:    output,
			Description:  result.Description(),
			Source:       "replay",
		}); err != nil {
			log.Fatalf("failed to log replay: %v", err)
		}
	}
}
