package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"

	"github.com/kidsweather/kidsweather/internal/llm"
)

var validate = validator.New()

// Defaults for the bundled location (Washington, DC).
const (
	defaultLat = 38.9541848
	defaultLon = -77.0832061
)

type AppConfig struct {
	// Weather provider (OpenWeather One Call 3.0).
	WeatherAPIURL         string `validate:"required,url"`
	WeatherTimemachineURL string `validate:"required,url"`
	WeatherUnits          string
	WeatherAPIKey         string
	CacheTTL              time.Duration

	// LLM providers. Fallback is optional, all-or-none.
	LLM         llm.ProviderConfig
	FallbackLLM *llm.ProviderConfig

	// Default report location.
	DefaultLat      float64
	DefaultLon      float64
	DefaultLocation string

	// Filesystem locations.
	PromptDir string
	DataDir   string

	// Cache backend.
	RedisAddr     string `validate:"required"`
	RedisPassword string
	RedisDB       int

	// Interaction log. Empty DSN disables logging.
	PostgresDSN string

	Port         string
	WarmInterval time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.WeatherAPIURL = getenvDefault("WEATHER_API_URL",
		"https://api.openweathermap.org/data/3.0/onecall")
	cfg.WeatherTimemachineURL = getenvDefault("WEATHER_TIMEMACHINE_API_URL",
		"https://api.openweathermap.org/data/3.0/onecall/timemachine")
	cfg.WeatherUnits = getenvDefault("WEATHER_UNITS", "imperial")
	cfg.WeatherAPIKey = os.Getenv("WEATHER_API_KEY")
	cfg.CacheTTL = time.Duration(getenvInt("API_CACHE_TTL", 600)) * time.Second

	cfg.LLM = llm.ProviderConfig{
		Label:            "primary",
		URL:              os.Getenv("LLM_API_URL"),
		APIKey:           os.Getenv("LLM_API_KEY"),
		Model:            os.Getenv("LLM_MODEL"),
		SupportsJSONMode: getenvBool("LLM_SUPPORTS_JSON_MODE", true),
	}
	fallback := llm.ProviderConfig{
		Label:            "fallback",
		URL:              os.Getenv("FALLBACK_LLM_API_URL"),
		APIKey:           os.Getenv("FALLBACK_LLM_API_KEY"),
		Model:            os.Getenv("FALLBACK_LLM_MODEL"),
		SupportsJSONMode: getenvBool("FALLBACK_LLM_SUPPORTS_JSON_MODE", true),
	}
	if fallback.URL != "" || fallback.APIKey != "" || fallback.Model != "" {
		// A partial fallback is a config error, not something to limp past.
		if err := fallback.RequireComplete(); err != nil {
			return nil, err
		}
		cfg.FallbackLLM = &fallback
	}

	lat, lon, err := loadDefaultCoords()
	if err != nil {
		return nil, err
	}
	cfg.DefaultLat = lat
	cfg.DefaultLon = lon
	cfg.DefaultLocation = getenvDefault("DEFAULT_LOCATION", "Washington, DC")

	cfg.PromptDir = getenvDefault("PROMPT_DIR", "./prompts")
	cfg.DataDir = getenvDefault("DATA_DIR", "./data")

	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getenvInt("REDIS_DB", 0)

	cfg.PostgresDSN = os.Getenv("POSTGRES_DSN")
	cfg.Port = getenvDefault("PORT", "8080")

	warmStr := getenvDefault("WARM_INTERVAL", "")
	if warmStr == "" {
		cfg.WarmInterval = cfg.CacheTTL
	} else {
		warm, err := time.ParseDuration(warmStr)
		if err != nil {
			return nil, fmt.Errorf("invalid WARM_INTERVAL: %w", err)
		}
		cfg.WarmInterval = warm
	}

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "console")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadDefaultCoords resolves the default location: explicit DEFAULT_LAT/LON
// win, else an optional geocoded city, else the bundled coordinates.
func loadDefaultCoords() (float64, float64, error) {
	latStr, lonStr := os.Getenv("DEFAULT_LAT"), os.Getenv("DEFAULT_LON")
	if latStr != "" || lonStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid DEFAULT_LAT: %w", err)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid DEFAULT_LON: %w", err)
		}
		return lat, lon, nil
	}

	city := os.Getenv("DEFAULT_LOCATION_CITY")
	apiKey := os.Getenv("GEOCODER_API_KEY")
	if city != "" && apiKey != "" {
		geocoder.ApiKey = apiKey
		loc, err := geocoder.Geocoding(geocoder.Address{City: city})
		if err != nil {
			return 0, 0, fmt.Errorf("geocode %q: %w", city, err)
		}
		return loc.Latitude, loc.Longitude, nil
	}

	return defaultLat, defaultLon, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
