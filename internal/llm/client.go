package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kidsweather/kidsweather/internal/cache"
)

// ProviderConfig describes one chat-completions endpoint.
type ProviderConfig struct {
	Label            string // "primary" or "fallback"
	URL              string
	APIKey           string
	Model            string
	SupportsJSONMode bool
}

// IsConfigured reports whether all required fields are present.
func (p ProviderConfig) IsConfigured() bool {
	return p.URL != "" && p.APIKey != "" && p.Model != ""
}

// RequireComplete fails fast, naming the missing fields, before any I/O.
func (p ProviderConfig) RequireComplete() error {
	var missing []string
	if p.URL == "" {
		missing = append(missing, "api_url")
	}
	if p.APIKey == "" {
		missing = append(missing, "api_key")
	}
	if p.Model == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s for %s LLM configuration", strings.Join(missing, ", "), p.Label)
	}
	return nil
}

// GenerateOptions carry per-call overrides. Overrides apply to the primary
// provider only; a fallback always runs with its own full configuration.
type GenerateOptions struct {
	ModelOverride  string
	APIKeyOverride string
}

// Client invokes the primary provider with fallback to a secondary,
// cache-backed. Each provider gets its own circuit breaker; an open breaker
// counts as a provider failure and triggers the fallback like any other.
type Client struct {
	providers []ProviderConfig
	breakers  []*gobreaker.CircuitBreaker
	http      *http.Client
	cache     cache.Provider
	cacheTTL  time.Duration
	log       *zap.Logger
}

// NewClient builds an LLM client. fallback may be nil, cacheProvider may be
// nil (disables caching).
func NewClient(primary ProviderConfig, fallback *ProviderConfig, cacheProvider cache.Provider, cacheTTL time.Duration, log *zap.Logger) *Client {
	primary.Label = "primary"
	providers := []ProviderConfig{primary}
	if fallback != nil {
		f := *fallback
		f.Label = "fallback"
		providers = append(providers, f)
	}

	breakers := make([]*gobreaker.CircuitBreaker, len(providers))
	for i, p := range providers {
		breakers[i] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm-" + p.Label,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		})
	}

	return &Client{
		providers: providers,
		breakers:  breakers,
		// Generation is slow; this is a hard socket timeout, not caller-cancellable mid-flight.
		http:     &http.Client{Timeout: 200 * time.Second},
		cache:    cacheProvider,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// Generate produces a structured response for the formatted weather context.
// genCtx is sent verbatim when it is a string and JSON-serialized otherwise.
func (c *Client) Generate(ctx context.Context, genCtx any, systemPrompt string, opts GenerateOptions) (*Result, error) {
	primary := c.providers[0]
	if err := primary.RequireComplete(); err != nil {
		return nil, err
	}

	if c.cache != nil {
		for _, model := range c.candidateModels(opts.ModelOverride) {
			key := cache.Key("llm", genCtx, systemPrompt, model)
			if raw, ok := c.cache.Get(ctx, key); ok {
				var cached Result
				if err := json.Unmarshal(raw, &cached); err == nil {
					c.log.Debug("llm cache hit", zap.String("model", model))
					return &cached, nil
				}
			}
		}
	}

	result, primaryErr := c.invokeProvider(ctx, 0, genCtx, systemPrompt, opts.ModelOverride, opts.APIKeyOverride)
	if primaryErr != nil {
		if len(c.providers) == 1 {
			return nil, primaryErr
		}

		fallback := c.providers[1]
		c.log.Warn("primary LLM failed, attempting fallback",
			zap.String("fallback_model", fallback.Model), zap.Error(primaryErr))

		var fallbackErr error
		if fallbackErr = fallback.RequireComplete(); fallbackErr == nil {
			result, fallbackErr = c.invokeProvider(ctx, 1, genCtx, systemPrompt, "", "")
		}
		if fallbackErr != nil {
			// Keep both causes; neither failure is swallowed.
			return nil, fmt.Errorf("both LLM providers failed: primary: %w; fallback: %v", primaryErr, fallbackErr)
		}
	}

	if c.cache != nil {
		key := cache.Key("llm", genCtx, systemPrompt, result.ModelUsed)
		if encoded, err := json.Marshal(result); err == nil {
			c.cache.Set(ctx, key, encoded, c.cacheTTL)
		}
	}
	return result, nil
}

// candidateModels lists the models whose cached results could satisfy this
// call. Without an override, a previous fallback answer is as good as a
// primary one.
func (c *Client) candidateModels(modelOverride string) []string {
	if modelOverride != "" {
		return []string{modelOverride}
	}
	models := []string{c.providers[0].Model}
	if len(c.providers) > 1 && c.providers[1].IsConfigured() {
		models = append(models, c.providers[1].Model)
	}
	return models
}

func (c *Client) invokeProvider(ctx context.Context, idx int, genCtx any, systemPrompt, modelOverride, apiKeyOverride string) (*Result, error) {
	provider := c.providers[idx]
	model := provider.Model
	if modelOverride != "" {
		model = modelOverride
	}
	apiKey := provider.APIKey
	if apiKeyOverride != "" {
		apiKey = apiKeyOverride
	}

	userContent, ok := genCtx.(string)
	if !ok {
		encoded, err := json.Marshal(genCtx)
		if err != nil {
			return nil, fmt.Errorf("serialize context: %w", err)
		}
		userContent = string(encoded)
	}

	payload := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userContent},
		},
		"stream": false,
	}
	if provider.SupportsJSONMode {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.log.Info("calling LLM provider",
		zap.String("provider", provider.Label), zap.String("model", model))

	raw, err := c.breakers[idx].Execute(func() (any, error) {
		return c.post(ctx, provider.URL, apiKey, body)
	})
	if err != nil {
		return nil, fmt.Errorf("%s LLM request failed: %w", provider.Label, err)
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw.([]byte), &response); err != nil {
		return nil, fmt.Errorf("decode %s LLM response: %w", provider.Label, err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no choices in %s LLM response", provider.Label)
	}

	rawContent := response.Choices[0].Message.Content
	result, err := parseResult(Normalize(rawContent))
	if err != nil {
		return nil, fmt.Errorf("%s LLM: %w", provider.Label, err)
	}

	result.RawResponse = rawContent
	result.ModelUsed = model
	result.ProviderLabel = provider.Label
	return result, nil
}

func (c *Client) post(ctx context.Context, url, apiKey string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider returned %s: %s", resp.Status, preview(string(respBody)))
	}
	if len(respBody) == 0 {
		return nil, errors.New("empty response body")
	}
	return respBody, nil
}
