package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ForecastEntry is one day's LLM-written forecast text. Day may be empty when
// the model returned a plain sequence instead of a day-name mapping.
type ForecastEntry struct {
	Day  string `json:"day"`
	Text string `json:"text"`
}

// Result is the parsed output of one generation. Fields holds only the
// model-declared keys; the raw response, model identifier and provider label
// are client-injected metadata kept outside Fields so that re-serializing
// content for a later provider call can never leak them.
type Result struct {
	Fields         map[string]any  `json:"fields"`
	DailyForecasts []ForecastEntry `json:"daily_forecasts"`
	RawResponse    string          `json:"raw_response"`
	ModelUsed      string          `json:"model_used"`
	ProviderLabel  string          `json:"provider_label"`
}

// Description returns the model's description text, empty when absent.
func (r *Result) Description() string {
	if s, ok := r.Fields["description"].(string); ok {
		return s
	}
	return ""
}

// parseResult decodes normalized model content. The daily_forecasts key may
// arrive as a mapping keyed by day name or as a sequence of strings; both
// shapes are accepted, preserving document order.
func parseResult(normalized string) (*Result, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(normalized), &fields); err != nil {
		return nil, fmt.Errorf("model did not return valid JSON (%v); content: %s", err, preview(normalized))
	}
	return &Result{
		Fields:         fields,
		DailyForecasts: extractDailyForecasts([]byte(normalized)),
	}, nil
}

// preview bounds how much offending content escapes into error messages.
func preview(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// extractDailyForecasts re-scans the document with a token decoder because
// a map[string]any loses key order.
func extractDailyForecasts(doc []byte) []ForecastEntry {
	dec := json.NewDecoder(bytes.NewReader(doc))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, _ := keyTok.(string)
		if key != "daily_forecasts" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil
			}
			continue
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil
		}
		return decodeForecastValue(raw)
	}
	return nil
}

func decodeForecastValue(raw json.RawMessage) []ForecastEntry {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '{':
		return decodeForecastMapping(trimmed)
	case '[':
		var texts []string
		if err := json.Unmarshal(trimmed, &texts); err != nil {
			return nil
		}
		entries := make([]ForecastEntry, 0, len(texts))
		for _, t := range texts {
			entries = append(entries, ForecastEntry{Text: t})
		}
		return entries
	default:
		return nil
	}
}

func decodeForecastMapping(raw []byte) []ForecastEntry {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil
	}
	var entries []ForecastEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		day, _ := keyTok.(string)
		var text string
		if err := dec.Decode(&text); err != nil {
			return nil
		}
		entries = append(entries, ForecastEntry{Day: day, Text: text})
	}
	return entries
}
