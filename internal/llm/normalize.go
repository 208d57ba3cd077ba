package llm

import (
	"regexp"
	"strings"
)

// Model output is untrusted: reasoning models wrap JSON in <think> blocks,
// some gateways prepend a "temperature:" line, and many models fence the
// payload in Markdown. Normalization is an ordered list of passes, each
// independently testable, applied in a fixed pipeline.

type normalizePass func(string) string

var normalizePasses = []normalizePass{
	stripThinkBlock,
	stripTemperaturePrefix,
	stripCodeFence,
}

var thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Normalize prepares raw model content for JSON parsing.
func Normalize(raw string) string {
	content := strings.TrimSpace(raw)
	for _, pass := range normalizePasses {
		content = strings.TrimSpace(pass(content))
	}
	return content
}

func stripThinkBlock(s string) string {
	return thinkBlockRe.ReplaceAllString(s, "")
}

func stripTemperaturePrefix(s string) string {
	if !strings.HasPrefix(s, "temperature:") {
		return s
	}
	_, rest, _ := strings.Cut(s, "temperature:")
	return rest
}

func stripCodeFence(s string) string {
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return s
}
