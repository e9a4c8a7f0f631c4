package prompt

import (
	"fmt"
	"strings"

	"thumbsmith/internal/domain"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
	openAIProviderName = "openai"
)

// splitConcepts parses a multi-concept completion into exactly n concepts.
func splitConcepts(raw, separator, suffix string, n int) []string {
	var out []string
	for _, part := range strings.Split(trimCodeFence(raw), separator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return padConcepts(out, n, suffix)
}

// padConcepts repeats the last concept with suffix until there are n, then truncates to n.
func padConcepts(concepts []string, n int, suffix string) []string {
	if len(concepts) == 0 {
		return nil
	}
	for len(concepts) < n {
		concepts = append(concepts, concepts[len(concepts)-1]+suffix)
	}
	return concepts[:n]
}

func parseConcepts(raw string, t *Templates, n int, provider string) ([]string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: %s returned an empty completion", domain.ErrProviderFailure, provider)
	}
	if n == 1 {
		return []string{trimCodeFence(text)}, nil
	}
	concepts := splitConcepts(text, t.Separator, t.AlternativeSuffix, n)
	if len(concepts) == 0 {
		return nil, fmt.Errorf("%w: %s returned no concepts", domain.ErrProviderFailure, provider)
	}
	return concepts, nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```text")
	trimmed = strings.TrimPrefix(trimmed, "```markdown")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
