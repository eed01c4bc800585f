package translate

import (
	"encoding/json"
	"strings"
)

func clipText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func buildTranslatePrompt(text, target string) string {
	var b strings.Builder
	b.WriteString("You are a precise bilingual dictionary. Translate the text below into ")
	b.WriteString(target)
	b.WriteString(".\n")
	b.WriteString("Reply with a single JSON object and nothing else:\n")
	b.WriteString(`{"translation": "<translation>", "phonetic": "<pronunciation of the source, empty for sentences>", "explains": ["<short sense or usage note>"]}`)
	b.WriteString("\nKeep explains to at most 4 entries of <=12 words.\n\n")
	b.WriteString("Text: ")
	b.WriteString(text)
	return b.String()
}

type translationPayload struct {
	Translation string   `json:"translation"`
	Phonetic    string   `json:"phonetic"`
	Explains    []string `json:"explains"`
}

// parseTranslation reads the model reply. Replies that are not JSON are used
// verbatim as the translation.
func parseTranslation(raw string) (translationPayload, error) {
	raw = stripFences(strings.TrimSpace(raw))
	if raw == "" {
		return translationPayload{}, ErrEmptyResponse
	}

	candidates := []string{raw}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			candidates = append(candidates, raw[start:end+1])
		}
	}
	for _, candidate := range candidates {
		var payload translationPayload
		if err := json.Unmarshal([]byte(candidate), &payload); err == nil && strings.TrimSpace(payload.Translation) != "" {
			return sanitizePayload(payload), nil
		}
	}
	return translationPayload{Translation: raw}, nil
}

func sanitizePayload(p translationPayload) translationPayload {
	p.Translation = strings.TrimSpace(p.Translation)
	p.Phonetic = strings.TrimSpace(p.Phonetic)
	explains := make([]string, 0, len(p.Explains))
	for _, item := range p.Explains {
		item = strings.TrimSpace(item)
		if item != "" {
			explains = append(explains, item)
		}
	}
	p.Explains = explains
	return p
}

func stripFences(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```")
	if nl := strings.Index(raw, "\n"); nl >= 0 {
		raw = raw[nl+1:]
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

func buildResult(query, provider, target string, p translationPayload) Result {
	return Result{
		Query:       query,
		Translation: p.Translation,
		Phonetic:    p.Phonetic,
		Explains:    p.Explains,
		Provider:    provider,
		Target:      target,
	}
}
