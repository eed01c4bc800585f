// Package translate looks up translations of short text through an LLM
// backend (Ollama or an OpenAI compatible API), with optional rate limiting
// and a SQLite result cache.
package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultOllamaHost  = "http://localhost:11434"
	defaultOllamaModel = "ministral-3:latest"
	defaultOpenAIBase  = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultTarget      = "Chinese"
	// Lookups are short; anything longer is clipped before prompting.
	maxQueryChars = 2_000
)

const defaultHTTPTimeout = 60 * time.Second

var (
	// ErrEmptyQuery is returned when the text to translate is blank.
	ErrEmptyQuery = errors.New("nothing to translate")
	// ErrEmptyResponse is returned when the backend answered with no text.
	ErrEmptyResponse = errors.New("backend returned an empty translation")
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config describes how to build a translation client.
type Config struct {
	Provider       string
	Model          string
	Endpoint       string
	APIKey         string
	TargetLanguage string
	// RatePerSecond caps outgoing requests; zero disables the limiter.
	RatePerSecond float64
	HTTPClient    *http.Client
}

// Result is one translated lookup.
type Result struct {
	Query       string   `json:"query"`
	Translation string   `json:"translation"`
	Phonetic    string   `json:"phonetic,omitempty"`
	Explains    []string `json:"explains,omitempty"`
	Provider    string   `json:"provider"`
	Target      string   `json:"target"`
}

// Client translates text.
type Client interface {
	Translate(ctx context.Context, text string) (Result, error)
	Name() string
	Target() string
}

// NewFromConfig builds a client from cfg, filling blanks from the
// environment (PEEK_PROVIDER, PEEK_TARGET_LANG, OLLAMA_HOST, OLLAMA_MODEL,
// OPENAI_API_KEY, OPENAI_BASE_URL, OPENAI_MODEL).
func NewFromConfig(cfg Config) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(firstNonEmpty(cfg.Provider, os.Getenv("PEEK_PROVIDER"), ProviderOllama)))
	target := firstNonEmpty(cfg.TargetLanguage, os.Getenv("PEEK_TARGET_LANG"), defaultTarget)
	limiter := newLimiter(cfg.RatePerSecond)
	httpClient := pickHTTPClient(cfg.HTTPClient)

	switch provider {
	case ProviderOllama:
		host := firstNonEmpty(cfg.Endpoint, os.Getenv("OLLAMA_HOST"), defaultOllamaHost)
		return &ollamaClient{
			host:    strings.TrimRight(host, "/"),
			model:   firstNonEmpty(cfg.Model, os.Getenv("OLLAMA_MODEL"), defaultOllamaModel),
			target:  target,
			client:  httpClient,
			limiter: limiter,
		}, nil
	case ProviderOpenAI:
		key := firstNonEmpty(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("openai provider needs an API key (set OPENAI_API_KEY)")
		}
		base := firstNonEmpty(cfg.Endpoint, os.Getenv("OPENAI_BASE_URL"), defaultOpenAIBase)
		return &openAIClient{
			apiKey:  key,
			base:    strings.TrimRight(base, "/"),
			model:   firstNonEmpty(cfg.Model, os.Getenv("OPENAI_MODEL"), defaultOpenAIModel),
			target:  target,
			client:  httpClient,
			limiter: limiter,
		}, nil
	default:
		return nil, fmt.Errorf("unknown translation provider %q", provider)
	}
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// NormalizeQuery trims and collapses whitespace so equivalent lookups share a
// cache entry.
func NormalizeQuery(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
