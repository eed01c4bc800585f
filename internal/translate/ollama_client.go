package translate

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

type ollamaClient struct {
	host    string
	model   string
	target  string
	client  *http.Client
	limiter *rate.Limiter
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *ollamaClient) Name() string {
	return fmt.Sprintf("Ollama (%s)", c.model)
}

func (c *ollamaClient) Target() string {
	return c.target
}

func (c *ollamaClient) Translate(ctx context.Context, text string) (Result, error) {
	return runQuery(ctx, text, c.Name(), c.target, c.generate)
}

// generate asks for a single non-streamed JSON object.
func (c *ollamaClient) generate(ctx context.Context, prompt string) (string, error) {
	if err := wait(ctx, c.limiter); err != nil {
		return "", err
	}
	var out ollamaResponse
	req := ollamaRequest{Model: c.model, Prompt: prompt, Format: "json"}
	if err := postJSON(ctx, c.client, "ollama", c.host+"/api/generate", nil, req, &out); err != nil {
		return "", err
	}
	answer := strings.TrimSpace(out.Response)
	if answer == "" {
		return "", ErrEmptyResponse
	}
	return answer, nil
}
