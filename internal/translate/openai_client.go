package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

const openAISystemPrompt = "You are a concise translation assistant."

type openAIClient struct {
	apiKey  string
	model   string
	base    string
	target  string
	client  *http.Client
	limiter *rate.Limiter
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *openAIClient) Name() string {
	return fmt.Sprintf("OpenAI (%s)", c.model)
}

func (c *openAIClient) Target() string {
	return c.target
}

func (c *openAIClient) Translate(ctx context.Context, text string) (Result, error) {
	return runQuery(ctx, text, c.Name(), c.target, c.chat)
}

func (c *openAIClient) chat(ctx context.Context, prompt string) (string, error) {
	if err := wait(ctx, c.limiter); err != nil {
		return "", err
	}
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: openAISystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
	}
	header := http.Header{"Authorization": {"Bearer " + c.apiKey}}
	var out chatResponse
	if err := postJSON(ctx, c.client, "openai", c.base+"/chat/completions", header, req, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai API returned no choices")
	}
	answer := strings.TrimSpace(out.Choices[0].Message.Content)
	if answer == "" {
		return "", ErrEmptyResponse
	}
	return answer, nil
}
