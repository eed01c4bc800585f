package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a failed response ends up in the error.
const maxErrorBody = 1 << 10

// completer sends one prompt to a backend and returns its raw text answer.
type completer func(ctx context.Context, prompt string) (string, error)

// runQuery is the part of Translate every backend shares: normalize, prompt,
// parse the JSON answer and stamp provenance on the result.
func runQuery(ctx context.Context, text, provider, target string, complete completer) (Result, error) {
	query := clipText(NormalizeQuery(text), maxQueryChars)
	if query == "" {
		return Result{}, ErrEmptyQuery
	}
	raw, err := complete(ctx, buildTranslatePrompt(query, target))
	if err != nil {
		return Result{}, err
	}
	payload, err := parseTranslation(raw)
	if err != nil {
		return Result{}, err
	}
	return buildResult(query, provider, target, payload), nil
}

// postJSON posts body to endpoint and decodes the JSON answer into out.
// service prefixes errors so the balloon says which backend failed.
func postJSON(ctx context.Context, client *http.Client, service, endpoint string, header http.Header, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", service, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	for key, values := range header {
		req.Header[key] = values
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s API error: %s (%s)", service, resp.Status, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", service, err)
	}
	return nil
}
