// Package real implements the AI client port against an OpenRouter-compatible
// chat completions API.
package real

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	ai "github.com/fairyhunter13/excel-interviewer/internal/adapter/ai"
	"github.com/fairyhunter13/excel-interviewer/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/excel-interviewer/internal/adapter/observability"
	"github.com/fairyhunter13/excel-interviewer/internal/config"
	"github.com/fairyhunter13/excel-interviewer/internal/domain"
)

// Client implements domain.AIClient over the OpenRouter chat completions API.
// Each ChatJSON call is a single attempt: the retry-with-fallback policy is
// owned by the interview core, not the transport.
type Client struct {
	cfg     config.Config
	hc      *http.Client
	cleaner *ai.ResponseCleaner
	tokens  *tokencount.Counter
}

// New constructs a client with a timeout generous enough for slow models.
func New(cfg config.Config) *Client {
	return &Client{
		cfg:     cfg,
		hc: &http.Client{
			Timeout:   90 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cleaner: ai.NewResponseCleaner(),
		tokens:  tokencount.NewCounter(),
	}
}

// ChatJSON sends the prompt pair and returns cleaned JSON text.
func (c *Client) ChatJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.cfg.OpenRouterAPIKey == "" {
		return "", fmt.Errorf("%w: OPENROUTER_API_KEY missing", domain.ErrNotConfigured)
	}

	promptTokens := c.tokens.CountTokens(c.cfg.ChatModel, systemPrompt+userPrompt)
	observability.AIPromptTokens.WithLabelValues("openrouter", "chat").Observe(float64(promptTokens))
	slog.Debug("calling chat completions",
		slog.String("model", c.cfg.ChatModel),
		slog.Int("prompt_tokens", promptTokens),
		slog.Int("max_tokens", maxTokens))

	body := map[string]any{
		"model":       c.cfg.ChatModel,
		"temperature": 0.3,
		"max_tokens":  maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", domain.ErrInternal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenRouterBaseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.OpenRouterReferer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.OpenRouterReferer)
	}
	if c.cfg.OpenRouterTitle != "" {
		req.Header.Set("X-Title", c.cfg.OpenRouterTitle)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	observability.AIRequestsTotal.WithLabelValues("openrouter", "chat").Inc()
	observability.AIRequestDuration.WithLabelValues("openrouter", "chat").Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: chat completions: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("chat completions: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(bodyBytes)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		slog.Warn("ai provider non-2xx",
			slog.String("provider", "openrouter"),
			slog.Int("status", resp.StatusCode),
			slog.String("model", c.cfg.ChatModel),
			slog.String("body", snippet))
		return "", fmt.Errorf("chat status %d", resp.StatusCode)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return "", fmt.Errorf("%w: decode chat response: %v", domain.ErrSchemaInvalid, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", domain.ErrSchemaInvalid)
	}

	cleaned, err := c.cleaner.CleanJSONResponse(out.Choices[0].Message.Content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	return cleaned, nil
}
