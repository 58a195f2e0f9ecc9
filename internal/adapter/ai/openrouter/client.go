// Package openrouter implements the LLM client port against any
// OpenAI-compatible chat completions API (OpenRouter, OpenAI, local proxies).
package openrouter

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

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/elevice/ai-interviewer/internal/adapter/observability"
	"github.com/elevice/ai-interviewer/internal/config"
	"github.com/elevice/ai-interviewer/internal/domain"
)

// Options configure a single backend.
type Options struct {
	// Name identifies the backend in sessions, logs, and metrics.
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	// Referer and Title are OpenRouter attribution headers; optional.
	Referer string
	Title   string
}

// Client implements domain.LLMClient against a chat completions endpoint.
type Client struct {
	opts Options
	cfg  config.Config
	hc   *http.Client
}

// New constructs a client with sensible timeouts and traced transport.
func New(cfg config.Config, opts Options) *Client {
	return &Client{
		opts: opts,
		cfg:  cfg,
		hc: &http.Client{
			Timeout:   90 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Name identifies the backend.
func (c *Client) Name() string { return c.opts.Name }

func (c *Client) newBackoff(ctx context.Context) backoff.BackOffContext {
	expo := backoff.NewExponentialBackOff()
	maxElapsed, initial, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsed
	expo.InitialInterval = initial
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return backoff.WithContext(expo, ctx)
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Complete calls the chat completions endpoint and returns the message
// content. Transient upstream failures (429, 5xx, transport errors) are
// retried with exponential backoff; the final error is classified onto the
// domain error taxonomy so callers can pick fallbacks.
func (c *Client) Complete(ctx domain.Context, systemPrompt, userPrompt string, jsonMode bool, maxTokens int) (string, error) {
	if c.opts.APIKey == "" {
		return "", fmt.Errorf("op=llm.complete: %w: API key missing for backend %s", domain.ErrInvalidArgument, c.opts.Name)
	}

	body := map[string]any{
		"model":       c.opts.Model,
		"temperature": 0.2,
		"max_tokens":  maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	}
	if jsonMode {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	b, _ := json.Marshal(body)

	var content string
	var rateLimited bool
	op := func() error {
		start := time.Now()
		// Recreate the request each attempt to avoid reusing consumed bodies.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/chat/completions", bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
		req.Header.Set("Content-Type", "application/json")
		if c.opts.Referer != "" {
			req.Header.Set("HTTP-Referer", c.opts.Referer)
		}
		if c.opts.Title != "" {
			req.Header.Set("X-Title", c.opts.Title)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			observability.RecordLLMRequest(c.opts.Name, "transport_error", time.Since(start))
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			observability.RecordLLMRequest(c.opts.Name, "read_error", time.Since(start))
			return err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			rateLimited = true
			observability.RecordLLMRequest(c.opts.Name, "rate_limited", time.Since(start))
			slog.Warn("llm rate limited",
				slog.String("backend", c.opts.Name),
				slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return fmt.Errorf("rate limited: 429")
		case resp.StatusCode >= 500:
			observability.RecordLLMRequest(c.opts.Name, "upstream_error", time.Since(start))
			return fmt.Errorf("upstream status %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			observability.RecordLLMRequest(c.opts.Name, "client_error", time.Since(start))
			return backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 256)))
		}

		var out chatResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			observability.RecordLLMRequest(c.opts.Name, "decode_error", time.Since(start))
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		if out.Error != nil {
			observability.RecordLLMRequest(c.opts.Name, "api_error", time.Since(start))
			return backoff.Permanent(fmt.Errorf("api error: %s", out.Error.Message))
		}
		if len(out.Choices) == 0 {
			observability.RecordLLMRequest(c.opts.Name, "empty", time.Since(start))
			return fmt.Errorf("no choices returned")
		}
		content = out.Choices[0].Message.Content
		observability.RecordLLMRequest(c.opts.Name, "ok", time.Since(start))
		return nil
	}

	if err := backoff.Retry(op, c.newBackoff(ctx)); err != nil {
		return "", c.classify(err, rateLimited)
	}
	return content, nil
}

func (c *Client) classify(err error, rateLimited bool) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("op=llm.complete backend=%s: %w: %v", c.opts.Name, domain.ErrUpstreamTimeout, err)
	case rateLimited:
		return fmt.Errorf("op=llm.complete backend=%s: %w: %v", c.opts.Name, domain.ErrUpstreamRateLimit, err)
	default:
		return fmt.Errorf("op=llm.complete backend=%s: %w: %v", c.opts.Name, domain.ErrGeneration, err)
	}
}

// Healthy probes the models listing endpoint with a short deadline.
func (c *Client) Healthy(ctx domain.Context) error {
	if c.opts.APIKey == "" {
		return fmt.Errorf("op=llm.healthy: %w: API key missing for backend %s", domain.ErrInvalidArgument, c.opts.Name)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("op=llm.healthy backend=%s: %w", c.opts.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("op=llm.healthy backend=%s: upstream status %d", c.opts.Name, resp.StatusCode)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
