// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package model wraps the Claude Messages API behind a single text-generation
// operation. Stages depend on the Client interface so tests can supply mocks.
// Implements: prd002-model (R1-R4);
//
//	docs/ARCHITECTURE § Model Client.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// ErrUnavailable marks transport or auth failures. Fatal wherever it occurs
// during planning or synthesis; research degrades instead (R2.1).
var ErrUnavailable = errors.New("model unavailable")

// ErrEmptyResponse marks calls where the model responded but the content is
// unusable. Always recoverable via a stage-specific fallback (R2.2). A call
// that exceeds its bounded timeout is reported the same way.
var ErrEmptyResponse = errors.New("model returned no usable content")

// IsRecoverable reports whether a generation error should be handled by the
// caller's fallback rather than aborting the run.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrEmptyResponse)
}

// GenParams are per-call generation parameters.
type GenParams struct {
	MaxTokens   int
	Temperature float64
}

// Client is the single logical operation every stage needs.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenParams) (string, error)
}

// messagesURL is the Claude API endpoint. Package-level var for test
// substitution.
var messagesURL = "https://api.anthropic.com/v1/messages"

// ClaudeClient calls the Claude Messages API. Rate-limited calls are retried
// with backoff (R3.1); no other retry logic, fallbacks belong to callers.
type ClaudeClient struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// NewClaudeClient builds a client from model configuration.
func NewClaudeClient(cfg types.ModelConfig) *ClaudeClient {
	return &ClaudeClient{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	}
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Generate sends one prompt and returns the generated text (R1.1).
func (c *ClaudeClient) Generate(ctx context.Context, prompt string, params GenParams) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	reqBody := claudeRequest{
		Model:       c.Model,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, messagesURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		// A bounded-timeout expiry is handled like an empty response so a
		// single stuck call cannot hang the run (R4.1).
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("model call timed out: %w", ErrEmptyResponse)
		}
		return "", fmt.Errorf("calling model API: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("model API returned %d: %s: %w", resp.StatusCode, string(body), ErrUnavailable)
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding model response: %v: %w", err, ErrEmptyResponse)
	}

	for _, block := range cResp.Content {
		if block.Type != "text" {
			continue
		}
		text := strings.TrimSpace(block.Text)
		if text == "" {
			break
		}
		return text, nil
	}

	return "", fmt.Errorf("no text content in model response: %w", ErrEmptyResponse)
}
