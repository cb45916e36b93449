// Package openai provides the remote generation client: a chat-completions
// HTTP call with sequential retries, exponential backoff with jitter, and a
// total deadline supplied by the caller's context. The API key is held in
// memory only; it is never logged and never included in error messages.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"rcommit/cli/internal/erruser"
	"rcommit/cli/internal/prompt"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
	// maxResponseBody bounds how much of an error body is read for diagnostics.
	maxResponseBody = 64 * 1024
)

// Client calls the chat-completions API. Zero value is not valid; use NewClient.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
	backoffBase time.Duration
	temperature float64
}

// Options configures optional client behavior. Zero values select defaults.
type Options struct {
	// HTTPClient overrides the transport (tests use httptest servers).
	HTTPClient *http.Client
	// MaxAttempts bounds the total number of tries, including the first.
	MaxAttempts int
	// BackoffBase is the first retry delay; each retry doubles it.
	BackoffBase time.Duration
	// Temperature is passed through to the API.
	Temperature float64
}

// NewClient builds a generation client. baseURL is the API root (e.g.
// https://api.openai.com/v1); empty selects the default. apiKey must be
// non-empty; the caller validates presence before construction.
func NewClient(baseURL, apiKey string, opts Options) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	backoffBase := opts.BackoffBase
	if backoffBase <= 0 {
		backoffBase = defaultBackoffBase
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		httpClient:  httpClient,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		temperature: opts.Temperature,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_completion_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the composed request and returns the raw candidate text.
// Transient failures (network errors, HTTP 429/5xx) are retried with
// exponential backoff and jitter, strictly sequentially, reusing the
// identical body; non-retryable failures surface immediately. The caller's
// context deadline bounds the total wall clock including backoff delays.
func (c *Client) Generate(ctx context.Context, req prompt.Request) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: req.Model.RemoteName,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: c.temperature,
		MaxTokens:   req.Model.MaxOutputTokens,
	})
	if err != nil {
		return "", erruser.New(erruser.KindRejected, "Could not encode the generation request.", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleepBackoff(ctx, attempt-1); err != nil {
				return "", err
			}
		}
		text, retryable, err := c.attempt(ctx, body)
		if err == nil {
			return text, nil
		}
		if ctxErr := timeoutOrCancel(ctx); ctxErr != nil {
			return "", ctxErr
		}
		if !retryable {
			return "", err
		}
		log.Debug().Int("attempt", attempt).Int("max", c.maxAttempts).Msg("generation attempt failed; will retry")
		lastErr = err
	}
	return "", erruser.New(erruser.KindTransient,
		fmt.Sprintf("The generation service stayed unavailable after %d attempts.", c.maxAttempts), lastErr)
}

// attempt performs one request. retryable reports whether the failure is
// transient (network error, 429, 5xx).
func (c *Client) attempt(ctx context.Context, body []byte) (text string, retryable bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, erruser.New(erruser.KindRejected, "Could not build the generation request.", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", true, erruser.New(erruser.KindTransient, "Could not reach the generation service.", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", true, erruser.New(erruser.KindTransient, "Could not read the service response.", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return parseText(data)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", true, erruser.New(erruser.KindTransient,
			fmt.Sprintf("The generation service returned HTTP %d.", resp.StatusCode),
			errors.New(serviceMessage(data)))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", false, erruser.New(erruser.KindAuth,
			"The generation service rejected the credential; check OPENAI_API_KEY.",
			errors.New(serviceMessage(data)))
	default:
		return "", false, erruser.New(erruser.KindRejected,
			fmt.Sprintf("The generation service rejected the request (HTTP %d).", resp.StatusCode),
			errors.New(serviceMessage(data)))
	}
}

// parseText extracts the candidate text from a 200 response.
func parseText(data []byte) (string, bool, error) {
	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", false, erruser.New(erruser.KindMalformedResponse, "The service response is not valid JSON.", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", false, erruser.New(erruser.KindMalformedResponse, "The service response has no generated text.", nil)
	}
	return parsed.Choices[0].Message.Content, false, nil
}

// serviceMessage extracts the error message from an API error body for the
// Details line; falls back to a trimmed body snippet.
func serviceMessage(data []byte) string {
	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	if s == "" {
		s = "empty response body"
	}
	return s
}

// sleepBackoff waits the exponential delay for the given completed attempt
// count, with jitter in [delay/2, delay). Aborts early when the context ends.
func (c *Client) sleepBackoff(ctx context.Context, completed int) error {
	delay := c.backoffBase << (completed - 1)
	delay = delay/2 + time.Duration(rand.Int63n(int64(delay/2)+1))
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		if err := timeoutOrCancel(ctx); err != nil {
			return err
		}
		return erruser.New(erruser.KindTimeout, "Generation was cancelled.", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// timeoutOrCancel maps a finished context to the structured taxonomy: the
// deadline maps to KindTimeout, explicit cancellation to KindTimeout as well
// (the run is over either way), and a live context to nil.
func timeoutOrCancel(ctx context.Context) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return erruser.New(erruser.KindTimeout, "Generation exceeded the time budget.", ctx.Err())
	case errors.Is(ctx.Err(), context.Canceled):
		return erruser.New(erruser.KindTimeout, "Generation was cancelled.", ctx.Err())
	default:
		return nil
	}
}
