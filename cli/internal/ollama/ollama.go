// Package ollama provides the local generation backend: the same Generate
// contract as the remote client, served by an Ollama instance. No credential
// is required; the base URL comes from config (or OLLAMA_HOST).
package ollama

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	api "github.com/ollama/ollama/api"

	"rcommit/cli/internal/erruser"
	"rcommit/cli/internal/prompt"
)

// Client generates text against a local Ollama server. Zero value is not
// valid; use NewClient.
type Client struct {
	api         *api.Client
	temperature float64
}

// NewClient builds a local generation client. baseURL is the Ollama API root
// (e.g. http://localhost:11434); empty falls back to OLLAMA_HOST or the
// default local address via the library's environment lookup.
func NewClient(baseURL string, temperature float64) (*Client, error) {
	if baseURL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, erruser.New(erruser.KindConfiguration, "Could not configure the local Ollama client.", err)
		}
		return &Client{api: c, temperature: temperature}, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, erruser.New(erruser.KindConfiguration, "Invalid Ollama base URL.", err)
	}
	return &Client{api: api.NewClient(u, http.DefaultClient), temperature: temperature}, nil
}

// Generate sends the composed request to the local model and returns the raw
// candidate text. The context bounds the call; Ollama handles its own
// queueing, so no retry loop is layered on top. A connection failure is
// reported as transient so the orchestrator message stays uniform.
func (c *Client) Generate(ctx context.Context, req prompt.Request) (string, error) {
	var out strings.Builder
	err := c.api.Chat(ctx, &api.ChatRequest{
		Model: req.Model.LocalName,
		Messages: []api.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Options: map[string]any{
			"temperature": c.temperature,
			"num_predict": req.Model.MaxOutputTokens,
		},
	}, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", erruser.New(erruser.KindTimeout, "Generation exceeded the time budget.", err)
		}
		return "", erruser.New(erruser.KindTransient, "Could not reach the local Ollama server.", err)
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", erruser.New(erruser.KindMalformedResponse, "The local model returned no text.", nil)
	}
	return out.String(), nil
}
