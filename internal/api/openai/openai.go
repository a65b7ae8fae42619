// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package openai implements a client for OpenAI-compatible chat completion
// APIs, such as OpenAI itself and OpenRouter.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.astrophena.name/truckdoc/internal/request"
)

const (
	// OpenAIBaseURL is the OpenAI API endpoint.
	OpenAIBaseURL = "https://api.openai.com/v1"
	// OpenRouterBaseURL is the OpenRouter API endpoint.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// ErrNoAPIKey is returned when the client has no API key.
var ErrNoAPIKey = errors.New("openai: API key is not set")

// Client holds configuration for interacting with a chat completion API.
type Client struct {
	// APIKey is the API token used for authentication.
	APIKey string
	// BaseURL is the API endpoint, without the trailing "/chat/completions".
	// Defaults to OpenAIBaseURL.
	BaseURL string
	// Headers are additional headers sent with every request, for example
	// OpenRouter's attribution headers.
	Headers map[string]string
	// HTTPClient is an optional HTTP client to use for requests. Defaults to
	// request.DefaultClient.
	HTTPClient *http.Client
	// Scrubber is an optional strings.Replacer that scrubs unwanted data from
	// error messages.
	Scrubber *strings.Replacer
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse is a chat completion response.
type ChatResponse struct {
	Choices []Choice `json:"choices"`
}

// Choice is one of the completions returned.
type Choice struct {
	Message Message `json:"message"`
}

// Text returns the trimmed content of the first choice, or an empty string.
func (r ChatResponse) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Choices[0].Message.Content)
}

// ChatCompletion sends a chat completion request.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if c.APIKey == "" {
		return ChatResponse{}, ErrNoAPIKey
	}
	baseURL := OpenAIBaseURL
	if c.BaseURL != "" {
		baseURL = strings.TrimSuffix(c.BaseURL, "/")
	}
	return request.Make[ChatResponse](ctx, request.Params{
		Method:     http.MethodPost,
		URL:        baseURL + "/chat/completions",
		Bearer:     c.APIKey,
		Headers:    c.Headers,
		Body:       req,
		HTTPClient: c.HTTPClient,
		Scrubber:   c.Scrubber,
	})
}
