// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package advisory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"go.astrophena.name/truckdoc/internal/api/openai"
)

// Generation parameters shared by all providers.
const (
	maxTokens   = 600
	temperature = 0.3
)

// ErrNoAPIKey is returned by providers that have no API key.
var ErrNoAPIKey = errors.New("advisory: API key is not set")

// GeminiProvider generates text with the Gemini API.
type GeminiProvider struct {
	APIKey string
	// Model defaults to DefaultGeminiModel.
	Model string
	// HTTPClient is an optional HTTP client used by the Gemini SDK.
	HTTPClient *http.Client
}

// Name implements [Provider].
func (p *GeminiProvider) Name() string { return "gemini" }

// Generate implements [Provider].
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.APIKey == "" {
		return "", ErrNoAPIKey
	}

	opts := []option.ClientOption{option.WithAPIKey(p.APIKey)}
	if p.HTTPClient != nil {
		// The SDK uses a caller-supplied client as is and drops the key, so
		// the client has to carry it.
		hc := *p.HTTPClient
		hc.Transport = &apiKeyTransport{key: p.APIKey, base: hc.Transport}
		opts = append(opts, option.WithHTTPClient(&hc))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("gemini: creating client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(cmp.Or(p.Model, DefaultGeminiModel))
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(maxTokens)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return geminiText(resp)
}

// apiKeyTransport authenticates requests to the Gemini API.
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("x-goog-api-key", t.key)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errEmptyResponse
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// ChatProvider generates text with an OpenAI-compatible chat completion API.
type ChatProvider struct {
	// Label is returned by Name.
	Label  string
	Model  string
	Client *openai.Client
}

// Name implements [Provider].
func (p *ChatProvider) Name() string { return p.Label }

// Generate implements [Provider].
func (p *ChatProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.Client == nil || p.Client.APIKey == "" {
		return "", ErrNoAPIKey
	}
	resp, err := p.Client.ChatCompletion(ctx, openai.ChatRequest{
		Model: p.Model,
		Messages: []openai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.Label, err)
	}
	return resp.Text(), nil
}
