// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package advisory asks text generation models to explain diagnostic trouble
// codes in plain language.
//
// Advice is best-effort: every failure is logged and swallowed, and the reply
// is sent without it.
package advisory

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"go.astrophena.name/truckdoc/internal/api/openai"
	"go.astrophena.name/truckdoc/internal/fleet"
	"go.astrophena.name/truckdoc/internal/i18n"
	"go.astrophena.name/truckdoc/internal/metrics"
	"go.astrophena.name/truckdoc/internal/telemetry"
)

// Provider generates text for a prompt.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	// Generate returns the model answer to prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Request describes the faults to explain.
type Request struct {
	Vehicle fleet.Vehicle
	// Label is the truck number as the user typed it.
	Label  string
	Faults []fleet.FaultRecord
	Lang   i18n.Tag
}

// Chain tries providers in order until one returns a non-empty answer.
type Chain struct {
	Providers []Provider
	Logger    *zap.Logger
}

// Summarize returns advice for r or an empty string. Providers aren't called
// when r has no faults.
func (c *Chain) Summarize(ctx context.Context, r Request) string {
	if c == nil || len(r.Faults) == 0 || len(c.Providers) == 0 {
		return ""
	}
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}

	prompt := BuildPrompt(r)
	for _, p := range c.Providers {
		ctx, span := telemetry.StartAdvisorySpan(ctx, p.Name())
		text, err := p.Generate(ctx, prompt)
		telemetry.End(span, err)

		if err != nil {
			metrics.RecordAdvisory(p.Name(), "error")
			log.Warn("advisory provider failed", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		if text = strings.TrimSpace(text); text == "" {
			metrics.RecordAdvisory(p.Name(), "empty")
			log.Debug("advisory provider returned nothing", zap.String("provider", p.Name()))
			continue
		}
		metrics.RecordAdvisory(p.Name(), "ok")
		return text
	}
	return ""
}

// Config configures the providers of a [Chain]. A provider without an API key
// is left out.
type Config struct {
	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey string
	OpenAIModel  string

	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterReferer string
	OpenRouterTitle   string

	HTTPClient *http.Client
	Scrubber   *strings.Replacer
}

// Default models.
const (
	DefaultGeminiModel     = "gemini-1.5-flash"
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultOpenRouterModel = "openai/gpt-4o-mini"
)

// NewChain builds a Chain of Gemini, OpenAI and OpenRouter providers, in that
// order.
func NewChain(c Config, logger *zap.Logger) *Chain {
	chain := &Chain{Logger: logger}
	if c.GeminiAPIKey != "" {
		chain.Providers = append(chain.Providers, &GeminiProvider{
			APIKey:     c.GeminiAPIKey,
			Model:      c.GeminiModel,
			HTTPClient: c.HTTPClient,
		})
	}
	if c.OpenAIAPIKey != "" {
		chain.Providers = append(chain.Providers, &ChatProvider{
			Label: "openai",
			Model: cmp.Or(c.OpenAIModel, DefaultOpenAIModel),
			Client: &openai.Client{
				APIKey:     c.OpenAIAPIKey,
				BaseURL:    openai.OpenAIBaseURL,
				HTTPClient: c.HTTPClient,
				Scrubber:   c.Scrubber,
			},
		})
	}
	if c.OpenRouterAPIKey != "" {
		headers := make(map[string]string)
		if c.OpenRouterReferer != "" {
			headers["HTTP-Referer"] = c.OpenRouterReferer
		}
		if c.OpenRouterTitle != "" {
			headers["X-Title"] = c.OpenRouterTitle
		}
		chain.Providers = append(chain.Providers, &ChatProvider{
			Label: "openrouter",
			Model: cmp.Or(c.OpenRouterModel, DefaultOpenRouterModel),
			Client: &openai.Client{
				APIKey:     c.OpenRouterAPIKey,
				BaseURL:    openai.OpenRouterBaseURL,
				Headers:    headers,
				HTTPClient: c.HTTPClient,
				Scrubber:   c.Scrubber,
			},
		})
	}
	return chain
}

// errEmptyResponse is returned by providers whose response has no text.
var errEmptyResponse = errors.New("advisory: empty response")
