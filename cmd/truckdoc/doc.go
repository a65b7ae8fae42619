// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Truckdoc is a Telegram bot that shows active diagnostic trouble codes of fleet
trucks tracked in Samsara.

Send the bot a truck number, license plate or any external ID exactly as it
appears in Samsara. The bot finds the vehicle, lists up to 20 of its active
fault codes together with the check engine lamp state and, if a text
generation provider is configured, asks it to explain the codes in plain
language.

# Usage

	$ truckdoc [flags...]

Truckdoc receives updates through a webhook at /telegram. In production mode
(-prod) it registers the webhook with Telegram on startup using the HOST
environment variable.

# Endpoints

	POST /telegram   Telegram webhook. Always responds with {"ok": true}.
	GET  /health     Health checks.
	GET  /metrics    Prometheus metrics.
	GET  /debug/logs Recent log lines, then a live stream.

# Environment

	TELEGRAM_BOT_TOKEN           Telegram Bot API token.
	SAMSARA_API_KEY              Samsara API token.
	GEMINI_API_KEY               Gemini API key. Enables advice.
	GEMINI_MODEL                 Gemini model (default gemini-1.5-flash).
	OPENAI_API_KEY               OpenAI API key. Enables advice.
	OPENAI_MODEL                 OpenAI model (default gpt-4o-mini).
	OPENROUTER_API_KEY           OpenRouter API key. Enables advice.
	OPENROUTER_MODEL             OpenRouter model (default openai/gpt-4o-mini).
	OPENROUTER_REFERER           Sent to OpenRouter as HTTP-Referer.
	OPENROUTER_TITLE             Sent to OpenRouter as X-Title.
	LANGUAGE_MENU                If "true", /start offers a reply language choice.
	DATABASE_URL                 PostgreSQL URL for chat preferences. In memory if unset.
	OTEL_EXPORTER_OTLP_ENDPOINT  OTLP gRPC endpoint for traces. Tracing is off if unset.
	HOST                         Public host name, used in production mode.
	PORT                         Port to listen on, overrides -addr.

Advice providers are tried in the order Gemini, OpenAI, OpenRouter; the first
one to answer wins. Variables can also be loaded from a file passed with
-env-file; the process environment takes precedence.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/truckdoc/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
