// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go.astrophena.name/truckdoc/internal/advisory"
	"go.astrophena.name/truckdoc/internal/api/samsara"
	"go.astrophena.name/truckdoc/internal/bot"
	"go.astrophena.name/truckdoc/internal/cli"
	"go.astrophena.name/truckdoc/internal/fleet"
	"go.astrophena.name/truckdoc/internal/logger"
	"go.astrophena.name/truckdoc/internal/store"
	"go.astrophena.name/truckdoc/internal/syncx"
	"go.astrophena.name/truckdoc/internal/telegram"
	"go.astrophena.name/truckdoc/internal/telemetry"
	"go.astrophena.name/truckdoc/internal/version"
	"go.astrophena.name/truckdoc/internal/web"
)

func main() { cli.Main(new(engine)) }

func (e *engine) Flags(fs *flag.FlagSet) {
	fs.StringVar(&e.addr, "addr", "localhost:3000", "Listen on `host:port`.")
	fs.BoolVar(&e.debug, "debug", false, "Enable debug logging.")
	fs.StringVar(&e.envFile, "env-file", "", "Load environment variables from `file`.")
	fs.BoolVar(&e.prod, "prod", false, "Run in production mode.")
}

func (e *engine) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	getenv := env.Getenv
	if e.envFile != "" {
		vars, err := godotenv.Read(e.envFile)
		if err != nil {
			return fmt.Errorf("reading environment file: %w", err)
		}
		getenv = func(key string) string {
			return cmp.Or(env.Getenv(key), vars[key])
		}
	}

	// Load configuration from environment variables.
	e.tgToken = cmp.Or(e.tgToken, getenv("TELEGRAM_BOT_TOKEN"))
	e.samsaraKey = cmp.Or(e.samsaraKey, getenv("SAMSARA_API_KEY"))
	e.advisory.GeminiAPIKey = cmp.Or(e.advisory.GeminiAPIKey, getenv("GEMINI_API_KEY"))
	e.advisory.GeminiModel = cmp.Or(e.advisory.GeminiModel, getenv("GEMINI_MODEL"))
	e.advisory.OpenAIAPIKey = cmp.Or(e.advisory.OpenAIAPIKey, getenv("OPENAI_API_KEY"))
	e.advisory.OpenAIModel = cmp.Or(e.advisory.OpenAIModel, getenv("OPENAI_MODEL"))
	e.advisory.OpenRouterAPIKey = cmp.Or(e.advisory.OpenRouterAPIKey, getenv("OPENROUTER_API_KEY"))
	e.advisory.OpenRouterModel = cmp.Or(e.advisory.OpenRouterModel, getenv("OPENROUTER_MODEL"))
	e.advisory.OpenRouterReferer = cmp.Or(e.advisory.OpenRouterReferer, getenv("OPENROUTER_REFERER"))
	e.advisory.OpenRouterTitle = cmp.Or(e.advisory.OpenRouterTitle, getenv("OPENROUTER_TITLE"))
	e.languageMenu = e.languageMenu || parseBool(getenv("LANGUAGE_MENU"))
	e.databaseURL = cmp.Or(e.databaseURL, getenv("DATABASE_URL"))
	e.otlpEndpoint = cmp.Or(e.otlpEndpoint, getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	e.host = cmp.Or(e.host, getenv("HOST"))
	if port := getenv("PORT"); port != "" {
		e.addr = ":" + port
	}

	e.stderr = env.Stderr

	// Initialize internal state.
	if err := e.init.Get(func() error {
		return e.doInit(ctx)
	}); err != nil {
		return err
	}
	defer e.close()

	// Used in tests.
	if e.noServerStart {
		return nil
	}

	// If running in production mode, set the webhook in Telegram Bot API.
	if e.prod {
		if err := e.setWebhook(ctx); err != nil {
			return err
		}
		e.logger.Info("running in production mode")
	} else {
		e.logger.Info("running in development mode")
	}

	return web.ListenAndServe(ctx, &web.ListenAndServeConfig{
		Addr:   e.addr,
		Mux:    e.mux,
		Logger: e.logger,
		Ready:  e.ready,
	})
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

type engine struct {
	init syncx.Lazy[error] // main initialization

	// initialized by doInit
	bot             *bot.Bot
	logStream       logger.Streamer
	logger          *zap.Logger
	mux             *http.ServeMux
	scrubber        *strings.Replacer
	shutdownTracing func(context.Context) error
	store           store.Store
	tg              *telegram.Client

	// configuration, read-only after initialization
	addr         string
	advisory     advisory.Config
	databaseURL  string
	debug        bool
	envFile      string
	host         string
	httpc        *http.Client
	languageMenu bool
	otlpEndpoint string
	prod         bool
	samsaraKey   string
	samsaraURL   string
	stderr       io.Writer
	tgToken      string
	// for tests
	noServerStart bool
	ready         func() // see web.ListenAndServeConfig.Ready
}

const (
	logLineLimit = 300
	prefsTTL     = 30 * 24 * time.Hour
)

func (e *engine) doInit(ctx context.Context) error {
	if e.httpc == nil {
		e.httpc = &http.Client{
			// Increase timeout to properly handle text generation response times.
			Timeout: 60 * time.Second,
		}
	}
	if e.stderr == nil {
		e.stderr = os.Stderr
	}

	e.logStream = logger.NewStreamer(logLineLimit)
	e.logger = logger.New(e.stderr, e.logStream, e.debug)

	var scrubPairs []string
	for _, val := range []string{
		e.tgToken,
		e.samsaraKey,
		e.advisory.GeminiAPIKey,
		e.advisory.OpenAIAPIKey,
		e.advisory.OpenRouterAPIKey,
	} {
		if val != "" {
			scrubPairs = append(scrubPairs, val, "[EXPUNGED]")
		}
	}
	if len(scrubPairs) > 0 {
		e.scrubber = strings.NewReplacer(scrubPairs...)
	}

	if e.tgToken == "" {
		e.logger.Warn("TELEGRAM_BOT_TOKEN is not set, replies won't be delivered")
	}
	if e.samsaraKey == "" {
		e.logger.Warn("SAMSARA_API_KEY is not set, lookups will fail")
	}

	shutdown, err := telemetry.InitTraceProvider(ctx, e.otlpEndpoint, version.CmdName(), version.Version().Version)
	if err != nil {
		return err
	}
	e.shutdownTracing = shutdown

	// Preferences outlive a single request, so they don't use the request context.
	e.store, err = store.Open(context.WithoutCancel(ctx), e.databaseURL, prefsTTL)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	e.tg = &telegram.Client{
		Token:      e.tgToken,
		HTTPClient: e.httpc,
		Scrubber:   e.scrubber,
	}

	e.advisory.HTTPClient = e.httpc
	e.advisory.Scrubber = e.scrubber
	chain := advisory.NewChain(e.advisory, e.logger.Named("advisory"))
	if len(chain.Providers) == 0 {
		e.logger.Info("no text generation provider configured, advice is disabled")
	}

	e.bot = &bot.Bot{
		Messenger: e.tg,
		Fleet: &fleet.Resolver{
			Client: &samsara.Client{
				APIKey:     e.samsaraKey,
				BaseURL:    e.samsaraURL,
				HTTPClient: e.httpc,
				Scrubber:   e.scrubber,
			},
		},
		Advisor:      chain,
		Store:        e.store,
		Logger:       e.logger.Named("bot"),
		LanguageMenu: e.languageMenu,
	}

	e.initRoutes()

	return nil
}

func (e *engine) close() {
	if e.shutdownTracing != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.shutdownTracing(shutdownCtx); err != nil {
			e.logger.Warn("shutting down tracing failed", zap.Error(err))
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Warn("closing store failed", zap.Error(err))
		}
	}
	e.logger.Sync()
}
