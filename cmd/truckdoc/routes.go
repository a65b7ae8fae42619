// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"net/http"

	"go.astrophena.name/truckdoc/internal/metrics"
	"go.astrophena.name/truckdoc/internal/web"
)

func (e *engine) initRoutes() {
	e.mux = http.NewServeMux()

	// Telegram webhook. The root path is accepted too for deployments that
	// point the webhook at the bare host.
	e.mux.HandleFunc("/telegram", e.handleTelegramWebhook)
	e.mux.HandleFunc("/{$}", e.handleTelegramWebhook)

	// Health checks.
	health := web.Health(e.mux)
	health.RegisterFunc("telegram", configured(e.tgToken))
	health.RegisterFunc("samsara", configured(e.samsaraKey))
	health.RegisterFunc("store", func(ctx context.Context) (string, bool) {
		if err := e.store.Ping(ctx); err != nil {
			return err.Error(), false
		}
		return "ok", true
	})

	e.mux.Handle("/metrics", e.getOnly(metrics.Handler()))
	e.mux.Handle("/debug/logs", e.getOnly(e.logStream))

	e.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		web.RespondJSONError(e.logger, w, web.ErrNotFound)
	})
}

func (e *engine) getOnly(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			web.RespondJSONError(e.logger, w, web.ErrMethodNotAllowed)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func configured(secret string) web.HealthFunc {
	return func(context.Context) (string, bool) {
		if secret == "" {
			return "not configured", false
		}
		return "configured", true
	}
}
