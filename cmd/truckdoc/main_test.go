// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.astrophena.name/truckdoc/internal/advisory"
	"go.astrophena.name/truckdoc/internal/cli"
	"go.astrophena.name/truckdoc/internal/cli/clitest"
	"go.astrophena.name/truckdoc/internal/fleet"
	"go.astrophena.name/truckdoc/internal/i18n"
	"go.astrophena.name/truckdoc/internal/testutil"
	"go.astrophena.name/truckdoc/internal/web"
)

// Typical Telegram Bot API token, copied from docs.
const tgToken = "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"

const samsaraKey = "samsara_api_test"

func TestRun(t *testing.T) {
	t.Parallel()

	clitest.Run(t, func(t *testing.T) *engine {
		e := new(engine)
		e.httpc = testutil.MockHTTPClient(newTestMux(t).mux)
		e.noServerStart = true
		return e
	}, map[string]clitest.Case[*engine]{
		"prints usage with help flag": {
			Args:    []string{"-h"},
			WantErr: flag.ErrHelp,
		},
		"version": {
			Args:    []string{"-version"},
			WantErr: cli.ErrExitVersion,
		},
		"sets configuration passed by env": {
			Env: map[string]string{
				"TELEGRAM_BOT_TOKEN": tgToken,
				"SAMSARA_API_KEY":    samsaraKey,
				"OPENROUTER_API_KEY": "or-key",
				"OPENROUTER_TITLE":   "truckdoc",
				"LANGUAGE_MENU":      "true",
				"PORT":               "8080",
			},
			WantNotInStderr: []string{tgToken, samsaraKey, "or-key"},
			CheckFunc: func(t *testing.T, e *engine) {
				testutil.AssertEqual(t, e.tgToken, tgToken)
				testutil.AssertEqual(t, e.samsaraKey, samsaraKey)
				testutil.AssertEqual(t, e.advisory.OpenRouterAPIKey, "or-key")
				testutil.AssertEqual(t, e.advisory.OpenRouterTitle, "truckdoc")
				testutil.AssertEqual(t, e.languageMenu, true)
				testutil.AssertEqual(t, e.addr, ":8080")
				testutil.AssertEqual(t, e.bot.LanguageMenu, true)
			},
		},
		"loads env file": {
			Args: []string{"-env-file", "testdata/test.env"},
			Env: map[string]string{
				"SAMSARA_API_KEY": samsaraKey,
			},
			CheckFunc: func(t *testing.T, e *engine) {
				testutil.AssertEqual(t, e.tgToken, "123456:from-file")
				// Process environment takes precedence.
				testutil.AssertEqual(t, e.samsaraKey, samsaraKey)
				testutil.AssertEqual(t, e.languageMenu, true)
			},
		},
		"missing env file": {
			Args:    []string{"-env-file", "testdata/nonexistent.env"},
			WantErr: fs.ErrNotExist,
		},
		"warns about missing tokens": {
			WantInStderr: "TELEGRAM_BOT_TOKEN is not set",
		},
	})
}

type testMux struct {
	mux         *http.ServeMux
	maintenance string // Samsara maintenance list response

	mu            sync.Mutex
	telegramCalls []call
}

type call struct {
	Method string
	Args   map[string]any
}

const (
	vehiclesJSON    = `{"data":[{"id":"281474","name":"1234","licensePlate":"TX-1234","vin":"1XKYD49X0EJ000001"}]}`
	maintenanceJSON = `{"vehicles":[{"id":281474,"j1939":{"checkEngineLight":{"warningIsOn":true},"diagnosticTroubleCodes":[{"txId":42,"spnDescription":"Coolant level","fmiText":"low","occurrenceCount":3}]}}]}`
)

func newTestMux(t *testing.T) *testMux {
	tm := &testMux{mux: http.NewServeMux(), maintenance: maintenanceJSON}
	tm.mux.HandleFunc("POST api.telegram.org/{token}/{method}", func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.PathValue("token"), "bot"+tgToken)
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatal(err)
		}
		c := call{
			Method: r.PathValue("method"),
			Args:   testutil.UnmarshalJSON[map[string]any](t, b),
		}
		tm.mu.Lock()
		tm.telegramCalls = append(tm.telegramCalls, c)
		tm.mu.Unlock()
		// Legacy Markdown can't have an unclosed underscore.
		if text, ok := c.Args["text"].(string); ok && c.Args["parse_mode"] == "Markdown" {
			if (strings.Count(text, "_")-strings.Count(text, `\_`))%2 == 1 {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"ok":false,"description":"Bad Request: can't parse entities"}`))
				return
			}
		}
		web.RespondJSON(w, map[string]any{"ok": true, "result": true})
	})
	tm.mux.HandleFunc("GET api.samsara.com/fleet/vehicles", func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.Header.Get("Authorization"), "Bearer "+samsaraKey)
		w.Write([]byte(vehiclesJSON))
	})
	tm.mux.HandleFunc("GET api.samsara.com/v1/fleet/maintenance/list", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tm.maintenance))
	})
	return tm
}

func (tm *testMux) sentTexts() []string {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	var texts []string
	for _, c := range tm.telegramCalls {
		if c.Method == "sendMessage" {
			texts = append(texts, c.Args["text"].(string))
		}
	}
	return texts
}

func testEngine(t *testing.T, tm *testMux) *engine {
	t.Helper()
	e := &engine{
		httpc:      testutil.MockHTTPClient(tm.mux),
		samsaraKey: samsaraKey,
		stderr:     io.Discard,
		tgToken:    tgToken,
	}
	if err := e.init.Get(func() error {
		return e.doInit(t.Context())
	}); err != nil {
		t.Fatal(err)
	}
	return e
}

func send(t *testing.T, e *engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func messageUpdate(text string) string {
	return fmt.Sprintf(`{"update_id":1,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":%q}}`, text)
}

func TestWebhook(t *testing.T) {
	t.Parallel()

	ru := i18n.For(i18n.Russian)

	cases := map[string]struct {
		method      string
		path        string
		body        string
		wantMessage string
		wantTexts   []string
	}{
		"liveness": {
			method:      http.MethodGet,
			path:        "/telegram",
			wantMessage: "Bot is running.",
		},
		"liveness on root": {
			method:      http.MethodGet,
			path:        "/",
			wantMessage: "Bot is running.",
		},
		"malformed JSON": {
			method: http.MethodPost,
			path:   "/telegram",
			body:   `{"update_id":`,
		},
		"start": {
			method:    http.MethodPost,
			path:      "/telegram",
			body:      messageUpdate("/start"),
			wantTexts: []string{ru.Greeting},
		},
		"lookup": {
			method: http.MethodPost,
			path:   "/",
			body:   messageUpdate("1234"),
			wantTexts: []string{
				"Ищу трак `1234` в Samsara...",
				"*Трак:* 1234\n*VIN:* 1XKYD49X0EJ000001\n*Номер:* TX-1234\n" +
					"\n*Check Engine:* Warning\n" +
					"\n*Активные ошибки:*\n" +
					"1. Код: `42` — Coolant level — low — (повторений: 3)",
			},
		},
		"not found": {
			method: http.MethodPost,
			path:   "/telegram",
			body:   messageUpdate("9999"),
			wantTexts: []string{
				"Ищу трак `9999` в Samsara...",
				"Трак `9999` не найден в Samsara.",
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tm := newTestMux(t)
			e := testEngine(t, tm)

			w := send(t, e, tc.method, tc.path, tc.body)
			testutil.AssertEqual(t, w.Code, http.StatusOK)
			resp := testutil.UnmarshalJSON[webhookResponse](t, w.Body.Bytes())
			testutil.AssertEqual(t, resp, webhookResponse{OK: true, Message: tc.wantMessage})
			testutil.AssertEqual(t, tm.sentTexts(), tc.wantTexts)
		})
	}
}

type staticAdvisor string

func (a staticAdvisor) Summarize(context.Context, advisory.Request) string { return string(a) }

func TestWebhookEscapesUntrustedText(t *testing.T) {
	t.Parallel()

	tm := newTestMux(t)
	tm.maintenance = strings.ReplaceAll(maintenanceJSON, "Coolant level", "Coolant_level")
	e := testEngine(t, tm)
	e.bot.Advisor = staticAdvisor("Check the coolant_level sensor first.")

	w := send(t, e, http.MethodPost, "/telegram", messageUpdate("1234"))
	testutil.AssertEqual(t, w.Code, http.StatusOK)

	reply := "*Трак:* 1234\n*VIN:* 1XKYD49X0EJ000001\n*Номер:* TX-1234\n" +
		"\n*Check Engine:* Warning\n" +
		"\n*Активные ошибки:*\n" +
		"1. Код: `42` — Coolant\\_level — low — (повторений: 3)\n" +
		"\n*Рекомендации:*\nCheck the coolant\\_level sensor first."
	sent := tm.sentTexts()
	testutil.AssertContains(t, sent, reply)
	// Both messages were accepted as Markdown on the first try.
	testutil.AssertEqual(t, len(sent), 2)
}

type panickingFleet struct{}

func (panickingFleet) FindVehicle(context.Context, string) (fleet.Vehicle, bool, error) {
	panic("boom")
}

func (panickingFleet) Faults(context.Context, string) (fleet.Faults, error) {
	panic("boom")
}

func TestWebhookRecoversPanics(t *testing.T) {
	t.Parallel()

	tm := newTestMux(t)
	e := testEngine(t, tm)
	e.bot.Fleet = panickingFleet{}

	w := send(t, e, http.MethodPost, "/telegram", messageUpdate("1234"))
	testutil.AssertEqual(t, w.Code, http.StatusOK)
	testutil.AssertEqual(t, testutil.UnmarshalJSON[webhookResponse](t, w.Body.Bytes()), webhookResponse{OK: true})
}

func TestSetWebhook(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		host        string
		wantSetHook bool
		wantErr     error
	}{
		"host not set": {
			wantErr: errNoHost,
		},
		"webhook set": {
			host:        "truckdoc.example.com",
			wantSetHook: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tm := newTestMux(t)
			e := testEngine(t, tm)
			e.host = tc.host

			err := e.setWebhook(t.Context())
			if tc.wantErr != nil {
				if err == nil || err.Error() != tc.wantErr.Error() {
					t.Fatalf("wanted error %v, got %v", tc.wantErr, err)
				}
			} else if err != nil {
				t.Fatal(err)
			}

			if tc.wantSetHook {
				testutil.AssertEqual(t, tm.telegramCalls, []call{{
					Method: "setWebhook",
					Args:   map[string]any{"url": "https://truckdoc.example.com/telegram"},
				}})
			}
		})
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	tm := newTestMux(t)
	e := testEngine(t, tm)

	w := send(t, e, http.MethodGet, "/health", "")
	testutil.AssertEqual(t, w.Code, http.StatusOK)
	resp := testutil.UnmarshalJSON[web.HealthResponse](t, w.Body.Bytes())
	testutil.AssertEqual(t, resp.OK, true)
	testutil.AssertEqual(t, resp.Checks["telegram"], web.CheckResponse{Status: "configured", OK: true})
	testutil.AssertEqual(t, resp.Checks["samsara"], web.CheckResponse{Status: "configured", OK: true})
	testutil.AssertEqual(t, resp.Checks["store"], web.CheckResponse{Status: "ok", OK: true})
}

func TestRoutingErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		method     string
		path       string
		wantStatus int
		wantError  string
	}{
		"unknown path": {
			method:     http.MethodGet,
			path:       "/admin",
			wantStatus: http.StatusNotFound,
			wantError:  "not found",
		},
		"metrics with POST": {
			method:     http.MethodPost,
			path:       "/metrics",
			wantStatus: http.StatusMethodNotAllowed,
			wantError:  "method not allowed",
		},
		"logs with DELETE": {
			method:     http.MethodDelete,
			path:       "/debug/logs",
			wantStatus: http.StatusMethodNotAllowed,
			wantError:  "method not allowed",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			e := testEngine(t, newTestMux(t))
			w := send(t, e, tc.method, tc.path, "")
			testutil.AssertEqual(t, w.Code, tc.wantStatus)
			testutil.AssertEqual(t, testutil.UnmarshalJSON[map[string]string](t, w.Body.Bytes()), map[string]string{
				"status": "error",
				"error":  tc.wantError,
			})
		})
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	tm := newTestMux(t)
	e := testEngine(t, tm)
	send(t, e, http.MethodPost, "/telegram", messageUpdate("/start"))

	w := send(t, e, http.MethodGet, "/metrics", "")
	testutil.AssertEqual(t, w.Code, http.StatusOK)
	if !strings.Contains(w.Body.String(), `truckdoc_updates_total{kind="command"}`) {
		t.Fatalf("metrics don't report updates:\n%s", w.Body.String())
	}
}
