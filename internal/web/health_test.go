// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.astrophena.name/truckdoc/internal/testutil"
)

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		checks       map[string]HealthFunc
		wantResponse HealthResponse
		wantStatus   int
	}{
		"no checks": {
			checks: map[string]HealthFunc{},
			wantResponse: HealthResponse{
				OK:     true,
				Checks: map[string]CheckResponse{},
			},
			wantStatus: http.StatusOK,
		},
		"token configured": {
			checks: map[string]HealthFunc{
				"telegram": func(context.Context) (string, bool) {
					return "configured", true
				},
			},
			wantResponse: HealthResponse{
				OK: true,
				Checks: map[string]CheckResponse{
					"telegram": {OK: true, Status: "configured"},
				},
			},
			wantStatus: http.StatusOK,
		},
		"one failing check": {
			checks: map[string]HealthFunc{
				"telegram": func(context.Context) (string, bool) {
					return "configured", true
				},
				"samsara": func(context.Context) (string, bool) {
					return "not configured", false
				},
			},
			wantResponse: HealthResponse{
				OK: false,
				Checks: map[string]CheckResponse{
					"telegram": {OK: true, Status: "configured"},
					"samsara":  {OK: false, Status: "not configured"},
				},
			},
			wantStatus: http.StatusInternalServerError,
		},
		"check gets a deadline": {
			checks: map[string]HealthFunc{
				"database": func(ctx context.Context) (string, bool) {
					deadline, ok := ctx.Deadline()
					if !ok || time.Until(deadline) > CheckTimeout {
						return "no deadline", false
					}
					return "ok", true
				},
			},
			wantResponse: HealthResponse{
				OK: true,
				Checks: map[string]CheckResponse{
					"database": {OK: true, Status: "ok"},
				},
			},
			wantStatus: http.StatusOK,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			mux := http.NewServeMux()
			h := Health(mux)
			for name, f := range tc.checks {
				h.RegisterFunc(name, f)
			}
			testutil.AssertEqual(t, Health(mux) == h, true)

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			testutil.AssertEqual(t, w.Code, tc.wantStatus)
			testutil.AssertEqual(t, w.Header().Get("Content-Type"), "application/json")
			testutil.AssertEqual(t, testutil.UnmarshalJSON[HealthResponse](t, w.Body.Bytes()), tc.wantResponse)
		})
	}
}

func TestRegisterFuncDuplicate(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) (string, bool) { return "ok", true }
	h := Health(http.NewServeMux())
	h.RegisterFunc("store", ok)
	defer func() {
		if recover() == nil {
			t.Fatal("RegisterFunc did not panic on duplicate name")
		}
	}()
	h.RegisterFunc("store", ok)
}
