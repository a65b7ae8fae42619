// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package request_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.astrophena.name/truckdoc/internal/request"
	"go.astrophena.name/truckdoc/internal/testutil"
)

func TestMake(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/auth":
			if r.Header.Get("Authorization") != "Bearer secret" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		case r.Method == http.MethodPost && r.URL.Path == "/accepted":
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(`{"message": "accepted"}`))
			return
		case r.Method == http.MethodDelete && r.URL.Path == "/test":
			w.WriteHeader(http.StatusNoContent)
			return
		case r.Method == http.MethodPost && r.URL.Path == "/test":
			if r.Header.Get("Content-Type") != "application/json" {
				http.Error(w, "missing content type", http.StatusBadRequest)
				return
			}
		default:
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message": "success"}`))
	}))
	defer ts.Close()

	cases := map[string]struct {
		params  request.Params
		want    string
		wantErr bool
	}{
		"successful request": {
			params: request.Params{
				Method: http.MethodPost,
				URL:    ts.URL + "/test",
				Body:   map[string]string{"key": "value"},
			},
			want: `{"message": "success"}`,
		},
		"successful request with headers": {
			params: request.Params{
				Method: http.MethodPost,
				URL:    ts.URL + "/test",
				Headers: map[string]string{
					"X-Test": "test",
				},
				Body: map[string]string{"key": "value"},
			},
			want: `{"message": "success"}`,
		},
		"accepted": {
			params: request.Params{
				Method: http.MethodPost,
				URL:    ts.URL + "/accepted",
			},
			want: `{"message": "accepted"}`,
		},
		"no content": {
			params: request.Params{
				Method: http.MethodDelete,
				URL:    ts.URL + "/test",
			},
			want: "",
		},
		"bearer token": {
			params: request.Params{
				Method: http.MethodGet,
				URL:    ts.URL + "/auth",
				Bearer: "secret",
			},
			want: `{"message": "success"}`,
		},
		"wrong bearer token": {
			params: request.Params{
				Method: http.MethodGet,
				URL:    ts.URL + "/auth",
				Bearer: "wrong",
			},
			wantErr: true,
		},
		"invalid request path": {
			params: request.Params{
				Method: http.MethodPost,
				URL:    ts.URL + "/invalid",
			},
			wantErr: true,
		},
		"invalid value for JSON": {
			params: request.Params{
				Method: http.MethodPost,
				URL:    ts.URL + "/test",
				Body:   make(chan int),
			},
			wantErr: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := request.Make[json.RawMessage](t.Context(), tc.params)
			if err != nil {
				if !tc.wantErr {
					t.Errorf("Make() error = %v, wantErr %v", err, tc.wantErr)
				}
				return
			}
			if tc.wantErr {
				t.Errorf("Make() expected error, got none")
			} else if string(resp) != tc.want {
				t.Errorf("Make() got = %v, want %v", string(resp), tc.want)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`slow down, hello`))
	}))
	defer ts.Close()

	_, err := request.Make[request.IgnoreResponse](t.Context(), request.Params{
		Method:   http.MethodGet,
		URL:      ts.URL,
		Scrubber: strings.NewReplacer("hello", "[EXPUNGED]"),
	})
	var se *request.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want *request.StatusError, got %T (%v)", err, err)
	}
	testutil.AssertEqual(t, se.StatusCode, http.StatusTooManyRequests)
	testutil.AssertEqual(t, string(se.Body), "slow down, hello")
	if strings.Contains(err.Error(), "hello") {
		t.Fatalf("error is not scrubbed: %v", err)
	}
}

func TestIgnoreResponse(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer ts.Close()

	if _, err := request.Make[request.IgnoreResponse](t.Context(), request.Params{
		Method: http.MethodGet,
		URL:    ts.URL,
	}); err != nil {
		t.Fatal(err)
	}
}
