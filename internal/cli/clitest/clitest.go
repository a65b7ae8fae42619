// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package clitest runs table tests against a [cli.App].
package clitest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"go.astrophena.name/truckdoc/internal/cli"
)

// Case is a single invocation of the application.
type Case[App cli.App] struct {
	// Args are the command-line arguments.
	Args []string
	// Env is the environment visible to the application. Nothing from the
	// process environment leaks in.
	Env map[string]string
	// WantErr is matched against the returned error with errors.Is.
	WantErr error
	// WantInStderr must be a substring of stderr.
	WantInStderr string
	// WantNotInStderr must not appear in stderr. Used to check that secrets
	// are not logged.
	WantNotInStderr []string
	// CheckFunc, if set, inspects the application after it returns.
	CheckFunc func(*testing.T, App)
}

// Run runs every case in parallel against a fresh application made by setup.
func Run[App cli.App](t *testing.T, setup func(*testing.T) App, cases map[string]Case[App]) {
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			app := setup(t)

			var stdout, stderr bytes.Buffer
			env := &cli.Env{
				Args:   tc.Args,
				Getenv: func(name string) string { return tc.Env[name] },
				Stdin:  strings.NewReader(""),
				Stdout: &stdout,
				Stderr: &stderr,
			}

			err := cli.Run(cli.WithEnv(t.Context(), env), app)
			switch {
			case err == nil && tc.WantErr != nil:
				t.Fatalf("must fail with error: %v", tc.WantErr)
			case err != nil && tc.WantErr == nil:
				t.Fatalf("unexpected error: %v\nstderr:\n%s", err, stderr.String())
			case err != nil && !errors.Is(err, tc.WantErr):
				t.Fatalf("got error %v, want %v", err, tc.WantErr)
			}

			if tc.WantInStderr != "" && !strings.Contains(stderr.String(), tc.WantInStderr) {
				t.Errorf("stderr must contain %q, got: %q", tc.WantInStderr, stderr.String())
			}
			for _, s := range tc.WantNotInStderr {
				if strings.Contains(stderr.String(), s) {
					t.Errorf("stderr must not contain %q, got: %q", s, stderr.String())
				}
			}

			if tc.CheckFunc != nil {
				tc.CheckFunc(t, app)
			}
		})
	}
}
