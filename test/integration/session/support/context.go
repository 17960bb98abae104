// Package support holds the godog step definitions for the crop session suite.
package support

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http/httptest"
	"time"

	"github.com/MeKo-Tech/quadcrop/internal/quad"
	"github.com/MeKo-Tech/quadcrop/internal/server"
	"github.com/MeKo-Tech/quadcrop/internal/session"
)

// resultTimeout bounds how long a step waits for a session to report.
const resultTimeout = 10 * time.Second

// TestContext holds the state of one scenario.
type TestContext struct {
	// Session state
	Source     *image.NRGBA
	Options    session.Options
	Session    *session.Session
	LastUpdate quad.Update
	LastError  error
	Results    []session.Result

	// Server state
	CropServer         *server.Server
	HTTPServer         *httptest.Server
	LastHTTPStatusCode int
	LastHTTPBody       []byte
	LastHTTPHeaders    map[string]string
}

// NewTestContext returns a context with stock session options and a silent logger.
func NewTestContext() *TestContext {
	opts := session.DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return &TestContext{Options: opts}
}

// Cleanup cancels a session that is still open and stops the server.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	if testCtx.Session != nil && !testCtx.Session.Closed() {
		if err := testCtx.Session.Cancel(); err != nil {
			errs = append(errs, fmt.Errorf("cancel session: %w", err))
		}
	}
	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
		testCtx.HTTPServer = nil
	}
	if testCtx.CropServer != nil {
		if err := testCtx.CropServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close server: %w", err))
		}
	}
	return errors.Join(errs...)
}

// collectResults drains the session's Done channel until it is closed.
func (testCtx *TestContext) collectResults() error {
	if testCtx.Session == nil {
		return errors.New("no session is open")
	}
	timeout := time.After(resultTimeout)
	for {
		select {
		case r, ok := <-testCtx.Session.Done():
			if !ok {
				return nil
			}
			testCtx.Results = append(testCtx.Results, r)
		case <-timeout:
			return fmt.Errorf("session did not finish within %s (got %d results)", resultTimeout, len(testCtx.Results))
		}
	}
}

// onlyResult returns the single delivered result.
func (testCtx *TestContext) onlyResult() (session.Result, error) {
	if testCtx.Results == nil {
		if err := testCtx.collectResults(); err != nil {
			return session.Result{}, err
		}
	}
	if len(testCtx.Results) != 1 {
		return session.Result{}, fmt.Errorf("expected exactly one result, got %d", len(testCtx.Results))
	}
	return testCtx.Results[0], nil
}
