package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORSMiddleware(t *testing.T) {
	server := newTestServer(t, func(c *Config) { c.CORSOrigin = "https://example.com" })

	called := false
	handler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		called = false
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodOptions, "/crop", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, called)
		assert.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("request passes through", func(t *testing.T) {
		called = false
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodPost, "/crop", nil))

		assert.True(t, called)
		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Crop-Width")
	})
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	rw.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, rw.statusCode)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewServerDefaults(t *testing.T) {
	srv, err := NewServer(Config{})
	assert.NoError(t, err)
	assert.Equal(t, "*", srv.corsOrigin)
	assert.Equal(t, int64(50), srv.maxUploadMB)
	assert.Equal(t, 30, srv.timeoutSec)
	assert.Equal(t, 32, srv.maxSessions)
	assert.Equal(t, 1, cap(srv.cropSlots))
	assert.NotNil(t, srv.sessionOpts.Logger)
}
