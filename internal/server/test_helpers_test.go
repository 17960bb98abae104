package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/quadcrop/internal/session"
	"github.com/MeKo-Tech/quadcrop/internal/testutil"
)

const testImageSize = 400

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	opts := session.DefaultOptions()
	opts.ViewportWidth = testImageSize
	opts.ViewportHeight = testImageSize

	cfg := Config{
		CORSOrigin:         "*",
		MaxUploadMB:        5,
		TimeoutSec:         10,
		MaxSessions:        4,
		MaxConcurrentCrops: 2,
		Session:            opts,
		Logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

// gradientPNG returns the encoded test image: R=x, G=y, B=x+y (mod 256).
func gradientPNG(t *testing.T) []byte {
	t.Helper()
	return testutil.EncodePNG(t, testutil.Gradient(testImageSize, testImageSize))
}

// newCropRequest builds a multipart POST /crop with the given image and form fields.
func newCropRequest(t *testing.T, img []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if img != nil {
		fw, err := mw.CreateFormFile("image", "upload.png")
		require.NoError(t, err)
		_, err = fw.Write(img)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/crop", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

// mockWebSocketConn is a mock implementation of websocket.Conn for testing.
type mockWebSocketConn struct {
	sentMessages []sentMessage
}

type sentMessage struct {
	messageType int
	data        []byte
}

func (m *mockWebSocketConn) WriteMessage(messageType int, data []byte) error {
	m.sentMessages = append(m.sentMessages, sentMessage{
		messageType: messageType,
		data:        data,
	})
	return nil
}

func (m *mockWebSocketConn) last(t *testing.T) WebSocketResponse {
	t.Helper()
	require.NotEmpty(t, m.sentMessages)
	var resp WebSocketResponse
	require.NoError(t, json.Unmarshal(m.sentMessages[len(m.sentMessages)-1].data, &resp))
	return resp
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
