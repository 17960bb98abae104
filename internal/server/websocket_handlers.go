package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/quadcrop/internal/encode"
	"github.com/MeKo-Tech/quadcrop/internal/quad"
	"github.com/MeKo-Tech/quadcrop/internal/rectify"
	"github.com/MeKo-Tech/quadcrop/internal/session"
	"github.com/MeKo-Tech/quadcrop/internal/utils"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// Client message types.
const (
	msgOpen    = "open"
	msgPointer = "pointer"
	msgCorners = "corners"
	msgOverlay = "overlay"
	msgCommit  = "commit"
	msgCancel  = "cancel"
)

// WebSocketRequest is a client message on /ws/session. Image bytes travel as
// base64 inside the JSON.
type WebSocketRequest struct {
	Type string `json:"type"`

	// open
	Image          []byte  `json:"image,omitempty"`
	Format         string  `json:"format,omitempty"`
	MaxDimension   *int    `json:"max_dimension,omitempty"`
	ViewportWidth  float64 `json:"viewport_width,omitempty"`
	ViewportHeight float64 `json:"viewport_height,omitempty"`

	// pointer, in display coordinates
	Action string  `json:"action,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Touch  bool    `json:"touch,omitempty"`

	// corners, in image pixels: x1,y1,...,x4,y4
	Corners []float64 `json:"corners,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketResponse is a server message on /ws/session.
type WebSocketResponse struct {
	Type      string `json:"type"` // opened, update, overlay, result, error
	SessionID string `json:"session_id,omitempty"`

	Display         *DisplayInfo   `json:"display,omitempty"`
	Corners         []float64      `json:"corners,omitempty"`
	Selected        string         `json:"selected,omitempty"`
	Redraw          bool           `json:"redraw"`
	SuppressDefault bool           `json:"suppress_default"`
	Magnifier       *MagnifierInfo `json:"magnifier,omitempty"`
	Image           []byte         `json:"image,omitempty"`
	Result          *CropResult    `json:"result,omitempty"`

	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

// DisplayInfo describes the display surface of a session.
type DisplayInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Scale       float64 `json:"scale"`
	ImageWidth  int     `json:"image_width"`
	ImageHeight int     `json:"image_height"`
}

// MagnifierInfo carries the magnifier position and, while it is shown, its PNG frame.
type MagnifierInfo struct {
	Visible bool    `json:"visible"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Frame   []byte  `json:"frame,omitempty"`
}

// CropResult is the terminal outcome of a session.
type CropResult struct {
	Cancelled bool   `json:"cancelled"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Format    string `json:"format,omitempty"`
	MIMEType  string `json:"mime_type,omitempty"`
	Data      []byte `json:"data,omitempty"`
}

// sessionWebSocketHandler runs one interactive crop session per message stream.
func (s *Server) sessionWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	sc := s.newSessionConn(conn)
	defer sc.close()
	s.handleWebSocketConnection(r.Context(), conn, sc)
}

// handleWebSocketConnection processes messages from a WebSocket connection.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn, sc *sessionConn) {
	// Set read deadline to prevent hanging connections
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Error("WebSocket error", "error", err)
			}
			break
		}
		// Any client traffic counts as liveness.
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			sc.handleMessage(ctx, data)
		}
	}
}

// sessionConn is the per-connection protocol state. At most one session is
// live at a time; a new one may be opened after commit or cancel.
type sessionConn struct {
	srv    *Server
	conn   WebSocketConnWriter
	sess   *session.Session
	logger *slog.Logger
}

func (s *Server) newSessionConn(conn WebSocketConnWriter) *sessionConn {
	return &sessionConn{srv: s, conn: conn, logger: s.logger}
}

// handleMessage dispatches one client message.
func (c *sessionConn) handleMessage(ctx context.Context, data []byte) {
	var req WebSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.srv.sendWebSocketError(c.conn, errTypeInvalidRequest, fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	if req.Type == msgOpen {
		c.open(ctx, req)
		return
	}
	if c.sess == nil {
		c.srv.sendWebSocketError(c.conn, "no_session", "No open session; send an open message first")
		return
	}

	switch req.Type {
	case msgPointer:
		c.pointer(req)
	case msgCorners:
		c.placeCorners(req)
	case msgOverlay:
		c.overlay()
	case msgCommit:
		c.commit(ctx)
	case msgCancel:
		c.cancel()
	default:
		c.srv.sendWebSocketError(c.conn, errTypeInvalidRequest, "Unsupported message type: "+req.Type)
	}
}

func (c *sessionConn) open(ctx context.Context, req WebSocketRequest) {
	if c.sess != nil {
		c.srv.sendWebSocketError(c.conn, errTypeInvalidRequest, "A session is already open on this connection")
		return
	}
	if len(req.Image) == 0 {
		c.srv.sendWebSocketError(c.conn, errTypeInvalidRequest, "No image data provided")
		return
	}
	if int64(len(req.Image)) > c.srv.maxUploadMB*1024*1024 {
		c.srv.sendWebSocketError(c.conn, errTypeInvalidRequest, "Image too large")
		return
	}
	uploadSizeBytes.Observe(float64(len(req.Image)))

	opts := c.srv.sessionOpts
	if req.Format != "" {
		f, err := encode.ParseFormat(req.Format)
		if err != nil {
			c.srv.sendWebSocketError(c.conn, errTypeInvalidRequest, err.Error())
			return
		}
		opts.Encode.Format = f
	}
	if req.MaxDimension != nil {
		if *req.MaxDimension < 0 {
			c.srv.sendWebSocketError(c.conn, errTypeInvalidRequest, "max_dimension must not be negative")
			return
		}
		opts.Rectify.MaxDimension = rectify.MaxDimensionSetting(*req.MaxDimension)
	}
	if req.ViewportWidth > 0 && req.ViewportHeight > 0 {
		opts.ViewportWidth = req.ViewportWidth
		opts.ViewportHeight = req.ViewportHeight
	}

	sess, err := session.Open(ctx, req.Image, opts)
	if err != nil {
		_, errType := classifyError(err)
		c.srv.sendWebSocketError(c.conn, errType, err.Error())
		return
	}
	if !c.srv.trackSession(sess) {
		_ = sess.Cancel()
		c.srv.sendWebSocketError(c.conn, errTypeBusy, "Too many open sessions")
		return
	}
	c.sess = sess
	c.logger = c.srv.logger.With("session", sess.ID())

	d := sess.Display()
	w, h := d.DisplaySize()
	c.srv.sendWebSocketResponse(c.conn, WebSocketResponse{
		Type:      "opened",
		SessionID: sess.ID(),
		Display: &DisplayInfo{
			Width:       w,
			Height:      h,
			Scale:       d.Scale,
			ImageWidth:  d.ImageWidth,
			ImageHeight: d.ImageHeight,
		},
		Corners: flattenQuad(sess.Corners()),
		Redraw:  true,
	})
}

func (c *sessionConn) pointer(req WebSocketRequest) {
	action, ok := quad.ParseAction(req.Action)
	if !ok {
		c.srv.sendWebSocketError(c.conn, errTypeInvalidRequest, "Unknown pointer action: "+req.Action)
		return
	}
	up := c.sess.Handle(quad.PointerEvent{Action: action, X: req.X, Y: req.Y, Touch: req.Touch})

	resp := c.update()
	resp.Redraw = up.Redraw
	resp.SuppressDefault = up.SuppressDefault
	switch up.Magnifier {
	case quad.MagnifierShow:
		resp.Magnifier = c.magnifierInfo()
	case quad.MagnifierHide:
		resp.Magnifier = &MagnifierInfo{Visible: false}
	case quad.MagnifierKeep:
	}
	c.srv.sendWebSocketResponse(c.conn, resp)
}

func (c *sessionConn) placeCorners(req WebSocketRequest) {
	if len(req.Corners) != 8 {
		c.srv.sendWebSocketError(c.conn, errTypeInvalidRequest, fmt.Sprintf("corners need 8 values, got %d", len(req.Corners)))
		return
	}
	var q quad.Quad
	for i := range q {
		q[i] = utils.Point{X: req.Corners[2*i], Y: req.Corners[2*i+1]}
	}
	if err := c.sess.PlaceCorners(q); err != nil {
		c.srv.sendWebSocketError(c.conn, errTypeInvalidRequest, err.Error())
		return
	}
	resp := c.update()
	resp.Redraw = true
	resp.Magnifier = &MagnifierInfo{Visible: false}
	c.srv.sendWebSocketResponse(c.conn, resp)
}

func (c *sessionConn) overlay() {
	data, err := encode.Bytes(c.sess.RenderOverlay(), encode.Options{Format: encode.FormatPNG})
	if err != nil {
		c.srv.sendWebSocketError(c.conn, errTypeProcessing, fmt.Sprintf("Failed to render overlay: %v", err))
		return
	}
	c.srv.sendWebSocketResponse(c.conn, WebSocketResponse{
		Type:      "overlay",
		SessionID: c.sess.ID(),
		Image:     data,
	})
}

// commit shares the /crop concurrency limit. A busy server leaves the
// session open so the client can retry.
func (c *sessionConn) commit(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.srv.timeoutSec)*time.Second)
	defer cancel()

	select {
	case c.srv.cropSlots <- struct{}{}:
		defer func() { <-c.srv.cropSlots }()
	case <-ctx.Done():
		c.srv.sendWebSocketError(c.conn, errTypeBusy, "Server busy, try again later")
		return
	}

	sess := c.sess
	c.release()

	start := time.Now()
	err := sess.Commit(ctx)
	var res session.Result
	if err == nil {
		select {
		case res = <-sess.Done():
			err = res.Err
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	if err != nil {
		_, errType := classifyError(err)
		cropRequestsTotal.WithLabelValues("websocket", cropStatus(errType)).Inc()
		sessionsTotal.WithLabelValues("failed").Inc()
		c.logger.Warn("websocket commit failed", "error", err)
		c.srv.sendWebSocketError(c.conn, errType, err.Error())
		return
	}

	cropRequestsTotal.WithLabelValues("websocket", "success").Inc()
	cropDuration.WithLabelValues("websocket", string(res.Format)).Observe(time.Since(start).Seconds())
	cropOutputPixels.Observe(float64(res.Width * res.Height))
	sessionsTotal.WithLabelValues("committed").Inc()

	c.srv.sendWebSocketResponse(c.conn, WebSocketResponse{
		Type:      "result",
		SessionID: sess.ID(),
		Result: &CropResult{
			Width:    res.Width,
			Height:   res.Height,
			Format:   string(res.Format),
			MIMEType: res.Format.MIMEType(),
			Data:     res.Data,
		},
	})
}

func (c *sessionConn) cancel() {
	sess := c.sess
	c.release()
	if err := sess.Cancel(); err != nil {
		c.srv.sendWebSocketError(c.conn, errTypeInvalidRequest, err.Error())
		return
	}
	<-sess.Done()
	sessionsTotal.WithLabelValues("cancelled").Inc()
	c.srv.sendWebSocketResponse(c.conn, WebSocketResponse{
		Type:      "result",
		SessionID: sess.ID(),
		Result:    &CropResult{Cancelled: true},
	})
}

// release detaches the live session from the connection and the server.
func (c *sessionConn) release() {
	c.srv.untrackSession(c.sess)
	c.sess = nil
	c.logger = c.srv.logger
}

// close cancels a session the client walked away from.
func (c *sessionConn) close() {
	if c.sess == nil {
		return
	}
	sess := c.sess
	c.release()
	if err := sess.Cancel(); err != nil && !errors.Is(err, session.ErrSessionClosed) {
		c.logger.Warn("cancel on disconnect failed", "error", err)
	}
	sessionsTotal.WithLabelValues("abandoned").Inc()
}

func (c *sessionConn) update() WebSocketResponse {
	resp := WebSocketResponse{
		Type:      "update",
		SessionID: c.sess.ID(),
		Corners:   flattenQuad(c.sess.Corners()),
	}
	if sel := c.sess.Selected(); sel != quad.NoCorner {
		resp.Selected = sel.String()
	}
	return resp
}

func (c *sessionConn) magnifierInfo() *MagnifierInfo {
	mag := c.sess.Magnifier()
	pos := mag.Position()
	info := &MagnifierInfo{Visible: mag.Visible(), X: pos.X, Y: pos.Y}
	if frame := c.sess.MagnifierFrame(); frame != nil {
		data, err := encode.Bytes(frame, encode.Options{Format: encode.FormatPNG})
		if err != nil {
			c.logger.Warn("encoding magnifier frame failed", "error", err)
			return info
		}
		info.Frame = data
	}
	return info
}

func flattenQuad(q quad.Quad) []float64 {
	out := make([]float64, 0, 8)
	for _, p := range q {
		out = append(out, p.X, p.Y)
	}
	return out
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "error",
		Error:     message,
		ErrorType: errorType,
	})
}
