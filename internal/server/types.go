package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/quadcrop/internal/session"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	sessionOpts session.Options
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	maxSessions int
	cropSlots   chan struct{}
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// Config holds server configuration.
type Config struct {
	Host               string
	Port               int
	CORSOrigin         string
	MaxUploadMB        int64
	TimeoutSec         int
	MaxSessions        int
	MaxConcurrentCrops int
	Session            session.Options
	Logger             *slog.Logger
}

// Response types for API endpoints.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version,omitempty"`
	Time           string `json:"time"`
	ActiveSessions int    `json:"active_sessions"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type,omitempty"`
}

// NewServer creates a new crop server instance.
func NewServer(config Config) (*Server, error) {
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 50
	}
	if config.TimeoutSec <= 0 {
		config.TimeoutSec = 30
	}
	if config.MaxSessions <= 0 {
		config.MaxSessions = 32
	}
	if config.MaxConcurrentCrops <= 0 {
		config.MaxConcurrentCrops = 1
	}
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts := config.Session
	if opts.Logger == nil {
		opts.Logger = logger
	}

	return &Server{
		sessionOpts: opts,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		maxSessions: config.MaxSessions,
		cropSlots:   make(chan struct{}, config.MaxConcurrentCrops),
		logger:      logger,
		sessions:    make(map[string]*session.Session),
	}, nil
}

// Close cancels every live interactive session.
func (s *Server) Close() error {
	s.mu.Lock()
	live := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	for _, sess := range live {
		_ = sess.Cancel()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/crop", s.corsMiddleware(s.cropHandler))
	mux.HandleFunc("/ws/session", s.sessionWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

// ActiveSessions returns the number of open interactive sessions.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// trackSession registers sess unless the session limit is reached.
func (s *Server) trackSession(sess *session.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) >= s.maxSessions {
		return false
	}
	s.sessions[sess.ID()] = sess
	sessionsActive.Set(float64(len(s.sessions)))
	return true
}

func (s *Server) untrackSession(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.ID())
	sessionsActive.Set(float64(len(s.sessions)))
}

// CropResponse is returned by /crop when the client asks for JSON.
type CropResponse struct {
	Success bool      `json:"success"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Format  string    `json:"format"`
	Corners []float64 `json:"corners"`
	DataURL string    `json:"data_url"`
	TimeMs  int64     `json:"time_ms"`
}
