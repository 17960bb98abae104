package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/quadcrop/internal/config"
	"github.com/MeKo-Tech/quadcrop/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the crop HTTP server",
		Long: `Start an HTTP server that crops uploaded images.

Endpoints:
  GET  /health       health check
  POST /crop         one-shot crop of a multipart "image" upload
  GET  /ws/session   interactive crop session over WebSocket
  GET  /metrics      Prometheus metrics

Examples:
  quadcrop serve
  quadcrop serve --host 0.0.0.0 --port 9000 --max-sessions 64
  curl -F image=@photo.jpg -F corners=10,10,400,20,390,300,15,290 localhost:8080/crop > crop.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return a.serve(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringP("host", "H", "localhost", "server host")
	flags.IntP("port", "p", 8080, "server port")
	flags.String("cors-origin", "*", "CORS allowed origins")
	flags.Int("max-upload-size", 50, "maximum upload size in MB")
	flags.Int("timeout", 30, "request timeout in seconds")
	flags.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	flags.Int("max-sessions", 32, "maximum number of open interactive sessions")
	flags.Int("max-concurrent-crops", 4, "maximum number of crops resampled at once")

	a.bind("server.host", flags.Lookup("host"))
	a.bind("server.port", flags.Lookup("port"))
	a.bind("server.cors_origin", flags.Lookup("cors-origin"))
	a.bind("server.max_upload_mb", flags.Lookup("max-upload-size"))
	a.bind("server.timeout_sec", flags.Lookup("timeout"))
	a.bind("server.shutdown_timeout", flags.Lookup("shutdown-timeout"))
	a.bind("server.max_sessions", flags.Lookup("max-sessions"))
	a.bind("server.max_concurrent_crops", flags.Lookup("max-concurrent-crops"))
	return cmd
}

// serverConfig maps the loaded configuration onto the server's settings.
func serverConfig(cfg *config.Config, logger *slog.Logger) server.Config {
	return server.Config{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		CORSOrigin:         cfg.Server.CORSOrigin,
		MaxUploadMB:        int64(cfg.Server.MaxUploadMB),
		TimeoutSec:         cfg.Server.TimeoutSec,
		MaxSessions:        cfg.Server.MaxSessions,
		MaxConcurrentCrops: cfg.Server.MaxConcurrentCrops,
		Session:            cfg.ToSessionOptions(logger),
		Logger:             logger,
	}
}

// newHTTPServer wires the crop routes into an http.Server.
func newHTTPServer(cfg *config.Config, srv *server.Server) *http.Server {
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	timeout := time.Duration(cfg.Server.TimeoutSec) * time.Second
	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
	}
}

func (a *app) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cropServer, err := server.NewServer(serverConfig(a.cfg, a.logger))
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	httpServer := newHTTPServer(a.cfg, cropServer)
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting crop server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Server error", "error", err)
			serveErr <- err
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.logger.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("Context cancelled, initiating shutdown")
	}

	shutdownTimeout := time.Duration(a.cfg.Server.ShutdownTimeout) * time.Second
	a.logger.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := cropServer.Close(); err != nil {
		a.logger.Error("Server cleanup error", "error", err)
	}
	a.logger.Info("Graceful shutdown completed")

	select {
	case err := <-serveErr:
		return fmt.Errorf("serving on %s: %w", httpServer.Addr, err)
	default:
		return nil
	}
}
