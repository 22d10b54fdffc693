package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/target/mmk-alert-router/config"
	httpx "github.com/target/mmk-alert-router/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   config.HTTPConfig
	Timeout  time.Duration // per-dispatch deadline
	Services httpx.RouterServices
	Logger   *slog.Logger
}

// BuildHTTPHandler builds the router wrapped in middleware.
// Order: Recover -> Logging -> Compression -> Router.
func BuildHTTPHandler(cfg HTTPServerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	services := cfg.Services
	services.Logger = logger
	if services.MaxBodyBytes == 0 {
		services.MaxBodyBytes = cfg.Config.MaxBodyBytes
	}
	if services.Timeout == 0 {
		services.Timeout = cfg.Timeout
	}

	h := httpx.NewRouter(services)
	if cfg.Config.CompressionEnabled {
		logger.Info("HTTP compression enabled", "level", cfg.Config.CompressionLevel)
		h = httpx.Compression(httpx.CompressionConfig{Level: cfg.Config.CompressionLevel, Logger: logger})(h)
	}
	h = httpx.Logging(logger)(h)
	h = httpx.Recover(logger)(h)
	return h
}

// StartHTTPServer binds the listener and serves in the background. Binding
// errors are returned; serve errors after startup are sent to errCh.
func StartHTTPServer(ctx context.Context, cfg HTTPServerConfig, errCh chan<- error) (*http.Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := cfg.Config.Addr
	if addr == "" {
		addr = ":8080"
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           BuildHTTPHandler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Timeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting HTTP server", "addr", server.Addr)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "HTTP server failed", "error", err)
			select {
			case errCh <- err:
			default:
			}
		}
	}()

	return server, nil
}

// ShutdownHTTPServer stops accepting requests and waits for in-flight
// requests up to timeout.
func ShutdownHTTPServer(server *http.Server, timeout time.Duration, logger *slog.Logger) error {
	if server == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	logger.Info("HTTP server stopped")
	return nil
}
