// Package api exposes the batch upload, status, and download HTTP surface.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"reelcut/internal/config"
	"reelcut/internal/dispatch"
	"reelcut/internal/jobstore"
	"reelcut/internal/logging"
)

// ServerConfig wires the HTTP layer to its collaborators.
type ServerConfig struct {
	Config     *config.Config
	Store      *jobstore.Store
	Dispatcher *dispatch.Dispatcher
	Logger     *slog.Logger
	StartTime  time.Time
	Version    string
}

// Server runs the HTTP API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer constructs a Server bound to the configured API address.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}
	router := NewRouter(cfg)
	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.Config.Paths.APIBind,
			Handler: router,
			// Read and write timeouts stay unset: uploads stream raw
			// video for minutes, as do result downloads. The header
			// timeout still bounds idle connections.
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Start listens and serves until Shutdown. It blocks, returning nil on a
// clean shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("http server listening", logging.String("addr", listener.Addr().String()))
	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound address once Start has begun listening, falling back
// to the configured address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
