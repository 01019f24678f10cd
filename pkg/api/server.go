package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/wrenlabs/rca-scheduler/pkg/scheduler"
)

// ServerConfig configures the HTTP surface's listener.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns sane defaults for local and container use.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP surface bound to a running Scheduler.
type Server struct {
	sched      *scheduler.Scheduler
	httpServer *http.Server
	config     ServerConfig
	version    string
}

// NewServer builds a Server for sched, not yet listening.
func NewServer(sched *scheduler.Scheduler, config ServerConfig, version string) *Server {
	return &Server{sched: sched, config: config, version: version}
}

// Start blocks serving HTTP until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	router := SetupRouter(s.sched, s.version)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	log.Printf("api: listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP surface, letting in-flight requests
// finish within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Println("api: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
