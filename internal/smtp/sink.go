package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/emersion/go-smtp"
)

// Sink is the embedded development SMTP server that captures outbound mail
type Sink struct {
	server   *smtp.Server
	listener net.Listener
	logger   *slog.Logger
	closed   atomic.Bool
}

// NewSink creates a sink serving backend with the given limits
func NewSink(backend *Backend, cfg *ServerConfig) *Sink {
	return &Sink{
		server: NewSecureServer(backend, cfg),
		logger: backend.logger,
	}
}

// Start binds the listener and serves in the background
func (s *Sink) Start() error {
	l, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listener = l

	go func() {
		if err := s.server.Serve(l); err != nil && !s.closed.Load() {
			s.logger.Error("mail sink stopped", slog.Any("error", err))
		}
	}()

	s.logger.Info("mail sink listening", slog.String("addr", l.Addr().String()))
	return nil
}

// Addr returns the bound address (useful with port 0)
func (s *Sink) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting connections and waits for open sessions
func (s *Sink) Shutdown(ctx context.Context) error {
	s.closed.Store(true)
	return s.server.Shutdown(ctx)
}
