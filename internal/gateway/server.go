package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/soyeahso/whatsapp-relay/internal/config"
	"github.com/soyeahso/whatsapp-relay/internal/directory"
	"github.com/soyeahso/whatsapp-relay/internal/domain"
	"github.com/soyeahso/whatsapp-relay/internal/hooks"
	"github.com/soyeahso/whatsapp-relay/internal/logging"
	"github.com/soyeahso/whatsapp-relay/internal/version"
)

// shutdownTimeout bounds how long in-flight requests may run after Start's
// context is cancelled.
const shutdownTimeout = 10 * time.Second

// WebhookChannel is a channel that receives messages over HTTP.
type WebhookChannel interface {
	ID() string
	Handler() http.Handler
	Path() string
	Status() domain.ChannelStatus
}

// Server is the relay's HTTP server. It hosts the provider webhook and
// the health and status endpoints.
type Server struct {
	cfg     config.WebhookConfig
	log     *logging.Logger
	version string

	// Optional collaborators; nil when not configured.
	channel   WebhookChannel
	directory directory.Directory
	hooks     *hooks.Manager

	mu         sync.RWMutex
	startedAt  time.Time
	addr       string
	httpServer *http.Server
}

// ServerOption configures the gateway server.
type ServerOption func(*Server)

// WithChannel mounts the channel's webhook handler.
func WithChannel(ch WebhookChannel) ServerOption {
	return func(s *Server) {
		s.channel = ch
	}
}

// WithDirectory enables session counts in the status endpoint.
func WithDirectory(d directory.Directory) ServerOption {
	return func(s *Server) {
		s.directory = d
	}
}

// WithHooks sets the hook manager for lifecycle events.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) {
		s.hooks = hm
	}
}

// New creates a new gateway server.
func New(cfg config.WebhookConfig, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log.Sub("gateway"),
		version: version.Version,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.WebhookConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan", "auto":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	}
}

// Handler returns the full HTTP handler: routes wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)
	return withMiddleware(mux, s.log)
}

// Start begins listening for HTTP requests. It blocks until the context is
// cancelled or the server fails. Listen failures emit the error hook.
// After cancellation Start returns only once in-flight requests have
// drained, so nothing they dispatch is still being accepted.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		err = fmt.Errorf("failed to listen on %s: %w", addr, err)
		s.hooks.Emit(ctx, hooks.EventError, map[string]any{"error": err.Error()})
		return err
	}

	if s.cfg.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(s.cfg.TLS.CertPath, s.cfg.TLS.KeyPath)
		if err != nil {
			ln.Close()
			err = fmt.Errorf("loading TLS certificate: %w", err)
			s.hooks.Emit(ctx, hooks.EventError, map[string]any{"error": err.Error()})
			return err
		}
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
		s.log.Info().Msg("TLS enabled")
	}

	// Requests in flight at shutdown run to completion.
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr().String()
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.log.Info().
		Str("addr", s.Addr()).
		Str("bind", s.cfg.Bind).
		Str("webhook", s.webhookPath()).
		Msg("listening for provider callbacks")

	data := map[string]any{"addr": s.Addr()}
	s.hooks.Emit(ctx, hooks.EventGatewayStart, data)
	s.hooks.Emit(ctx, hooks.EventConnected, data)

	// Shutdown when context is cancelled
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		s.hooks.EmitAsync(context.Background(), hooks.EventGatewayStop, nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn().Err(err).Msg("gateway did not drain in time")
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.hooks.Emit(context.Background(), hooks.EventError, map[string]any{"error": err.Error()})
		return err
	}
	// Serve returns as soon as Shutdown begins.
	<-drained
	return nil
}

// Addr returns the address the server is listening on, or an empty
// string if it has not started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

func (s *Server) uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

func (s *Server) webhookPath() string {
	if s.channel == nil {
		return ""
	}
	return s.channel.Path()
}
