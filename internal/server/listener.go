package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// DefaultCallbackTimeout bounds how long [CallbackServer.Code] waits for the redirect.
const DefaultCallbackTimeout = 2 * time.Minute

const shutdownTimeout = 5 * time.Second

// CallbackServer hosts a [CallbackHandler] and the /ping route on a short-lived local listener.
type CallbackServer struct {
	addr     string
	timeout  time.Duration
	handler  *CallbackHandler
	logger   *log.Logger
	srv      *http.Server
	listener net.Listener
}

// CallbackOption configures a [CallbackServer].
type CallbackOption func(*CallbackServer)

// WithTimeout sets how long Code waits before rejecting the session with [shared.ErrTimeout].
func WithTimeout(d time.Duration) CallbackOption {
	return func(s *CallbackServer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithServerLogger sets the logger used for request logs and lifecycle messages.
func WithServerLogger(l *log.Logger) CallbackOption {
	return func(s *CallbackServer) { s.logger = l }
}

// NewCallbackServer builds a server for handler bound to addr (host:port). It does not listen until [CallbackServer.Start].
func NewCallbackServer(addr string, handler *CallbackHandler, opts ...CallbackOption) *CallbackServer {
	s := &CallbackServer{
		addr:    addr,
		timeout: DefaultCallbackTimeout,
		handler: handler,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = handler.logger
	}

	router := NewBasicRouter()
	router.Use(Logging(s.logger))
	router.Handle(http.MethodGet, "/ping", http.HandlerFunc(Ping))
	router.Handler(handler)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start binds the listener and serves in the background.
//
// A serve failure rejects the session so a pending Code call returns it.
func (s *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.logger.Info("starting callback server", "addr", ln.Addr().String())
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.handler.code.Reject(fmt.Errorf("callback server: %w", err))
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *CallbackServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Code waits for the authorization code, then shuts the listener down.
//
// The session is rejected with [shared.ErrTimeout] if no callback arrives within the timeout.
// If ctx ends first its error is returned and the session stays pending.
func (s *CallbackServer) Code(ctx context.Context) (string, error) {
	stop := s.handler.code.RejectAfter(s.timeout,
		fmt.Errorf("%w: authorization not received within %s", shared.ErrTimeout, s.timeout))
	defer stop()

	code, err := s.handler.Code(ctx)

	if shutdownErr := s.Shutdown(context.Background()); shutdownErr != nil {
		s.logger.Warn("error shutting down callback server", "error", shutdownErr)
	}
	return code, err
}

// Shutdown gracefully stops the listener, waiting at most a few seconds for in-flight requests.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
