package infra

import (
	"context"
	"net/http"
	"time"
)

// HTTPServer owns the listener lifecycle. The write timeout must stay
// generous: synchronous generation requests hold the connection while a
// vendor renders, which can take minutes.
type HTTPServer struct {
	inner http.Server
}

// NewHTTPServer builds a server on cfg.Port with the configured timeouts.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		inner: http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadTimeout:       cfg.HTTPReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.HTTPWriteTimeout,
			IdleTimeout:       cfg.HTTPIdleTimeout,
		},
	}
}

// Addr returns the listen address.
func (s *HTTPServer) Addr() string {
	return s.inner.Addr
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *HTTPServer) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
