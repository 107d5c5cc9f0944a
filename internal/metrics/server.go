// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/matt-FFFFFF/runscripts/internal/ctxlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ErrListen is returned when the metrics address cannot be bound.
var ErrListen = errors.New("failed to start metrics server")

// Server provides HTTP endpoints for Prometheus metrics and health checks.
type Server struct {
	server *http.Server
	addr   string
	done   chan struct{}
}

// NewServer returns a server exposing gatherer on /metrics.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler)

	return &Server{
		addr: addr,
		done: make(chan struct{}),
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       30 * time.Second,
		},
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok") // nolint:errcheck
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the address and serves in the background. It returns once the
// listener is ready, so Addr reports the bound address (useful with port 0).
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		close(s.done)
		return errors.Join(ErrListen, err)
	}

	s.addr = ln.Addr().String()
	ctxlog.Info(ctx, "metrics server listening", "addr", s.addr)

	go func() {
		defer close(s.done)

		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ctxlog.Error(ctx, "metrics server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server and waits for it to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	ctxlog.Debug(ctx, "metrics server shutting down")

	if err := s.server.Shutdown(ctx); err != nil {
		return err //nolint:wrapcheck
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.addr
}
