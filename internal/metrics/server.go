// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes /metrics and /ping.
type Server struct {
	e      *echo.Echo
	logger *zap.Logger
}

// NewServer builds the metrics server.
func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{e: e, logger: logger}
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Serve listens on l until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.e.Listener = l
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("metrics server listening", zap.String("addr", l.Addr().String()))
		errCh <- s.e.Start("")
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.e.Shutdown(shutdownCtx)
	}
}

// ListenAndServe starts the server on addr in the background. It returns
// once the listener is bound.
func ListenAndServe(ctx context.Context, addr string, logger *zap.Logger) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := NewServer(logger)
	go func() {
		if err := srv.Serve(ctx, l); err != nil {
			srv.logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return nil
}
