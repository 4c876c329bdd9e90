// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Bandi86/pitchside-gateway/internal/events"
	"github.com/Bandi86/pitchside-gateway/internal/gateway"
	"github.com/Bandi86/pitchside-gateway/internal/logging"
)

// HubService supervises the gateway hub. The hub itself only needs to run
// its shutdown watcher; connection goroutines are owned by the transport.
type HubService struct {
	hub *gateway.Hub
}

// NewHubService wraps the hub for supervision.
func NewHubService(hub *gateway.Hub) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

func (s *HubService) String() string { return "gateway-hub" }

// BridgeService supervises the bus-to-relay bridge router.
type BridgeService struct {
	bridge *events.Bridge
}

// NewBridgeService wraps the event bridge for supervision.
func NewBridgeService(bridge *events.Bridge) *BridgeService {
	return &BridgeService{bridge: bridge}
}

// Serve implements suture.Service. The router returns nil after a clean
// context-driven drain; translate that to ctx.Err() so suture does not
// restart a deliberately stopped bridge.
func (s *BridgeService) Serve(ctx context.Context) error {
	err := s.bridge.Run(ctx)
	if err == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *BridgeService) String() string { return "event-bridge" }

// HTTPService supervises the HTTP server with graceful shutdown.
type HTTPService struct {
	addr            string
	handler         http.Handler
	readTimeout     time.Duration
	shutdownTimeout time.Duration
}

// NewHTTPService builds the supervised HTTP server.
func NewHTTPService(addr string, handler http.Handler, readTimeout, shutdownTimeout time.Duration) *HTTPService {
	return &HTTPService{
		addr:            addr,
		handler:         handler,
		readTimeout:     readTimeout,
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve implements suture.Service. Listens until the context is canceled,
// then drains in-flight requests within the shutdown timeout.
func (s *HTTPService) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: s.readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logging.Info().Str("addr", s.addr).Msg("http server listening")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("http server shutdown incomplete")
			srv.Close()
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *HTTPService) String() string { return "http-server" }
