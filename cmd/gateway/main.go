// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

// Package main is the entry point for the Pitchside gateway.
//
// The gateway is the real-time edge of the prediction platform: it accepts
// authenticated websocket connections from the dashboard and mobile
// clients, tracks who is watching which matches, leagues, and agents, and
// fans domain events out to exactly the connections that asked for them.
//
// # Architecture
//
// Components start in this order:
//
//  1. Configuration: Koanf v2 layering defaults, config.yaml, environment
//  2. Hub: connection registry, topic subscriptions, fan-out relay
//  3. Dispatcher: the inbound command table with circuit-broken
//     collaborator calls
//  4. Event bus: Watermill channel plus the bridge router into the relay
//  5. HTTP server: chi router with the websocket endpoint, health probes,
//     and Prometheus metrics
//
// Everything long-running sits under a Suture supervision tree; the
// messaging and API layers restart independently.
//
// # Configuration
//
// Key environment variables (see internal/config for the full set):
//
//   - JWT_SECRET: 32+ character secret verifying connection credentials
//   - HTTP_HOST, HTTP_PORT: listen address (default 0.0.0.0:8090)
//   - ALLOWED_ORIGINS: comma-separated origin allow list
//   - GATEWAY_SEND_BUFFER: per-connection outbound buffer
//   - LOG_LEVEL, LOG_FORMAT: zerolog level and json/console output
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server stops
// accepting connections and drains, the event bridge flushes its router,
// and the hub closes every websocket client.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bandi86/pitchside-gateway/internal/api"
	"github.com/Bandi86/pitchside-gateway/internal/auth"
	"github.com/Bandi86/pitchside-gateway/internal/config"
	"github.com/Bandi86/pitchside-gateway/internal/events"
	"github.com/Bandi86/pitchside-gateway/internal/gateway"
	"github.com/Bandi86/pitchside-gateway/internal/logging"
	"github.com/Bandi86/pitchside-gateway/internal/supervisor"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Msg("starting pitchside gateway")

	verifier, err := auth.NewVerifier(cfg.Security.JWTSecret)
	if err != nil {
		return fmt.Errorf("init verifier: %w", err)
	}

	// Real-time core. Agent and standings collaborators are wired to the
	// unavailable stubs until their services are deployed alongside the
	// gateway; commands that need them answer with a typed error.
	hub := gateway.NewHub(cfg.Gateway)
	hub.AttachDispatcher(gateway.NewDispatcher(
		hub,
		gateway.UnavailableAgentService{},
		gateway.UnavailableStandingsService{},
		cfg.Gateway,
	))

	// Internal event bus and the bridge into the fan-out relay.
	wmLogger := events.NewWatermillLogger(logging.Logger())
	bus := events.NewBus(cfg.Events, wmLogger)
	defer bus.Close()

	publisher := events.NewPublisher(bus)
	defer publisher.Close()

	bridge, err := events.NewBridge(cfg.Events, bus, hub.Relay(), wmLogger)
	if err != nil {
		return fmt.Errorf("init event bridge: %w", err)
	}

	// HTTP surface.
	wsHandler := api.NewWebSocketHandler(cfg.Security, hub, verifier)
	router := api.NewRouter(*cfg, hub, wsHandler)

	// Supervision tree.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddMessagingService(supervisor.NewHubService(hub))
	tree.AddMessagingService(supervisor.NewBridgeService(bridge))
	tree.AddAPIService(supervisor.NewHTTPService(
		cfg.Server.Addr(),
		router.Handler(),
		cfg.Server.Timeout,
		cfg.Server.ShutdownTimeout,
	))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("waiting for supervised services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree failed")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("shutdown error")
		}
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop in time")
		}
	}

	logging.Info().Msg("gateway stopped")
	return nil
}
