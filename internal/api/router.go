// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

// Package api exposes the gateway's HTTP surface: the websocket endpoint,
// health probes, and Prometheus metrics, wired on a chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bandi86/pitchside-gateway/internal/config"
	"github.com/Bandi86/pitchside-gateway/internal/gateway"
)

// Router builds the gateway's HTTP handler tree.
type Router struct {
	cfg config.Config
	hub *gateway.Hub
	ws  *WebSocketHandler
}

// NewRouter creates the router with its websocket handler attached.
func NewRouter(cfg config.Config, hub *gateway.Hub, ws *WebSocketHandler) *Router {
	return &Router{cfg: cfg, hub: hub, ws: ws}
}

// Handler assembles the chi middleware stack and routes.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/api/v1/health/live", rt.handleLiveness)
	r.Get("/api/v1/health/ready", rt.handleReadiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if !rt.cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(
				rt.cfg.Security.RateLimitReqs,
				rt.cfg.Security.RateLimitWindow,
			))
		}
		r.Get("/api/v1/ws", rt.ws.Serve)
	})

	return r
}

func (rt *Router) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadiness reports readiness along with current occupancy. The
// gateway holds no external connections of its own, so being up means
// being ready.
func (rt *Router) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	stats := rt.hub.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": stats.Connections,
		"principals":  stats.Principals,
		"topics":      stats.Topics,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
