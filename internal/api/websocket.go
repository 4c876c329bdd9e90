// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Bandi86/pitchside-gateway/internal/auth"
	"github.com/Bandi86/pitchside-gateway/internal/config"
	"github.com/Bandi86/pitchside-gateway/internal/gateway"
	"github.com/Bandi86/pitchside-gateway/internal/logging"
	"github.com/Bandi86/pitchside-gateway/internal/metrics"
)

// WebSocketHandler upgrades HTTP requests and authenticates them before
// handing the connection to the hub. The upgrade happens first so an
// authentication failure can be reported as a typed error envelope on the
// socket rather than a bare HTTP status.
type WebSocketHandler struct {
	hub      *gateway.Hub
	verifier *auth.Verifier
	upgrader websocket.Upgrader
}

// NewWebSocketHandler builds the handler with origin checking from config.
func NewWebSocketHandler(cfg config.SecurityConfig, hub *gateway.Hub, verifier *auth.Verifier) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      originChecker(cfg.AllowedOrigins),
		},
	}
}

// originChecker allows requests with no Origin header (native clients) and
// any origin on the allow list. "*" disables the check.
func originChecker(allowed []string) func(*http.Request) bool {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Serve handles GET /api/v1/ws.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		metrics.ConnectionsTotal.WithLabelValues("rejected").Inc()
		logging.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	principalID, err := h.verifier.VerifyCredential(auth.ExtractCredential(r))
	if err != nil {
		h.rejectConnection(conn, r.RemoteAddr, err)
		return
	}

	client := h.hub.Register(conn, principalID)
	client.Start(context.Background())
}

// rejectConnection emits the typed auth error envelope and closes the
// socket. The connection never touches the registry.
func (h *WebSocketHandler) rejectConnection(conn *websocket.Conn, remote string, authErr error) {
	reason := auth.FailureReason(authErr)
	metrics.AuthFailures.WithLabelValues(reason).Inc()
	metrics.ConnectionsTotal.WithLabelValues("rejected").Inc()
	logging.Warn().
		Str("remote", remote).
		Str("reason", reason).
		Msg("websocket authentication failed")

	env := gateway.ErrorEnvelope(gateway.CodeAuthFailed, "authentication failed: "+reason)
	if data, err := gateway.MarshalEnvelope(env); err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
		time.Now().Add(time.Second),
	)
	conn.Close()
}
