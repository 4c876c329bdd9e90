// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package gateway

import (
	"context"
	"sort"
	"sync"

	"github.com/Bandi86/pitchside-gateway/internal/config"
	"github.com/Bandi86/pitchside-gateway/internal/logging"
	"github.com/Bandi86/pitchside-gateway/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path
	// (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was
	// exceeded. This may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub owns the connection lifecycle: it holds the live client set, the
// connection registry, and the subscription table, and coordinates the
// teardown sequence so no subscription outlives its connection.
//
// All state mutations are run-to-completion handler calls guarded by the
// component locks; the hub itself never blocks on I/O.
type Hub struct {
	cfg        config.GatewayConfig
	registry   *Registry
	subs       *Subscriptions
	relay      *Relay
	dispatcher *Dispatcher

	mu      sync.RWMutex
	clients map[string]*Client
}

// Stats is a point-in-time snapshot of gateway occupancy.
type Stats struct {
	Connections int `json:"connections"`
	Principals  int `json:"principals"`
	Topics      int `json:"topics"`
}

// NewHub creates a hub with empty registry and subscription state.
func NewHub(cfg config.GatewayConfig) *Hub {
	h := &Hub{
		cfg:      cfg,
		registry: NewRegistry(),
		subs:     NewSubscriptions(),
		clients:  make(map[string]*Client),
	}
	h.relay = NewRelay(h.subs, h)
	return h
}

// AttachDispatcher wires the command dispatcher. Must be called before the
// first connection is accepted.
func (h *Hub) AttachDispatcher(d *Dispatcher) {
	h.dispatcher = d
}

// Registry returns the connection registry.
func (h *Hub) Registry() *Registry { return h.registry }

// Subscriptions returns the topic subscription table.
func (h *Hub) Subscriptions() *Subscriptions { return h.subs }

// Relay returns the event relay bound to this hub.
func (h *Hub) Relay() *Relay { return h.relay }

// Register attaches an authenticated connection to the hub: it records the
// connection under its principal, auto-joins the principal's private
// channels, acknowledges with a connected envelope, and announces presence
// if the principal just came online.
//
// The caller must have resolved the principal already; a connection with no
// principal must never reach this point.
func (h *Hub) Register(conn wsConn, principalID string) *Client {
	client := newClient(h, conn, principalID, h.cfg)

	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	cameOnline := h.registry.Register(client.id, principalID)

	// Private channels are principal-scoped by convention: every
	// connection of the principal is subscribed at registration time.
	h.subs.Join(client.id, UserTopic(principalID))
	h.subs.Join(client.id, PredictionsTopic(principalID))

	h.TrySend(client.id, NewEnvelope(EventConnected, ConnectedData{
		UserID:   principalID,
		SocketID: client.id,
	}))

	if cameOnline {
		h.relay.Publish(EventUserPresence, TopicLiveMatches, PresenceData{
			UserID:   principalID,
			IsOnline: true,
		})
	}

	metrics.ConnectionsTotal.WithLabelValues("accepted").Inc()
	logging.Info().
		Str("socket_id", client.id).
		Str("user_id", principalID).
		Int("total_clients", total).
		Msg("client connected")

	return client
}

// Disconnect tears a connection down: it removes the client, clears every
// topic membership, and unregisters the connection, announcing presence if
// the principal went offline. The sequence always runs as one logical step
// and is idempotent; transport disconnect handlers may fire more than once.
func (h *Hub) Disconnect(connectionID string) {
	h.mu.Lock()
	client, ok := h.clients[connectionID]
	if ok {
		delete(h.clients, connectionID)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	// Teardown of registry and subscription state runs regardless of
	// whether the client entry was still present.
	h.subs.LeaveAll(connectionID)
	principalID, wentOffline := h.registry.Unregister(connectionID)

	if wentOffline {
		h.relay.Publish(EventUserPresence, TopicLiveMatches, PresenceData{
			UserID:   principalID,
			IsOnline: false,
		})
	}

	if ok {
		logging.Info().
			Str("socket_id", connectionID).
			Str("user_id", principalID).
			Int("total_clients", total).
			Msg("client disconnected")
	}
}

// TrySend implements Sender. The send is non-blocking: a full buffer drops
// the envelope rather than stalling the publisher. The read lock excludes
// the channel close in Disconnect, so sending never races a close.
func (h *Hub) TrySend(connectionID string, env Envelope) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connectionID]
	if !ok {
		return false
	}
	select {
	case client.send <- env:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Snapshot returns current gateway occupancy for health reporting.
func (h *Hub) Snapshot() Stats {
	return Stats{
		Connections: h.registry.ConnectionCount(),
		Principals:  h.registry.PrincipalCount(),
		Topics:      h.subs.TopicCount(),
	}
}

// RunWithContext blocks until the context is canceled, then closes all
// connected clients. Designed for suture supervision; returns ctx.Err() so
// the supervisor treats cancellation as a normal stop.
func (h *Hub) RunWithContext(ctx context.Context) error {
	<-ctx.Done()

	closed := h.closeAllClients()

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}
	logging.Info().
		Str("component", "gateway-hub").
		Str("reason", string(reason)).
		Int("clients_closed", closed).
		Msg("gateway hub stopped")

	return ctx.Err()
}

// closeAllClients disconnects every client in id order for deterministic
// shutdown behavior. Returns the number of clients closed.
func (h *Hub) closeAllClients() int {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Strings(ids)

	for _, id := range ids {
		h.Disconnect(id)
	}
	return len(ids)
}
