// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package gateway

import (
	"sort"
	"sync"

	"github.com/Bandi86/pitchside-gateway/internal/metrics"
)

// Registry is the source of truth mapping principals to their live
// connections. It supports multiple concurrent connections per principal
// (multi-device) and never performs I/O; unknown ids produce empty results
// rather than errors.
//
// Invariant: every connection in a principal's set maps back to that
// principal in the reverse index, and no connection appears under two
// principals.
type Registry struct {
	mu           sync.RWMutex
	byPrincipal  map[string]map[string]struct{}
	byConnection map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byPrincipal:  make(map[string]map[string]struct{}),
		byConnection: make(map[string]string),
	}
}

// Register adds a connection under the principal's connection set.
// Idempotent per connection id; a connection already registered is left
// untouched, including its original principal. Returns true when the
// principal transitioned from offline to online.
func (r *Registry) Register(connectionID, principalID string) bool {
	if connectionID == "" || principalID == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byConnection[connectionID]; exists {
		return false
	}

	set, online := r.byPrincipal[principalID]
	if set == nil {
		set = make(map[string]struct{})
		r.byPrincipal[principalID] = set
	}
	set[connectionID] = struct{}{}
	r.byConnection[connectionID] = principalID

	metrics.ActiveConnections.Set(float64(len(r.byConnection)))
	metrics.OnlinePrincipals.Set(float64(len(r.byPrincipal)))

	return !online
}

// Unregister removes a connection from its principal's set. If the set
// becomes empty, the principal entry itself is removed. Calling it twice
// for the same connection is a no-op, not an error; disconnect handlers may
// fire more than once from the transport layer.
//
// Returns the owning principal and true when that principal went offline.
func (r *Registry) Unregister(connectionID string) (principalID string, wentOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	principalID, ok := r.byConnection[connectionID]
	if !ok {
		return "", false
	}

	delete(r.byConnection, connectionID)
	if set := r.byPrincipal[principalID]; set != nil {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(r.byPrincipal, principalID)
			wentOffline = true
		}
	}

	metrics.ActiveConnections.Set(float64(len(r.byConnection)))
	metrics.OnlinePrincipals.Set(float64(len(r.byPrincipal)))

	return principalID, wentOffline
}

// ConnectionsOf returns the live connection ids for a principal, sorted for
// deterministic iteration. Empty slice if the principal is unknown.
func (r *Registry) ConnectionsOf(principalID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byPrincipal[principalID]
	conns := make([]string, 0, len(set))
	for id := range set {
		conns = append(conns, id)
	}
	sort.Strings(conns)
	return conns
}

// IsOnline reports whether the principal has at least one live connection.
func (r *Registry) IsOnline(principalID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPrincipal[principalID]) > 0
}

// PrincipalOf returns the principal owning a connection. The second return
// is false if the connection was never registered or has been unregistered.
func (r *Registry) PrincipalOf(connectionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	principalID, ok := r.byConnection[connectionID]
	return principalID, ok
}

// ConnectionCount returns the number of registered connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConnection)
}

// PrincipalCount returns the number of principals currently online.
func (r *Registry) PrincipalCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPrincipal)
}
