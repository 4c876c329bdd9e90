// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package gateway

import (
	"github.com/Bandi86/pitchside-gateway/internal/logging"
	"github.com/Bandi86/pitchside-gateway/internal/metrics"
)

// Sender delivers an envelope to a single connection. Delivery is
// best-effort: TrySend returns false if the connection is gone or its
// buffer is full, and the envelope is dropped for that connection.
type Sender interface {
	TrySend(connectionID string, env Envelope) bool
}

// Relay routes published events to every connection subscribed to the
// target topic. It owns no persistent state; it is a pure router over the
// subscription table and the Sender.
//
// Fan-out is synchronous, so envelopes published to a single topic reach
// each subscriber in publish order. No ordering holds across topics.
type Relay struct {
	subs   *Subscriptions
	sender Sender
}

// NewRelay creates a relay over the given subscription table and sender.
func NewRelay(subs *Subscriptions, sender Sender) *Relay {
	return &Relay{subs: subs, sender: sender}
}

// Publish constructs an envelope and sends it to every current member of
// the target topic. A topic with zero subscribers is the normal, non-error
// case. Returns the number of connections the envelope was handed to.
func (r *Relay) Publish(eventType, topic string, data interface{}) int {
	env := NewEnvelope(eventType, data)
	metrics.EventsPublished.WithLabelValues(eventType).Inc()

	delivered := 0
	for _, connectionID := range r.subs.MembersOf(topic) {
		if r.sender.TrySend(connectionID, env) {
			delivered++
			metrics.EnvelopesDelivered.Inc()
		} else {
			// Connection vanished between lookup and send, or its
			// buffer is full. Best-effort delivery: drop silently.
			metrics.DeliveriesDropped.Inc()
		}
	}

	logging.Debug().
		Str("type", eventType).
		Str("topic", topic).
		Int("delivered", delivered).
		Msg("event fanned out")

	return delivered
}

// PublishToConnection sends an envelope to a single connection, bypassing
// topic lookup. Used for command replies.
func (r *Relay) PublishToConnection(connectionID, eventType string, data interface{}) bool {
	env := NewEnvelope(eventType, data)
	if !r.sender.TrySend(connectionID, env) {
		metrics.DeliveriesDropped.Inc()
		return false
	}
	metrics.EnvelopesDelivered.Inc()
	return true
}
