// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

// Package metrics provides Prometheus instrumentation for the gateway:
// connection counts, command handling, event fan-out, and authentication
// outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_active_connections",
			Help: "Current number of registered websocket connections",
		},
	)

	OnlinePrincipals = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_online_principals",
			Help: "Current number of principals with at least one live connection",
		},
	)

	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_connections_total",
			Help: "Total connection attempts by outcome",
		},
		[]string{"outcome"}, // "accepted", "rejected"
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_auth_failures_total",
			Help: "Total authentication failures by reason",
		},
		[]string{"reason"}, // "missing", "invalid", "expired", "no_subject"
	)

	// Command metrics
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_commands_total",
			Help: "Total inbound commands by name and status",
		},
		[]string{"command", "status"}, // status: "ok", "error", "unknown", "unauthorized"
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_command_duration_seconds",
			Help:    "Command handling duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"command"},
	)

	// Subscription metrics
	TopicJoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_topic_joins_total",
			Help: "Total topic join operations",
		},
	)

	TopicLeaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_topic_leaves_total",
			Help: "Total topic leave operations (including teardown)",
		},
	)

	ActiveTopics = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_active_topics",
			Help: "Current number of topics with at least one subscriber",
		},
	)

	// Bus metrics
	BusMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_bus_messages_published_total",
			Help: "Total domain events published onto the internal bus by envelope type",
		},
		[]string{"type"},
	)

	BusHandlerFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_bus_handler_failures_total",
			Help: "Total bus handler invocations that returned an error",
		},
	)

	// Fan-out metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_events_published_total",
			Help: "Total events published to the relay by envelope type",
		},
		[]string{"type"},
	)

	EnvelopesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_envelopes_delivered_total",
			Help: "Total envelopes handed to connection send buffers",
		},
	)

	DeliveriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_deliveries_dropped_total",
			Help: "Total envelope deliveries dropped (full buffer or vanished connection)",
		},
	)
)
