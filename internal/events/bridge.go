// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"

	"github.com/Bandi86/pitchside-gateway/internal/config"
	"github.com/Bandi86/pitchside-gateway/internal/metrics"
)

// EventRelay is the sink the bridge hands decoded events to. Satisfied by
// *gateway.Relay.
type EventRelay interface {
	Publish(eventType, topic string, data interface{}) int
}

// Bridge consumes the bus topic and fans each event out through the
// gateway relay. A Watermill router with recoverer and retry middleware
// isolates the fan-out from a badly behaved message.
type Bridge struct {
	router *message.Router
}

// NewBridge builds the router and registers the fan-out handler.
func NewBridge(
	cfg config.EventsConfig,
	subscriber message.Subscriber,
	relay EventRelay,
	logger watermill.LoggerAdapter,
) (*Bridge, error) {
	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create event router: %w", err)
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      cfg.RetryCount,
			InitialInterval: cfg.RetryInterval,
			Logger:          logger,
		}.Middleware,
	)

	router.AddNoPublisherHandler(
		"gateway-fanout",
		BusTopic,
		subscriber,
		func(msg *message.Message) error {
			return fanOut(msg, relay)
		},
	)

	return &Bridge{router: router}, nil
}

// fanOut decodes one bus message and relays it to the target topic's
// members. Messages with missing routing metadata are dropped permanently;
// retrying cannot fix them.
func fanOut(msg *message.Message, relay EventRelay) error {
	envelopeType := msg.Metadata.Get(MetaEnvelopeType)
	targetTopic := msg.Metadata.Get(MetaTargetTopic)
	if envelopeType == "" || targetTopic == "" {
		metrics.BusHandlerFailures.Inc()
		return nil
	}

	var data interface{}
	if err := json.Unmarshal(msg.Payload, &data); err != nil {
		metrics.BusHandlerFailures.Inc()
		return fmt.Errorf("decode %s event payload: %w", envelopeType, err)
	}

	relay.Publish(envelopeType, targetTopic, data)
	return nil
}

// Run starts the router and blocks until the context is canceled and the
// router has drained. Designed for suture supervision.
func (b *Bridge) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running returns a channel closed once the router is ready to consume.
func (b *Bridge) Running() <-chan struct{} {
	return b.router.Running()
}

// Close shuts the router down outside of context cancellation.
func (b *Bridge) Close() error {
	return b.router.Close()
}
