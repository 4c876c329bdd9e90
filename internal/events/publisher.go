// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package events

import (
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/Bandi86/pitchside-gateway/internal/metrics"
)

// Publisher serializes domain events onto the bus. Safe for concurrent use;
// Publish after Close returns an error instead of panicking on a closed
// transport.
type Publisher struct {
	publisher message.Publisher
	mu        sync.RWMutex
	closed    bool
}

// NewPublisher wraps a Watermill publisher for domain events.
func NewPublisher(publisher message.Publisher) *Publisher {
	return &Publisher{publisher: publisher}
}

// Publish marshals the event and sends it on the bus topic. The envelope
// type and destination gateway topic ride in metadata so the bridge never
// has to re-parse the payload to route it.
func (p *Publisher) Publish(event DomainEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("publish %s: publisher is closed", event.EnvelopeType())
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EnvelopeType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetaEnvelopeType, event.EnvelopeType())
	msg.Metadata.Set(MetaTargetTopic, event.Topic())

	if err := p.publisher.Publish(BusTopic, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", event.EnvelopeType(), err)
	}
	metrics.BusMessagesPublished.WithLabelValues(event.EnvelopeType()).Inc()
	return nil
}

// Close marks the publisher closed and closes the underlying transport.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
