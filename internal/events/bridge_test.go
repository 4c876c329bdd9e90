// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package events

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/Bandi86/pitchside-gateway/internal/gateway"
	"github.com/Bandi86/pitchside-gateway/internal/logging"
)

type capturedEvent struct {
	eventType string
	topic     string
	data      interface{}
}

// captureRelay records relayed events and signals arrival.
type captureRelay struct {
	mu     sync.Mutex
	events []capturedEvent
	gotOne chan struct{}
}

func newCaptureRelay() *captureRelay {
	return &captureRelay{gotOne: make(chan struct{}, 16)}
}

func (r *captureRelay) Publish(eventType, topic string, data interface{}) int {
	r.mu.Lock()
	r.events = append(r.events, capturedEvent{eventType: eventType, topic: topic, data: data})
	r.mu.Unlock()
	r.gotOne <- struct{}{}
	return 1
}

func (r *captureRelay) snapshot() []capturedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]capturedEvent, len(r.events))
	copy(out, r.events)
	return out
}

func startBridge(t *testing.T, relay EventRelay) (*Publisher, func()) {
	t.Helper()
	logger := NewWatermillLogger(logging.NewTestLogger(io.Discard))
	bus := NewBus(testEventsConfig(), logger)

	bridge, err := NewBridge(testEventsConfig(), bus, relay, logger)
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
			t.Errorf("bridge run: %v", err)
		}
	}()

	select {
	case <-bridge.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not start")
	}

	pub := NewPublisher(bus)
	return pub, func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("bridge did not stop")
		}
	}
}

func TestBridgeFanOut(t *testing.T) {
	relay := newCaptureRelay()
	pub, stop := startBridge(t, relay)
	defer stop()

	if err := pub.Publish(ScoreUpdate{MatchID: "m1", HomeScore: 1, Minute: 12}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-relay.gotOne:
	case <-time.After(5 * time.Second):
		t.Fatal("event never reached the relay")
	}

	events := relay.snapshot()
	if len(events) != 1 {
		t.Fatalf("relayed events = %d, want 1", len(events))
	}
	got := events[0]
	if got.eventType != gateway.EventScoreUpdate || got.topic != "match:m1" {
		t.Errorf("relayed (%q, %q), want (scoreUpdate, match:m1)", got.eventType, got.topic)
	}
	payload, ok := got.data.(map[string]interface{})
	if !ok {
		t.Fatalf("relayed data type = %T, want decoded object", got.data)
	}
	if payload["matchId"] != "m1" {
		t.Errorf("payload matchId = %v, want m1", payload["matchId"])
	}
}

func TestBridgeOrderingPerTopic(t *testing.T) {
	relay := newCaptureRelay()
	pub, stop := startBridge(t, relay)
	defer stop()

	for minute := 1; minute <= 5; minute++ {
		if err := pub.Publish(ScoreUpdate{MatchID: "m1", Minute: minute}); err != nil {
			t.Fatalf("Publish #%d: %v", minute, err)
		}
	}
	for i := 0; i < 5; i++ {
		select {
		case <-relay.gotOne:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of 5 events arrived", i)
		}
	}

	events := relay.snapshot()
	for i, ev := range events {
		minute := ev.data.(map[string]interface{})["minute"].(float64)
		if int(minute) != i+1 {
			t.Errorf("event %d has minute %v, want %d (publish order)", i, minute, i+1)
		}
	}
}

func TestBridgeDropsUnroutableMessage(t *testing.T) {
	relay := newCaptureRelay()
	logger := NewWatermillLogger(logging.NewTestLogger(io.Discard))
	bus := NewBus(testEventsConfig(), logger)

	bridge, err := NewBridge(testEventsConfig(), bus, relay, logger)
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx)
	<-bridge.Running()

	// A message without routing metadata must be acked and dropped, not
	// retried forever.
	msg := message.NewMessage(watermill.NewUUID(), []byte(`{}`))
	if err := bus.Publish(BusTopic, msg); err != nil {
		t.Fatalf("Publish raw: %v", err)
	}

	// Follow with a routable event and verify it still flows.
	pub := NewPublisher(bus)
	if err := pub.Publish(Notification{UserID: "u1", Title: "still alive"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-relay.gotOne:
	case <-time.After(5 * time.Second):
		t.Fatal("routable event after bad message never arrived")
	}
	events := relay.snapshot()
	if len(events) != 1 || events[0].eventType != gateway.EventNotification {
		t.Errorf("relayed = %+v, want only the notification", events)
	}
}
