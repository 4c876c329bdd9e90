// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

// Package gateway implements the real-time core: the connection registry,
// topic subscriptions, the fan-out relay, the command dispatcher, and the
// hub that ties a websocket connection's lifecycle to all of them.
//
// The hub is the single owner of connection state. Registration, command
// handling, and teardown run as run-to-completion steps over mutex-guarded
// maps; outbound delivery is non-blocking, so a slow consumer loses
// envelopes instead of stalling publishers.
package gateway
