// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/Bandi86/pitchside-gateway/internal/config"
)

// NewBus creates the in-process Watermill channel the gateway runs on.
// Everything happens inside one process, so a Go channel transport is
// enough; the Publisher/Subscriber interfaces keep the door open for an
// external broker later.
func NewBus(cfg config.EventsConfig, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            cfg.BufferSize,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)
}
