// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package config

import (
	"fmt"
	"time"
)

const (
	minJWTSecretLength = 32
	maxSendBuffer      = 1 << 16
	minPongWait        = time.Second
	maxMessageSizeCap  = 10 << 20 // 10MB
)

// Validate checks the configuration for internal consistency. It returns
// the first error found.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateSecurity,
		c.validateGateway,
		c.validateEvents,
	}

	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required but was empty")
	}
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS must not be empty; use * to allow any origin")
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQS must be at least 1")
		}
		if c.Security.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	return nil
}

func (c *Config) validateGateway() error {
	if c.Gateway.SendBuffer < 1 || c.Gateway.SendBuffer > maxSendBuffer {
		return fmt.Errorf("GATEWAY_SEND_BUFFER must be between 1 and %d", maxSendBuffer)
	}
	if c.Gateway.WriteWait <= 0 {
		return fmt.Errorf("GATEWAY_WRITE_WAIT must be positive")
	}
	if c.Gateway.PongWait < minPongWait {
		return fmt.Errorf("GATEWAY_PONG_WAIT must be at least 1s")
	}
	if c.Gateway.MaxMessageSize < 1 || c.Gateway.MaxMessageSize > maxMessageSizeCap {
		return fmt.Errorf("GATEWAY_MAX_MESSAGE_SIZE must be between 1 and %d bytes", maxMessageSizeCap)
	}
	if c.Gateway.CommandTimeout <= 0 {
		return fmt.Errorf("GATEWAY_COMMAND_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.BufferSize < 1 {
		return fmt.Errorf("EVENTS_BUFFER_SIZE must be at least 1")
	}
	if c.Events.RetryCount < 0 {
		return fmt.Errorf("EVENTS_RETRY_COUNT must not be negative")
	}
	if c.Events.CloseTimeout <= 0 {
		return fmt.Errorf("EVENTS_CLOSE_TIMEOUT must be positive")
	}
	return nil
}
