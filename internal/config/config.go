// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

// Package config provides layered configuration for the gateway using
// Koanf v2: built-in defaults, an optional YAML file, and environment
// variables, in ascending priority.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the gateway process.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Events   EventsConfig   `koanf:"events"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
	// ShutdownTimeout bounds graceful shutdown of in-flight connections.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds authentication and rate limiting settings.
type SecurityConfig struct {
	// JWTSecret signs and verifies connection credentials. Required,
	// minimum 32 characters.
	JWTSecret string `koanf:"jwt_secret"`

	// AllowedOrigins is the set of origins accepted for the websocket
	// handshake and CORS. "*" allows any origin.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// RateLimitReqs is the number of handshake attempts allowed per
	// RateLimitWindow per client IP.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// GatewayConfig holds connection and command handling settings.
type GatewayConfig struct {
	// SendBuffer is the per-connection outbound envelope buffer. A
	// connection that falls this far behind is dropped.
	SendBuffer int `koanf:"send_buffer"`

	// WriteWait bounds a single websocket write.
	WriteWait time.Duration `koanf:"write_wait"`

	// PongWait is how long a connection may go without a pong before it
	// is considered dead. Pings are sent at 9/10 of this interval.
	PongWait time.Duration `koanf:"pong_wait"`

	// MaxMessageSize caps inbound command frames in bytes.
	MaxMessageSize int64 `koanf:"max_message_size"`

	// CommandTimeout bounds calls to external collaborators (agent
	// lifecycle, standings lookups) made on behalf of a command.
	CommandTimeout time.Duration `koanf:"command_timeout"`

	// AgentBreaker configures the circuit breaker in front of the agent
	// lifecycle collaborator.
	AgentBreaker BreakerConfig `koanf:"agent_breaker"`
}

// BreakerConfig holds circuit breaker settings for a collaborator.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

// EventsConfig holds internal event bus settings.
type EventsConfig struct {
	// BufferSize is the gochannel subscriber buffer per topic.
	BufferSize int64 `koanf:"buffer_size"`

	// RetryCount is how many times the bridge retries a handler before
	// giving up on a message.
	RetryCount int `koanf:"retry_count"`

	// RetryInterval is the initial backoff between handler retries.
	RetryInterval time.Duration `koanf:"retry_interval"`

	// CloseTimeout bounds router shutdown.
	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load loads configuration from defaults, optional YAML file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	return loadWithKoanf()
}
