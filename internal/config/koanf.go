// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/pitchside/config.yaml",
	"/etc/pitchside/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			JWTSecret:         "",
			AllowedOrigins:    []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Gateway: GatewayConfig{
			SendBuffer:     256,
			WriteWait:      10 * time.Second,
			PongWait:       60 * time.Second,
			MaxMessageSize: 64 * 1024,
			CommandTimeout: 10 * time.Second,
			AgentBreaker: BreakerConfig{
				MaxRequests:      3,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
		},
		Events: EventsConfig{
			BufferSize:    256,
			RetryCount:    3,
			RetryInterval: 100 * time.Millisecond,
			CloseTimeout:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// loadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML file (if present)
//  3. Environment variables: override any setting
func loadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// GATEWAY_SEND_BUFFER -> gateway.send_buffer, JWT_SECRET -> security.jwt_secret
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// supplied through environment variables.
var sliceConfigPaths = []string{
	"security.allowed_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - JWT_SECRET -> security.jwt_secret
//   - GATEWAY_SEND_BUFFER -> gateway.send_buffer
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"http_host":             "server.host",
		"http_port":             "server.port",
		"http_timeout":          "server.timeout",
		"http_shutdown_timeout": "server.shutdown_timeout",

		"jwt_secret":          "security.jwt_secret",
		"allowed_origins":     "security.allowed_origins",
		"rate_limit_reqs":     "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"rate_limit_disabled": "security.rate_limit_disabled",

		"gateway_send_buffer":      "gateway.send_buffer",
		"gateway_write_wait":       "gateway.write_wait",
		"gateway_pong_wait":        "gateway.pong_wait",
		"gateway_max_message_size": "gateway.max_message_size",
		"gateway_command_timeout":  "gateway.command_timeout",

		"events_buffer_size":    "events.buffer_size",
		"events_retry_count":    "events.retry_count",
		"events_retry_interval": "events.retry_interval",
		"events_close_timeout":  "events.close_timeout",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	// Env vars outside the known set are ignored rather than guessed at.
	return ""
}
