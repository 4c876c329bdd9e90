// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package gateway

// Error codes carried in error envelopes. Authentication errors are fatal
// to the connection; all other errors are local to the command that caused
// them.
const (
	CodeAuthRequired    = "AUTH_REQUIRED"
	CodeAuthFailed      = "AUTH_FAILED"
	CodeConnectionError = "CONNECTION_ERROR"
	CodeUnknownCommand  = "UNKNOWN_COMMAND"
	CodeCommandError    = "COMMAND_ERROR"
	CodeForbidden       = "FORBIDDEN"
)
