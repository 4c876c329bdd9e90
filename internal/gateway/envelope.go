// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package gateway

import (
	"time"

	"github.com/goccy/go-json"
)

// Envelope types delivered to clients. The type names are the wire-level
// contract with the dashboard and mobile clients.
const (
	EventConnected = "connected"
	EventError     = "error"
	EventPong      = "pong"

	EventJoinedMatch  = "joinedMatch"
	EventLeftMatch    = "leftMatch"
	EventJoinedLeague = "joinedLeague"
	EventLeftLeague   = "leftLeague"
	EventJoinedAgent  = "joinedAgent"
	EventLeftAgent    = "leftAgent"
	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"

	EventLiveMatchUpdate       = "liveMatchUpdate"
	EventScoreUpdate           = "scoreUpdate"
	EventMatchEvent            = "matchEvent"
	EventLiveMatchesUpdate     = "liveMatchesUpdate"
	EventLeagueStandingsUpdate = "leagueStandingsUpdate"
	EventLeagueUpdate          = "leagueUpdate"
	EventPredictionUpdate      = "predictionUpdate"
	EventNotification          = "notification"
	EventUserPresence          = "userPresence"

	EventAgentEvent             = "agentEvent"
	EventAgentStatusUpdate      = "agentStatusUpdate"
	EventAgentTaskUpdate        = "agentTaskUpdate"
	EventAgentInsight           = "agentInsight"
	EventAgentPerformanceUpdate = "agentPerformanceUpdate"
	EventAgentError             = "agentError"
	EventCommandExecuted        = "commandExecuted"
)

// Envelope is the typed, timestamped message unit delivered to subscribers.
// It is never mutated after construction.
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewEnvelope constructs an envelope stamped with the current UTC time.
func NewEnvelope(eventType string, data interface{}) Envelope {
	return Envelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ErrorEnvelope constructs an error envelope with a stable code.
func ErrorEnvelope(code, message string) Envelope {
	return NewEnvelope(EventError, ErrorData{Code: code, Message: message})
}

// ConnectedData acknowledges a successful registration.
type ConnectedData struct {
	UserID   string `json:"userId"`
	SocketID string `json:"socketId"`
}

// ErrorData carries an error code and human-readable message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TopicAck acknowledges a subscribe/unsubscribe command.
type TopicAck struct {
	Topic string `json:"topic"`
}

// MatchAck acknowledges a match join/leave.
type MatchAck struct {
	MatchID string `json:"matchId"`
}

// LeagueAck acknowledges a league join/leave.
type LeagueAck struct {
	LeagueID string `json:"leagueId"`
}

// AgentAck acknowledges an agent join/leave.
type AgentAck struct {
	AgentID string `json:"agentId"`
}

// PresenceData announces a principal's online state transition.
type PresenceData struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// CommandResult relays an agent control command outcome to the requester.
type CommandResult struct {
	AgentID string      `json:"agentId"`
	Command string      `json:"command"`
	Result  interface{} `json:"result,omitempty"`
}

// StandingsData carries a league standings snapshot.
type StandingsData struct {
	LeagueID  string      `json:"leagueId"`
	Standings interface{} `json:"standings"`
}

// MarshalEnvelope converts an envelope to JSON.
func MarshalEnvelope(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}
