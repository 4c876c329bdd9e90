// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

// Package events is the internal event bus between ingest sources and the
// websocket fan-out. Domain events enter through the Publisher, flow over a
// Watermill channel with retry middleware, and leave through the Bridge
// into the gateway relay.
package events

import (
	"github.com/Bandi86/pitchside-gateway/internal/gateway"
)

// BusTopic is the single Watermill topic all gateway events flow over. The
// destination gateway topic travels in message metadata, so dynamically
// created match and league topics need no per-topic subscriber.
const BusTopic = "gateway.events"

// Message metadata keys.
const (
	MetaEnvelopeType = "envelope_type"
	MetaTargetTopic  = "target_topic"
)

// DomainEvent is anything the gateway can fan out to subscribers. Topic
// decides which member set receives it; EnvelopeType names the wire-level
// envelope the clients see.
type DomainEvent interface {
	EnvelopeType() string
	Topic() string
}

// ScoreUpdate reports a score change in a single live match. Minute is
// optional; zero means unknown and is omitted from the wire form.
type ScoreUpdate struct {
	MatchID   string `json:"matchId"`
	HomeScore int    `json:"homeScore"`
	AwayScore int    `json:"awayScore"`
	Minute    int    `json:"minute,omitempty"`
}

func (e ScoreUpdate) EnvelopeType() string { return gateway.EventScoreUpdate }
func (e ScoreUpdate) Topic() string        { return gateway.MatchTopic(e.MatchID) }

// MatchEvent reports an in-match occurrence such as a goal or a card.
type MatchEvent struct {
	MatchID   string      `json:"matchId"`
	EventType string      `json:"eventType"`
	Minute    int         `json:"minute"`
	Player    string      `json:"player,omitempty"`
	Team      string      `json:"team,omitempty"`
	Detail    interface{} `json:"detail,omitempty"`
}

func (e MatchEvent) EnvelopeType() string { return gateway.EventMatchEvent }
func (e MatchEvent) Topic() string        { return gateway.MatchTopic(e.MatchID) }

// LiveMatchUpdate carries the full live state of one match to its
// followers.
type LiveMatchUpdate struct {
	MatchID string      `json:"matchId"`
	Match   interface{} `json:"match"`
}

func (e LiveMatchUpdate) EnvelopeType() string { return gateway.EventLiveMatchUpdate }
func (e LiveMatchUpdate) Topic() string        { return gateway.MatchTopic(e.MatchID) }

// LiveMatchesBatch carries the state of every in-play match to the global
// live channel.
type LiveMatchesBatch struct {
	Matches interface{} `json:"matches"`
}

func (e LiveMatchesBatch) EnvelopeType() string { return gateway.EventLiveMatchesUpdate }
func (e LiveMatchesBatch) Topic() string        { return gateway.TopicLiveMatches }

// LeagueStandingsUpdate carries a recomputed league table.
type LeagueStandingsUpdate struct {
	LeagueID  string      `json:"leagueId"`
	Standings interface{} `json:"standings"`
}

func (e LeagueStandingsUpdate) EnvelopeType() string { return gateway.EventLeagueStandingsUpdate }
func (e LeagueStandingsUpdate) Topic() string        { return gateway.LeagueTopic(e.LeagueID) }

// LeagueUpdate carries a general league change (fixtures, metadata).
type LeagueUpdate struct {
	LeagueID string      `json:"leagueId"`
	Update   interface{} `json:"update"`
}

func (e LeagueUpdate) EnvelopeType() string { return gateway.EventLeagueUpdate }
func (e LeagueUpdate) Topic() string        { return gateway.LeagueTopic(e.LeagueID) }

// PredictionUpdate targets one principal's private prediction channel.
type PredictionUpdate struct {
	UserID     string      `json:"userId"`
	Prediction interface{} `json:"prediction"`
}

func (e PredictionUpdate) EnvelopeType() string { return gateway.EventPredictionUpdate }
func (e PredictionUpdate) Topic() string        { return gateway.PredictionsTopic(e.UserID) }

// Notification targets one principal's private user channel.
type Notification struct {
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Body    string `json:"body,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

func (e Notification) EnvelopeType() string { return gateway.EventNotification }
func (e Notification) Topic() string        { return gateway.UserTopic(e.UserID) }

// AgentEvent is the generic event emitted by an analysis agent to its
// followers.
type AgentEvent struct {
	AgentID string      `json:"agentId"`
	Event   interface{} `json:"event"`
}

func (e AgentEvent) EnvelopeType() string { return gateway.EventAgentEvent }
func (e AgentEvent) Topic() string        { return gateway.AgentTopic(e.AgentID) }

// AgentStatusUpdate reports an agent lifecycle state change.
type AgentStatusUpdate struct {
	AgentID string      `json:"agentId"`
	Status  interface{} `json:"status"`
}

func (e AgentStatusUpdate) EnvelopeType() string { return gateway.EventAgentStatusUpdate }
func (e AgentStatusUpdate) Topic() string        { return gateway.AgentTopic(e.AgentID) }

// AgentTaskUpdate reports progress of a running agent task.
type AgentTaskUpdate struct {
	AgentID string      `json:"agentId"`
	TaskID  string      `json:"taskId"`
	Task    interface{} `json:"task"`
}

func (e AgentTaskUpdate) EnvelopeType() string { return gateway.EventAgentTaskUpdate }
func (e AgentTaskUpdate) Topic() string        { return gateway.AgentTopic(e.AgentID) }

// AgentInsight carries a produced insight or recommendation.
type AgentInsight struct {
	AgentID string      `json:"agentId"`
	Insight interface{} `json:"insight"`
}

func (e AgentInsight) EnvelopeType() string { return gateway.EventAgentInsight }
func (e AgentInsight) Topic() string        { return gateway.AgentTopic(e.AgentID) }

// AgentPerformanceUpdate carries metrics about an agent's prediction
// accuracy.
type AgentPerformanceUpdate struct {
	AgentID     string      `json:"agentId"`
	Performance interface{} `json:"performance"`
}

func (e AgentPerformanceUpdate) EnvelopeType() string { return gateway.EventAgentPerformanceUpdate }
func (e AgentPerformanceUpdate) Topic() string        { return gateway.AgentTopic(e.AgentID) }

// AgentError reports a failure inside an agent to its followers.
type AgentError struct {
	AgentID string `json:"agentId"`
	Error   string `json:"error"`
}

func (e AgentError) EnvelopeType() string { return gateway.EventAgentError }
func (e AgentError) Topic() string        { return gateway.AgentTopic(e.AgentID) }
