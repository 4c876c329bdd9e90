// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/Bandi86/pitchside-gateway/internal/config"
	"github.com/Bandi86/pitchside-gateway/internal/logging"
	"github.com/Bandi86/pitchside-gateway/internal/metrics"
)

// Agent control commands accepted over the wire.
const (
	agentCmdStart  = "start"
	agentCmdStop   = "stop"
	agentCmdStatus = "status"
	agentCmdHealth = "health"
)

// commandError carries a stable error code back to the requesting
// connection. Handlers return it for anything the client caused.
type commandError struct {
	Code    string
	Message string
}

func (e *commandError) Error() string { return e.Message }

func newCommandError(code, format string, args ...interface{}) *commandError {
	return &commandError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CommandRequest is the decoded context a handler runs with. The principal
// was resolved from the registry immediately before the handler was picked.
type CommandRequest struct {
	ConnectionID string
	PrincipalID  string
	Payload      json.RawMessage
}

type commandHandler func(ctx context.Context, req *CommandRequest) error

// Dispatcher routes inbound command frames to their handlers. The handler
// table is fixed at construction, so an unregistered command name can never
// reach application code. Each external collaborator gets its own circuit
// breaker so a failing standings source can never reject agent commands,
// and vice versa.
type Dispatcher struct {
	hub              *Hub
	agents           AgentService
	standings        StandingsService
	timeout          time.Duration
	agentBreaker     *gobreaker.CircuitBreaker[interface{}]
	standingsBreaker *gobreaker.CircuitBreaker[interface{}]
	handlers         map[string]commandHandler
}

// NewDispatcher builds the dispatcher with its full command table.
func NewDispatcher(hub *Hub, agents AgentService, standings StandingsService, cfg config.GatewayConfig) *Dispatcher {
	d := &Dispatcher{
		hub:              hub,
		agents:           agents,
		standings:        standings,
		timeout:          cfg.CommandTimeout,
		agentBreaker:     newCollaboratorBreaker("agent-service", cfg.AgentBreaker),
		standingsBreaker: newCollaboratorBreaker("standings-service", cfg.AgentBreaker),
	}
	d.handlers = map[string]commandHandler{
		"ping":                             d.handlePing,
		"joinMatch":                        d.handleJoinMatch,
		"leaveMatch":                       d.handleLeaveMatch,
		"joinLeague":                       d.handleJoinLeague,
		"leaveLeague":                      d.handleLeaveLeague,
		"joinAgent":                        d.handleJoinAgent,
		"leaveAgent":                       d.handleLeaveAgent,
		"subscribeToLiveMatches":           d.handleSubscribeLiveMatches,
		"unsubscribeFromLiveMatches":       d.handleUnsubscribeLiveMatches,
		"subscribeToLeagueUpdates":         d.handleSubscribeLeagueUpdates,
		"unsubscribeFromLeagueUpdates":     d.handleUnsubscribeLeagueUpdates,
		"subscribeToPredictionUpdates":     d.handleSubscribePredictionUpdates,
		"unsubscribeFromPredictionUpdates": d.handleUnsubscribePredictionUpdates,
		"agentCommand":                     d.handleAgentCommand,
	}
	return d
}

// newCollaboratorBreaker builds the circuit breaker guarding one external
// collaborator. Consecutive failures past the threshold open the circuit;
// commands then fail fast instead of piling up on a dead service. Breakers
// are per dependency, so an open circuit stays local to its collaborator.
func newCollaboratorBreaker(name string, cfg config.BreakerConfig) *gobreaker.CircuitBreaker[interface{}] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}
	return gobreaker.NewCircuitBreaker[interface{}](settings)
}

// Commands returns the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch resolves the principal, routes the command, and replies with an
// error envelope on any failure. Handler panics are contained here; a bad
// payload must never take the gateway down.
func (d *Dispatcher) Dispatch(ctx context.Context, connectionID, command string, payload json.RawMessage) {
	start := time.Now()
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "error"
			logging.Error().
				Str("socket_id", connectionID).
				Str("command", command).
				Interface("panic", r).
				Msg("command handler panicked")
			d.replyError(connectionID, CodeCommandError, "internal error handling command")
		}
		metrics.CommandsTotal.WithLabelValues(command, status).Inc()
		metrics.CommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	}()

	principalID, ok := d.hub.registry.PrincipalOf(connectionID)
	if !ok {
		status = "unauthorized"
		d.replyError(connectionID, CodeAuthRequired, "connection is not authenticated")
		return
	}

	handler, ok := d.handlers[command]
	if !ok {
		status = "unknown"
		d.replyError(connectionID, CodeUnknownCommand, "unknown command %q", command)
		return
	}

	req := &CommandRequest{
		ConnectionID: connectionID,
		PrincipalID:  principalID,
		Payload:      payload,
	}
	if err := handler(ctx, req); err != nil {
		status = "error"
		var cmdErr *commandError
		if errors.As(err, &cmdErr) {
			d.replyError(connectionID, cmdErr.Code, "%s", cmdErr.Message)
		} else {
			logging.Warn().
				Err(err).
				Str("socket_id", connectionID).
				Str("command", command).
				Msg("command failed")
			d.replyError(connectionID, CodeCommandError, "command %q failed", command)
		}
	}
}

func (d *Dispatcher) replyError(connectionID, code, format string, args ...interface{}) {
	d.hub.relay.PublishToConnection(connectionID, EventError, ErrorData{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

func (d *Dispatcher) reply(req *CommandRequest, eventType string, data interface{}) {
	d.hub.relay.PublishToConnection(req.ConnectionID, eventType, data)
}

// joinTopic subscribes the connection after enforcing the ownership rule
// for private channels. All join-style handlers funnel through here.
func (d *Dispatcher) joinTopic(req *CommandRequest, topic string) error {
	if IsPrivateTopic(topic) && !ownsPrivateTopic(req.PrincipalID, topic) {
		return newCommandError(CodeForbidden, "not allowed to join %q", topic)
	}
	d.hub.subs.Join(req.ConnectionID, topic)
	return nil
}

func (d *Dispatcher) handlePing(_ context.Context, req *CommandRequest) error {
	d.reply(req, EventPong, struct{}{})
	return nil
}

type matchPayload struct {
	MatchID string `json:"matchId"`
}

func (d *Dispatcher) handleJoinMatch(_ context.Context, req *CommandRequest) error {
	var p matchPayload
	if err := decodePayload(req.Payload, &p); err != nil {
		return err
	}
	if err := ValidateTopicID(p.MatchID); err != nil {
		return newCommandError(CodeCommandError, "invalid matchId: %v", err)
	}
	if err := d.joinTopic(req, MatchTopic(p.MatchID)); err != nil {
		return err
	}
	d.reply(req, EventJoinedMatch, MatchAck{MatchID: p.MatchID})
	return nil
}

func (d *Dispatcher) handleLeaveMatch(_ context.Context, req *CommandRequest) error {
	var p matchPayload
	if err := decodePayload(req.Payload, &p); err != nil {
		return err
	}
	if err := ValidateTopicID(p.MatchID); err != nil {
		return newCommandError(CodeCommandError, "invalid matchId: %v", err)
	}
	d.hub.subs.Leave(req.ConnectionID, MatchTopic(p.MatchID))
	d.reply(req, EventLeftMatch, MatchAck{MatchID: p.MatchID})
	return nil
}

type leaguePayload struct {
	LeagueID string `json:"leagueId"`
}

func (d *Dispatcher) handleJoinLeague(_ context.Context, req *CommandRequest) error {
	var p leaguePayload
	if err := decodePayload(req.Payload, &p); err != nil {
		return err
	}
	if err := ValidateTopicID(p.LeagueID); err != nil {
		return newCommandError(CodeCommandError, "invalid leagueId: %v", err)
	}
	if err := d.joinTopic(req, LeagueTopic(p.LeagueID)); err != nil {
		return err
	}
	d.reply(req, EventJoinedLeague, LeagueAck{LeagueID: p.LeagueID})
	return nil
}

func (d *Dispatcher) handleLeaveLeague(_ context.Context, req *CommandRequest) error {
	var p leaguePayload
	if err := decodePayload(req.Payload, &p); err != nil {
		return err
	}
	if err := ValidateTopicID(p.LeagueID); err != nil {
		return newCommandError(CodeCommandError, "invalid leagueId: %v", err)
	}
	d.hub.subs.Leave(req.ConnectionID, LeagueTopic(p.LeagueID))
	d.reply(req, EventLeftLeague, LeagueAck{LeagueID: p.LeagueID})
	return nil
}

type agentPayload struct {
	AgentID string `json:"agentId"`
}

func (d *Dispatcher) handleJoinAgent(_ context.Context, req *CommandRequest) error {
	var p agentPayload
	if err := decodePayload(req.Payload, &p); err != nil {
		return err
	}
	if err := ValidateTopicID(p.AgentID); err != nil {
		return newCommandError(CodeCommandError, "invalid agentId: %v", err)
	}
	if err := d.joinTopic(req, AgentTopic(p.AgentID)); err != nil {
		return err
	}
	d.reply(req, EventJoinedAgent, AgentAck{AgentID: p.AgentID})
	return nil
}

func (d *Dispatcher) handleLeaveAgent(_ context.Context, req *CommandRequest) error {
	var p agentPayload
	if err := decodePayload(req.Payload, &p); err != nil {
		return err
	}
	if err := ValidateTopicID(p.AgentID); err != nil {
		return newCommandError(CodeCommandError, "invalid agentId: %v", err)
	}
	d.hub.subs.Leave(req.ConnectionID, AgentTopic(p.AgentID))
	d.reply(req, EventLeftAgent, AgentAck{AgentID: p.AgentID})
	return nil
}

func (d *Dispatcher) handleSubscribeLiveMatches(_ context.Context, req *CommandRequest) error {
	if err := d.joinTopic(req, TopicLiveMatches); err != nil {
		return err
	}
	d.reply(req, EventSubscribed, TopicAck{Topic: TopicLiveMatches})
	return nil
}

func (d *Dispatcher) handleUnsubscribeLiveMatches(_ context.Context, req *CommandRequest) error {
	d.hub.subs.Leave(req.ConnectionID, TopicLiveMatches)
	d.reply(req, EventUnsubscribed, TopicAck{Topic: TopicLiveMatches})
	return nil
}

func (d *Dispatcher) handleSubscribeLeagueUpdates(ctx context.Context, req *CommandRequest) error {
	var p leaguePayload
	if err := decodePayload(req.Payload, &p); err != nil {
		return err
	}
	if err := ValidateTopicID(p.LeagueID); err != nil {
		return newCommandError(CodeCommandError, "invalid leagueId: %v", err)
	}
	topic := LeagueTopic(p.LeagueID)
	if err := d.joinTopic(req, topic); err != nil {
		return err
	}
	d.reply(req, EventSubscribed, TopicAck{Topic: topic})

	// Best-effort standings snapshot so the subscriber has an initial
	// table before the first delta arrives.
	snapshot, err := d.callCollaborator(ctx, d.standingsBreaker, func(callCtx context.Context) (interface{}, error) {
		return d.standings.GetStandings(callCtx, p.LeagueID)
	})
	if err != nil {
		if !errors.Is(err, ErrCollaboratorUnavailable) {
			logging.Debug().
				Err(err).
				Str("league_id", p.LeagueID).
				Msg("standings snapshot unavailable")
		}
		return nil
	}

	// State may have changed while the call was in flight.
	if _, ok := d.hub.registry.PrincipalOf(req.ConnectionID); !ok {
		return nil
	}
	d.reply(req, EventLeagueStandingsUpdate, StandingsData{
		LeagueID:  p.LeagueID,
		Standings: snapshot,
	})
	return nil
}

func (d *Dispatcher) handleUnsubscribeLeagueUpdates(_ context.Context, req *CommandRequest) error {
	var p leaguePayload
	if err := decodePayload(req.Payload, &p); err != nil {
		return err
	}
	if err := ValidateTopicID(p.LeagueID); err != nil {
		return newCommandError(CodeCommandError, "invalid leagueId: %v", err)
	}
	topic := LeagueTopic(p.LeagueID)
	d.hub.subs.Leave(req.ConnectionID, topic)
	d.reply(req, EventUnsubscribed, TopicAck{Topic: topic})
	return nil
}

func (d *Dispatcher) handleSubscribePredictionUpdates(_ context.Context, req *CommandRequest) error {
	// The topic is derived from the caller's own principal, so ownership
	// holds by construction.
	topic := PredictionsTopic(req.PrincipalID)
	if err := d.joinTopic(req, topic); err != nil {
		return err
	}
	d.reply(req, EventSubscribed, TopicAck{Topic: topic})
	return nil
}

func (d *Dispatcher) handleUnsubscribePredictionUpdates(_ context.Context, req *CommandRequest) error {
	topic := PredictionsTopic(req.PrincipalID)
	d.hub.subs.Leave(req.ConnectionID, topic)
	d.reply(req, EventUnsubscribed, TopicAck{Topic: topic})
	return nil
}

type agentCommandPayload struct {
	AgentID string `json:"agentId"`
	Command string `json:"command"`
}

func (d *Dispatcher) handleAgentCommand(ctx context.Context, req *CommandRequest) error {
	var p agentCommandPayload
	if err := decodePayload(req.Payload, &p); err != nil {
		return err
	}
	if err := ValidateTopicID(p.AgentID); err != nil {
		return newCommandError(CodeCommandError, "invalid agentId: %v", err)
	}

	result, err := d.callCollaborator(ctx, d.agentBreaker, func(callCtx context.Context) (interface{}, error) {
		switch p.Command {
		case agentCmdStart:
			return nil, d.agents.StartAgent(callCtx, p.AgentID)
		case agentCmdStop:
			return nil, d.agents.StopAgent(callCtx, p.AgentID)
		case agentCmdStatus:
			return d.agents.AgentStatus(callCtx, p.AgentID)
		case agentCmdHealth:
			return d.agents.AgentHealth(callCtx, p.AgentID)
		default:
			return nil, newCommandError(CodeCommandError, "unsupported agent command %q", p.Command)
		}
	})

	// The connection may have dropped while the agent call was in
	// flight; never reply to a torn-down connection.
	if _, ok := d.hub.registry.PrincipalOf(req.ConnectionID); !ok {
		return nil
	}

	if err != nil {
		var cmdErr *commandError
		if errors.As(err, &cmdErr) {
			return cmdErr
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return newCommandError(CodeCommandError, "agent service temporarily unavailable")
		}
		return newCommandError(CodeCommandError, "agent command %q failed: %v", p.Command, err)
	}

	d.reply(req, EventCommandExecuted, CommandResult{
		AgentID: p.AgentID,
		Command: p.Command,
		Result:  result,
	})
	return nil
}

// callCollaborator runs an external call under the collaborator's breaker
// with the configured timeout applied.
func (d *Dispatcher) callCollaborator(ctx context.Context, breaker *gobreaker.CircuitBreaker[interface{}], fn func(context.Context) (interface{}, error)) (interface{}, error) {
	return breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		return fn(callCtx)
	})
}

func decodePayload(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return newCommandError(CodeCommandError, "missing command payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return newCommandError(CodeCommandError, "malformed command payload")
	}
	return nil
}
