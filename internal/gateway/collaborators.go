// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package gateway

import (
	"context"
	"errors"
)

// AgentService is the external agent-lifecycle collaborator the dispatcher
// delegates agent control commands to. Implementations live outside the
// gateway (the platform's agent runtime); calls are bounded by the
// dispatcher's command timeout and circuit breaker.
type AgentService interface {
	StartAgent(ctx context.Context, agentID string) error
	StopAgent(ctx context.Context, agentID string) error
	AgentStatus(ctx context.Context, agentID string) (interface{}, error)
	AgentHealth(ctx context.Context, agentID string) (interface{}, error)
}

// StandingsService is the external standings-lookup collaborator. The
// dispatcher uses it to send a current standings snapshot to a connection
// that subscribes to league updates.
type StandingsService interface {
	GetStandings(ctx context.Context, leagueID string) (interface{}, error)
}

// ErrCollaboratorUnavailable is returned by the unconfigured collaborator
// stubs wired in deployments that run the gateway without an agent runtime
// or standings backend.
var ErrCollaboratorUnavailable = errors.New("gateway: collaborator not configured")

// UnavailableAgentService is an AgentService that rejects every call.
type UnavailableAgentService struct{}

func (UnavailableAgentService) StartAgent(context.Context, string) error {
	return ErrCollaboratorUnavailable
}

func (UnavailableAgentService) StopAgent(context.Context, string) error {
	return ErrCollaboratorUnavailable
}

func (UnavailableAgentService) AgentStatus(context.Context, string) (interface{}, error) {
	return nil, ErrCollaboratorUnavailable
}

func (UnavailableAgentService) AgentHealth(context.Context, string) (interface{}, error) {
	return nil, ErrCollaboratorUnavailable
}

// UnavailableStandingsService is a StandingsService that rejects every call.
type UnavailableStandingsService struct{}

func (UnavailableStandingsService) GetStandings(context.Context, string) (interface{}, error) {
	return nil, ErrCollaboratorUnavailable
}
