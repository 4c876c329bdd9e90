// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
)

type stubAgentService struct {
	startErr  error
	statusVal interface{}
	statusErr error
	calls     []string
}

func (s *stubAgentService) StartAgent(_ context.Context, agentID string) error {
	s.calls = append(s.calls, "start:"+agentID)
	return s.startErr
}

func (s *stubAgentService) StopAgent(_ context.Context, agentID string) error {
	s.calls = append(s.calls, "stop:"+agentID)
	return nil
}

func (s *stubAgentService) AgentStatus(_ context.Context, agentID string) (interface{}, error) {
	s.calls = append(s.calls, "status:"+agentID)
	return s.statusVal, s.statusErr
}

func (s *stubAgentService) AgentHealth(_ context.Context, agentID string) (interface{}, error) {
	s.calls = append(s.calls, "health:"+agentID)
	return s.statusVal, s.statusErr
}

type stubStandingsService struct {
	standings interface{}
	err       error
}

func (s *stubStandingsService) GetStandings(context.Context, string) (interface{}, error) {
	return s.standings, s.err
}

func newDispatcherTestHub(agents AgentService, standings StandingsService) (*Hub, *Client) {
	cfg := testGatewayConfig()
	h := NewHub(cfg)
	h.AttachDispatcher(NewDispatcher(h, agents, standings, cfg))
	c := h.Register(fakeConn{}, "u1")
	drainEnvelopes(c)
	return h, c
}

func dispatch(h *Hub, c *Client, command, payload string) {
	var raw json.RawMessage
	if payload != "" {
		raw = json.RawMessage(payload)
	}
	h.dispatcher.Dispatch(context.Background(), c.ID(), command, raw)
}

func requireError(t *testing.T, envs []Envelope, code string) {
	t.Helper()
	if len(envs) != 1 || envs[0].Type != EventError {
		t.Fatalf("envelopes = %v, want single error", envelopeTypes(envs))
	}
	data, ok := envs[0].Data.(ErrorData)
	if !ok {
		t.Fatalf("error data type = %T", envs[0].Data)
	}
	if data.Code != code {
		t.Errorf("error code = %q, want %q", data.Code, code)
	}
}

func TestDispatchCommandTable(t *testing.T) {
	h, _ := newDispatcherTestHub(UnavailableAgentService{}, UnavailableStandingsService{})

	want := []string{
		"agentCommand", "joinAgent", "joinLeague", "joinMatch",
		"leaveAgent", "leaveLeague", "leaveMatch", "ping",
		"subscribeToLeagueUpdates", "subscribeToLiveMatches",
		"subscribeToPredictionUpdates", "unsubscribeFromLeagueUpdates",
		"unsubscribeFromLiveMatches", "unsubscribeFromPredictionUpdates",
	}
	got := h.dispatcher.Commands()
	if len(got) != len(want) {
		t.Fatalf("Commands() = %v, want %d entries", got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Commands()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	h, c := newDispatcherTestHub(UnavailableAgentService{}, UnavailableStandingsService{})
	dispatch(h, c, "selfDestruct", "")
	requireError(t, drainEnvelopes(c), CodeUnknownCommand)
}

func TestDispatchUnauthenticatedConnection(t *testing.T) {
	h, _ := newDispatcherTestHub(UnavailableAgentService{}, UnavailableStandingsService{})

	// A client attached to the hub but absent from the registry models a
	// connection whose registration never completed.
	ghost := newClient(h, fakeConn{}, "u9", testGatewayConfig())
	h.mu.Lock()
	h.clients[ghost.id] = ghost
	h.mu.Unlock()

	h.dispatcher.Dispatch(context.Background(), ghost.id, "ping", nil)
	requireError(t, drainEnvelopes(ghost), CodeAuthRequired)
}

func TestDispatchPing(t *testing.T) {
	h, c := newDispatcherTestHub(UnavailableAgentService{}, UnavailableStandingsService{})
	dispatch(h, c, "ping", "")

	envs := drainEnvelopes(c)
	if len(envs) != 1 || envs[0].Type != EventPong {
		t.Fatalf("envelopes = %v, want pong", envelopeTypes(envs))
	}
}

func TestDispatchJoinLeaveMatch(t *testing.T) {
	h, c := newDispatcherTestHub(UnavailableAgentService{}, UnavailableStandingsService{})

	dispatch(h, c, "joinMatch", `{"matchId":"m1"}`)
	envs := drainEnvelopes(c)
	if len(envs) != 1 || envs[0].Type != EventJoinedMatch {
		t.Fatalf("envelopes = %v, want joinedMatch", envelopeTypes(envs))
	}
	if ack := envs[0].Data.(MatchAck); ack.MatchID != "m1" {
		t.Errorf("ack = %+v, want matchId m1", ack)
	}
	if !h.subs.IsMember(c.ID(), MatchTopic("m1")) {
		t.Error("connection should be a member of match:m1")
	}

	// Joining again is acknowledged but does not duplicate membership.
	dispatch(h, c, "joinMatch", `{"matchId":"m1"}`)
	if envs := drainEnvelopes(c); len(envs) != 1 || envs[0].Type != EventJoinedMatch {
		t.Fatalf("envelopes = %v, want joinedMatch ack for repeat join", envelopeTypes(envs))
	}
	if got := h.subs.MembersOf(MatchTopic("m1")); len(got) != 1 {
		t.Errorf("MembersOf = %v, want single membership", got)
	}

	dispatch(h, c, "leaveMatch", `{"matchId":"m1"}`)
	envs = drainEnvelopes(c)
	if len(envs) != 1 || envs[0].Type != EventLeftMatch {
		t.Fatalf("envelopes = %v, want leftMatch", envelopeTypes(envs))
	}
	if h.subs.IsMember(c.ID(), MatchTopic("m1")) {
		t.Error("connection should have left match:m1")
	}
}

func TestDispatchMalformedPayload(t *testing.T) {
	h, c := newDispatcherTestHub(UnavailableAgentService{}, UnavailableStandingsService{})

	dispatch(h, c, "joinMatch", `{"matchId":`)
	requireError(t, drainEnvelopes(c), CodeCommandError)

	dispatch(h, c, "joinMatch", "")
	requireError(t, drainEnvelopes(c), CodeCommandError)

	dispatch(h, c, "joinMatch", `{"matchId":"has space"}`)
	requireError(t, drainEnvelopes(c), CodeCommandError)

	dispatch(h, c, "joinLeague", `{"leagueId":"sneaky:topic"}`)
	requireError(t, drainEnvelopes(c), CodeCommandError)
}

func TestDispatchLiveMatchesSubscription(t *testing.T) {
	h, c := newDispatcherTestHub(UnavailableAgentService{}, UnavailableStandingsService{})

	dispatch(h, c, "subscribeToLiveMatches", "")
	envs := drainEnvelopes(c)
	if len(envs) != 1 || envs[0].Type != EventSubscribed {
		t.Fatalf("envelopes = %v, want subscribed", envelopeTypes(envs))
	}
	if ack := envs[0].Data.(TopicAck); ack.Topic != TopicLiveMatches {
		t.Errorf("ack = %+v, want live-matches", ack)
	}

	dispatch(h, c, "unsubscribeFromLiveMatches", "")
	envs = drainEnvelopes(c)
	if len(envs) != 1 || envs[0].Type != EventUnsubscribed {
		t.Fatalf("envelopes = %v, want unsubscribed", envelopeTypes(envs))
	}
	if h.subs.IsMember(c.ID(), TopicLiveMatches) {
		t.Error("connection should have left live-matches")
	}
}

func TestDispatchPredictionSubscription(t *testing.T) {
	h, c := newDispatcherTestHub(UnavailableAgentService{}, UnavailableStandingsService{})

	// Registration already auto-joined the predictions channel; explicit
	// unsubscribe then resubscribe exercises the command path.
	dispatch(h, c, "unsubscribeFromPredictionUpdates", "")
	envs := drainEnvelopes(c)
	if len(envs) != 1 || envs[0].Type != EventUnsubscribed {
		t.Fatalf("envelopes = %v, want unsubscribed", envelopeTypes(envs))
	}
	if h.subs.IsMember(c.ID(), PredictionsTopic("u1")) {
		t.Error("connection should have left its predictions channel")
	}

	dispatch(h, c, "subscribeToPredictionUpdates", "")
	envs = drainEnvelopes(c)
	if len(envs) != 1 || envs[0].Type != EventSubscribed {
		t.Fatalf("envelopes = %v, want subscribed", envelopeTypes(envs))
	}
	if ack := envs[0].Data.(TopicAck); ack.Topic != PredictionsTopic("u1") {
		t.Errorf("ack topic = %q, want own predictions channel", ack.Topic)
	}
}

func TestJoinTopicForbidden(t *testing.T) {
	h, c := newDispatcherTestHub(UnavailableAgentService{}, UnavailableStandingsService{})
	req := &CommandRequest{ConnectionID: c.ID(), PrincipalID: "u1"}

	err := h.dispatcher.joinTopic(req, UserTopic("u2"))
	var cmdErr *commandError
	if !errors.As(err, &cmdErr) || cmdErr.Code != CodeForbidden {
		t.Fatalf("joinTopic foreign private channel = %v, want FORBIDDEN", err)
	}
	if h.subs.IsMember(c.ID(), UserTopic("u2")) {
		t.Error("forbidden join must not create a membership")
	}

	if err := h.dispatcher.joinTopic(req, UserTopic("u1")); err != nil {
		t.Errorf("joinTopic own private channel = %v, want nil", err)
	}
}

func TestDispatchSubscribeLeagueUpdatesWithSnapshot(t *testing.T) {
	standings := &stubStandingsService{standings: []string{"FC One", "FC Two"}}
	h, c := newDispatcherTestHub(UnavailableAgentService{}, standings)

	dispatch(h, c, "subscribeToLeagueUpdates", `{"leagueId":"l1"}`)

	envs := drainEnvelopes(c)
	if got := envelopeTypes(envs); len(got) != 2 ||
		got[0] != EventSubscribed || got[1] != EventLeagueStandingsUpdate {
		t.Fatalf("envelopes = %v, want [subscribed leagueStandingsUpdate]", got)
	}
	data := envs[1].Data.(StandingsData)
	if data.LeagueID != "l1" {
		t.Errorf("snapshot leagueId = %q, want l1", data.LeagueID)
	}
}

func TestDispatchSubscribeLeagueUpdatesNoCollaborator(t *testing.T) {
	h, c := newDispatcherTestHub(UnavailableAgentService{}, UnavailableStandingsService{})

	// The subscription succeeds even when no standings source exists;
	// only the snapshot is skipped.
	dispatch(h, c, "subscribeToLeagueUpdates", `{"leagueId":"l1"}`)
	envs := drainEnvelopes(c)
	if got := envelopeTypes(envs); len(got) != 1 || got[0] != EventSubscribed {
		t.Fatalf("envelopes = %v, want [subscribed]", got)
	}
	if !h.subs.IsMember(c.ID(), LeagueTopic("l1")) {
		t.Error("connection should be a member of league:l1")
	}
}

func TestDispatchAgentCommand(t *testing.T) {
	agents := &stubAgentService{statusVal: map[string]string{"state": "running"}}
	h, c := newDispatcherTestHub(agents, UnavailableStandingsService{})

	dispatch(h, c, "agentCommand", `{"agentId":"a1","command":"status"}`)
	envs := drainEnvelopes(c)
	if len(envs) != 1 || envs[0].Type != EventCommandExecuted {
		t.Fatalf("envelopes = %v, want commandExecuted", envelopeTypes(envs))
	}
	result := envs[0].Data.(CommandResult)
	if result.AgentID != "a1" || result.Command != "status" || result.Result == nil {
		t.Errorf("result = %+v, want a1 status with payload", result)
	}
	if len(agents.calls) != 1 || agents.calls[0] != "status:a1" {
		t.Errorf("agent calls = %v, want [status:a1]", agents.calls)
	}

	dispatch(h, c, "agentCommand", `{"agentId":"a1","command":"start"}`)
	envs = drainEnvelopes(c)
	if len(envs) != 1 || envs[0].Type != EventCommandExecuted {
		t.Fatalf("envelopes = %v, want commandExecuted for start", envelopeTypes(envs))
	}
}

func TestDispatchAgentCommandErrors(t *testing.T) {
	agents := &stubAgentService{startErr: errors.New("agent exploded")}
	h, c := newDispatcherTestHub(agents, UnavailableStandingsService{})

	dispatch(h, c, "agentCommand", `{"agentId":"a1","command":"start"}`)
	requireError(t, drainEnvelopes(c), CodeCommandError)

	dispatch(h, c, "agentCommand", `{"agentId":"a1","command":"reboot"}`)
	requireError(t, drainEnvelopes(c), CodeCommandError)

	dispatch(h, c, "agentCommand", `{"agentId":"","command":"start"}`)
	requireError(t, drainEnvelopes(c), CodeCommandError)
}

func TestBreakerIsolationPerCollaborator(t *testing.T) {
	// A dead standings source must never open the agent breaker: each
	// collaborator carries its own circuit.
	agents := &stubAgentService{statusVal: map[string]string{"state": "running"}}
	cfg := testGatewayConfig()
	cfg.AgentBreaker.FailureThreshold = 3

	h := NewHub(cfg)
	h.AttachDispatcher(NewDispatcher(h, agents, UnavailableStandingsService{}, cfg))
	c := h.Register(fakeConn{}, "u1")
	drainEnvelopes(c)

	// Trip the standings breaker well past its threshold.
	for i := 0; i < 6; i++ {
		dispatch(h, c, "subscribeToLeagueUpdates", `{"leagueId":"l1"}`)
		envs := drainEnvelopes(c)
		if got := envelopeTypes(envs); len(got) != 1 || got[0] != EventSubscribed {
			t.Fatalf("subscription #%d envelopes = %v, want [subscribed]", i+1, got)
		}
		dispatch(h, c, "unsubscribeFromLeagueUpdates", `{"leagueId":"l1"}`)
		drainEnvelopes(c)
	}
	if h.dispatcher.standingsBreaker.State() == gobreaker.StateClosed {
		t.Fatal("standings breaker should have opened after repeated failures")
	}

	// The healthy agent collaborator still serves commands.
	dispatch(h, c, "agentCommand", `{"agentId":"a1","command":"status"}`)
	envs := drainEnvelopes(c)
	if len(envs) != 1 || envs[0].Type != EventCommandExecuted {
		t.Fatalf("envelopes = %v, want commandExecuted from healthy agent service", envelopeTypes(envs))
	}
	if len(agents.calls) != 1 || agents.calls[0] != "status:a1" {
		t.Errorf("agent calls = %v, want [status:a1]", agents.calls)
	}
	if h.dispatcher.agentBreaker.State() != gobreaker.StateClosed {
		t.Errorf("agent breaker state = %v, want closed", h.dispatcher.agentBreaker.State())
	}
}

func TestDispatchAgentCommandAfterDisconnect(t *testing.T) {
	h, c := newDispatcherTestHub(UnavailableAgentService{}, UnavailableStandingsService{})

	// Tear the connection down, then dispatch as if a frame was already
	// in flight. The reply must be suppressed, not sent to a ghost.
	h.Disconnect(c.ID())
	h.dispatcher.Dispatch(context.Background(), c.ID(), "agentCommand", json.RawMessage(`{"agentId":"a1","command":"status"}`))

	if envs := drainEnvelopes(c); len(envs) != 0 {
		t.Errorf("envelopes = %v, want none after teardown", envelopeTypes(envs))
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	h, c := newDispatcherTestHub(UnavailableAgentService{}, UnavailableStandingsService{})
	h.dispatcher.handlers["boom"] = func(context.Context, *CommandRequest) error {
		panic("handler bug")
	}

	dispatch(h, c, "boom", "")
	requireError(t, drainEnvelopes(c), CodeCommandError)

	// The dispatcher must remain usable afterwards.
	dispatch(h, c, "ping", "")
	envs := drainEnvelopes(c)
	if len(envs) != 1 || envs[0].Type != EventPong {
		t.Fatalf("envelopes = %v, want pong after recovery", envelopeTypes(envs))
	}
}
