// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package gateway

import (
	"sort"
	"sync"

	"github.com/Bandi86/pitchside-gateway/internal/metrics"
)

// Subscriptions tracks topic membership at the connection level. Membership
// is first-class state owned here rather than delegated to a transport
// room feature, so the logic is transport-agnostic and independently
// testable.
//
// Invariant: for every connection C and topic T, T is in C's joined set iff
// C is in T's member set. An empty topic has no entry and costs nothing.
type Subscriptions struct {
	mu           sync.RWMutex
	byTopic      map[string]map[string]struct{}
	byConnection map[string]map[string]struct{}
}

// NewSubscriptions creates an empty subscription table.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{
		byTopic:      make(map[string]map[string]struct{}),
		byConnection: make(map[string]map[string]struct{}),
	}
}

// Join adds a connection to a topic's member set. Idempotent; returns true
// when the membership was newly created.
func (s *Subscriptions) Join(connectionID, topic string) bool {
	if connectionID == "" || topic == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	members := s.byTopic[topic]
	if members == nil {
		members = make(map[string]struct{})
		s.byTopic[topic] = members
	}
	if _, exists := members[connectionID]; exists {
		return false
	}
	members[connectionID] = struct{}{}

	joined := s.byConnection[connectionID]
	if joined == nil {
		joined = make(map[string]struct{})
		s.byConnection[connectionID] = joined
	}
	joined[topic] = struct{}{}

	metrics.TopicJoins.Inc()
	metrics.ActiveTopics.Set(float64(len(s.byTopic)))
	return true
}

// Leave removes a connection from a topic. No-op if not a member.
func (s *Subscriptions) Leave(connectionID, topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaveLocked(connectionID, topic)
}

// LeaveAll removes the connection from every topic it had joined and
// returns the topics left. Must run exactly once as part of connection
// teardown; calling it again is a harmless no-op.
func (s *Subscriptions) LeaveAll(connectionID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	joined := s.byConnection[connectionID]
	topics := make([]string, 0, len(joined))
	for topic := range joined {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	for _, topic := range topics {
		s.leaveLocked(connectionID, topic)
	}
	return topics
}

// leaveLocked removes a single membership. Caller holds s.mu.
func (s *Subscriptions) leaveLocked(connectionID, topic string) bool {
	members := s.byTopic[topic]
	if members == nil {
		return false
	}
	if _, exists := members[connectionID]; !exists {
		return false
	}

	delete(members, connectionID)
	if len(members) == 0 {
		delete(s.byTopic, topic)
	}

	if joined := s.byConnection[connectionID]; joined != nil {
		delete(joined, topic)
		if len(joined) == 0 {
			delete(s.byConnection, connectionID)
		}
	}

	metrics.TopicLeaves.Inc()
	metrics.ActiveTopics.Set(float64(len(s.byTopic)))
	return true
}

// MembersOf returns the connection ids subscribed to a topic, sorted for
// deterministic delivery order. Empty slice if the topic has no members.
func (s *Subscriptions) MembersOf(topic string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.byTopic[topic]
	members := make([]string, 0, len(set))
	for id := range set {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}

// TopicsOf returns the topics a connection has joined, sorted.
func (s *Subscriptions) TopicsOf(connectionID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.byConnection[connectionID]
	topics := make([]string, 0, len(set))
	for topic := range set {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// IsMember reports whether a connection is subscribed to a topic.
func (s *Subscriptions) IsMember(connectionID, topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byTopic[topic][connectionID]
	return ok
}

// TopicCount returns the number of topics with at least one subscriber.
func (s *Subscriptions) TopicCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byTopic)
}
