// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package gateway

import (
	"fmt"
	"strings"
)

// TopicLiveMatches is the global broadcast channel for live match batches
// and presence updates. Connections join it explicitly via
// subscribeToLiveMatches.
const TopicLiveMatches = "live-matches"

// Topic name prefixes. Topics are created implicitly on first join and have
// no existence beyond their current member set.
const (
	matchTopicPrefix       = "match:"
	leagueTopicPrefix      = "league:"
	agentTopicPrefix       = "agent:"
	userTopicPrefix        = "user:"
	predictionsTopicPrefix = "predictions:"
)

const maxTopicIDLength = 128

// MatchTopic returns the per-match broadcast topic.
func MatchTopic(matchID string) string { return matchTopicPrefix + matchID }

// LeagueTopic returns the per-league broadcast topic.
func LeagueTopic(leagueID string) string { return leagueTopicPrefix + leagueID }

// AgentTopic returns the per-agent broadcast topic.
func AgentTopic(agentID string) string { return agentTopicPrefix + agentID }

// UserTopic returns a principal's private notification channel. Joined
// automatically at registration for every connection of that principal.
func UserTopic(principalID string) string { return userTopicPrefix + principalID }

// PredictionsTopic returns a principal's private prediction channel.
func PredictionsTopic(principalID string) string { return predictionsTopicPrefix + principalID }

// ValidateTopicID checks an id supplied in a join/leave command. Ids are
// opaque but must be non-empty, reasonably sized, and free of the topic
// separator so a crafted id cannot escape its category.
func ValidateTopicID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if len(id) > maxTopicIDLength {
		return fmt.Errorf("id exceeds %d characters", maxTopicIDLength)
	}
	if strings.ContainsAny(id, ": \t\n") {
		return fmt.Errorf("id contains invalid characters")
	}
	return nil
}

// IsPrivateTopic reports whether a topic is principal-scoped.
func IsPrivateTopic(topic string) bool {
	return strings.HasPrefix(topic, userTopicPrefix) ||
		strings.HasPrefix(topic, predictionsTopicPrefix)
}

// ownsPrivateTopic reports whether the principal owns the given private
// topic. Principals may only ever join their own private channels.
func ownsPrivateTopic(principalID, topic string) bool {
	switch {
	case strings.HasPrefix(topic, userTopicPrefix):
		return strings.TrimPrefix(topic, userTopicPrefix) == principalID
	case strings.HasPrefix(topic, predictionsTopicPrefix):
		return strings.TrimPrefix(topic, predictionsTopicPrefix) == principalID
	default:
		return false
	}
}
