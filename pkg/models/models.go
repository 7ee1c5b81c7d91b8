// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package models contains the data structures shared across the festival
// matchmaking engine: teams, festivals, match history entries and match records.
package models

import (
	"time"
)

// CampID identifies one of the fixed factions a team aligns with during a festival.
type CampID string

// Team is the persisted team document owned by the external team registry.
// The engine mutates only the match-state subset of its fields.
type Team struct {
	Name            string   `json:"name"`
	Camp            CampID   `json:"camp"`
	Busy            bool     `json:"busy"`
	CurrentOpponent string   `json:"currentOpponent,omitempty"`
	MatchMultiplier *float64 `json:"matchMultiplier,omitempty"`
	SideChannelRef  string   `json:"sideChannelRef,omitempty"`
	MemberCount     int      `json:"memberCount"`
}

// IsComplete reports whether the team meets the festival roster size requirement.
func (t *Team) IsComplete(requiredMembers int) bool {
	return t.MemberCount >= requiredMembers
}

// ResetMatchState clears every field tied to an active match,
// bringing the team back to idle.
func (t *Team) ResetMatchState() {
	t.Busy = false
	t.CurrentOpponent = ""
	t.MatchMultiplier = nil
	t.SideChannelRef = ""
}

// Reciprocates reports whether this team and the given opponent reference each
// other as current opponents.
func (t *Team) Reciprocates(opponent *Team) bool {
	if opponent == nil {
		return false
	}
	return t.CurrentOpponent == opponent.Name && opponent.CurrentOpponent == t.Name
}

// Festival describes one competition instance. All queue, lock and history
// state is scoped by its InstanceID.
type Festival struct {
	InstanceID          string   `json:"instanceId"`
	RequiredMemberCount int      `json:"requiredMemberCount"`
	Camps               []CampID `json:"camps"`
}

// MatchHistoryEntry is one past opponent in a team's recency window.
// MatchNumber holds the owning team's counter value after that match.
type MatchHistoryEntry struct {
	OpponentName string    `json:"opponentName"`
	MatchNumber  int       `json:"matchNumber"`
	Timestamp    time.Time `json:"timestamp"`
}

// MatchRecord is the audit record handed to the external match record store
// when a pairing commits. It is independent of the in-memory history window.
type MatchRecord struct {
	ID         string    `json:"id"`
	InstanceID string    `json:"instanceId"`
	Teams      [2]string `json:"teams"`
	Camps      [2]CampID `json:"camps"`
	Status     string    `json:"status"`
	Multiplier float64   `json:"multiplier"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Tier is one of the score bands used for candidate prioritization.
type Tier int

const (
	TierExcellent Tier = iota
	TierGood
	TierOK
	TierLastResort
)

// Score band thresholds. Anything below TierOKMinScore is last-resort.
const (
	TierExcellentMinScore = 130.0
	TierGoodMinScore      = 80.0
	TierOKMinScore        = 50.0
)

// TierForScore maps an opponent desirability score to its band.
func TierForScore(score float64) Tier {
	switch {
	case score >= TierExcellentMinScore:
		return TierExcellent
	case score >= TierGoodMinScore:
		return TierGood
	case score >= TierOKMinScore:
		return TierOK
	default:
		return TierLastResort
	}
}

func (t Tier) String() string {
	switch t {
	case TierExcellent:
		return "excellent"
	case TierGood:
		return "good"
	case TierOK:
		return "ok"
	default:
		return "last_resort"
	}
}
