// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package history implements the per-team match history store and the
// multi-factor opponent desirability score used for rematch avoidance.
package history

import (
	"sync"
	"time"

	"github.com/AccelByte/extend-festival-matchmaker/pkg/mathutil"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/models"
)

// Now is a variable that holds the current time function.
// This can be overridden for testing purposes.
var Now = time.Now

// Scoring constants. The score is a positive real number used both as a sort
// key and for tier banding, so it is floored at MinScore.
const (
	BaseScore        = 100.0
	CrossCampBonus   = 50.0
	NeverPlayedBonus = 30.0
	MaxWaitBonus     = 20.0
	MinScore         = 1.0
)

type teamLog struct {
	counter int
	entries []models.MatchHistoryEntry
}

// Store keeps a bounded recency window of past opponents per team, scoped to a
// single festival instance. It is not an audit log; the external match record
// store is.
type Store struct {
	mu     sync.Mutex
	window int
	logs   map[string]*teamLog
}

// NewStore creates a history store that keeps the given number of entries per
// team, evicting the oldest past that window.
func NewStore(window int) *Store {
	return &Store{
		window: window,
		logs:   make(map[string]*teamLog),
	}
}

// RecordMatch appends one history entry to each team's log and increments both
// per-team counters. Both increments happen under the same mutex so scoring
// never observes one side updated without the other.
func (s *Store) RecordMatch(teamA, teamB string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := Now()
	s.appendLocked(teamA, teamB, now)
	s.appendLocked(teamB, teamA, now)
}

func (s *Store) appendLocked(team, opponent string, timestamp time.Time) {
	log, ok := s.logs[team]
	if !ok {
		log = &teamLog{}
		s.logs[team] = log
	}
	log.counter++
	log.entries = append(log.entries, models.MatchHistoryEntry{
		OpponentName: opponent,
		MatchNumber:  log.counter,
		Timestamp:    timestamp,
	})
	if len(log.entries) > s.window {
		log.entries = log.entries[len(log.entries)-s.window:]
	}
}

// Counter returns the team's match counter. Unknown teams have counter 0.
func (s *Store) Counter(team string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if log, ok := s.logs[team]; ok {
		return log.counter
	}
	return 0
}

// Entries returns a copy of the team's recency window, oldest first.
func (s *Store) Entries(team string) []models.MatchHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.logs[team]
	if !ok {
		return nil
	}
	entries := make([]models.MatchHistoryEntry, len(log.entries))
	copy(entries, log.entries)
	return entries
}

// Score returns the opponent desirability score for pairing team with
// candidate, given how long the candidate has been waiting. It never fails: an
// opponent the store has no data for is treated as never played, so a data
// hiccup cannot block matchmaking entirely.
func (s *Store) Score(team, candidate *models.Team, waitTime time.Duration) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	score := BaseScore

	// Cross-camp pairings are preferred to maximize camp mixing.
	if team.Camp != candidate.Camp {
		score += CrossCampBonus
	}

	score += s.rematchAdjustmentLocked(team.Name, candidate.Name)

	// Reward candidates that have waited longer, capped so waiting alone
	// cannot push a pairing across more than one tier boundary.
	score += mathutil.Min(waitTime.Minutes()*2, MaxWaitBonus)

	return mathutil.Max(score, MinScore)
}

// rematchAdjustmentLocked derives the rematch penalty or never-played bonus
// from how many matches the team has played since it last met the candidate.
func (s *Store) rematchAdjustmentLocked(team, candidate string) float64 {
	log, ok := s.logs[team]
	if !ok {
		return NeverPlayedBonus
	}

	// Scan from the most recent entry backwards; only the latest meeting counts.
	for i := len(log.entries) - 1; i >= 0; i-- {
		if log.entries[i].OpponentName != candidate {
			continue
		}
		matchesSince := log.counter - log.entries[i].MatchNumber
		switch {
		case matchesSince == 0:
			return -100
		case matchesSince == 1:
			return -80
		case matchesSince == 2:
			return -50
		case matchesSince <= 5:
			return -20
		default:
			return 0
		}
	}

	return NeverPlayedBonus
}
