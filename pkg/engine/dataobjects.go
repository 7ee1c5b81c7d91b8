// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import (
	"github.com/AccelByte/extend-festival-matchmaker/pkg/models"
)

// SearchResult is the outcome of StartSearch. Either the team was paired
// during the immediate pass (Opponent set) or it stays queued awaiting the
// periodic matcher.
type SearchResult struct {
	Queued     bool
	Opponent   *models.Team
	Multiplier float64
	ChannelRef string
}

// FinishResult carries the cleared team states after FinishMatch.
type FinishResult struct {
	TeamA *models.Team
	TeamB *models.Team
}

// RepairFix describes one healed contradiction.
type RepairFix struct {
	TeamName string `json:"teamName"`
	Problem  string `json:"problem"`
	Action   string `json:"action"`
}

// RepairReport lists every fix a repair pass applied.
type RepairReport struct {
	InstanceID string      `json:"instanceId"`
	Fixes      []RepairFix `json:"fixes"`
}

// FixCount returns the number of applied fixes.
func (r *RepairReport) FixCount() int {
	return len(r.Fixes)
}
