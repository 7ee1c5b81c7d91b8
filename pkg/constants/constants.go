// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package constants

const (
	// Lock operation names. A team name is held by at most one operation
	// at a time, tagged with one of these.
	OperationPairTeams   = "pairTeams"
	OperationFinishMatch = "finishMatch"

	// Unmatched reason constants, reported per scheduler tick.
	ReasonNotEnoughTeams       = "not_enough_teams"
	ReasonWaitingForBetterTier = "waiting_for_better_tier"
	ReasonNoEligibleCandidates = "no_eligible_candidates"
	ReasonLockContention       = "lock_contention"

	// Consistency repair problem constants.
	RepairProblemOrphanedBusy    = "orphaned_busy_flag"
	RepairProblemNonReciprocal   = "non_reciprocal_opponent"
	RepairProblemDanglingChannel = "dangling_side_channel"
	RepairProblemStaleMatchState = "stale_match_state"

	// Match record status values.
	MatchStatusActive    = "active"
	MatchStatusCompleted = "completed"
)
