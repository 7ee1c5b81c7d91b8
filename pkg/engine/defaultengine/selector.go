// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package defaultengine

import (
	"time"

	"github.com/elliotchance/pie/v2"

	"github.com/AccelByte/extend-festival-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/models"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/queue"
)

// scoredCandidate is a queue entry scored from a specific pivot's perspective.
type scoredCandidate struct {
	entry queue.Entry
	team  *models.Team
	score float64
}

// selectOpponent picks the best opponent for the pivot from the scored pool.
// Tiers are visited best first, cross-camp candidates come before same-camp
// ones within a tier, and ties break toward the longest wait. The escalation gate
// on the pivot's own wait time decides how deep into the tiers the search may
// go: a fresh searcher only accepts excellent pairings, a long waiter accepts
// anything.
//
// When nothing is chosen the second return value is the unmatched reason.
func (e *DefaultEngine) selectOpponent(pivot candidate, pool []scoredCandidate) (*scoredCandidate, string) {
	if len(pool) == 0 {
		return nil, constants.ReasonNoEligibleCandidates
	}
	deepestTier := e.deepestEligibleTier(pivot.entry.WaitTime())

	for tier := models.TierExcellent; tier <= models.TierLastResort; tier++ {
		inTier := pie.Filter(pool, func(c scoredCandidate) bool {
			return models.TierForScore(c.score) == tier
		})
		if len(inTier) == 0 {
			continue
		}
		if tier > deepestTier {
			// Candidates exist, but the pivot has not waited long enough to
			// settle for them.
			return nil, constants.ReasonWaitingForBetterTier
		}

		// Cross-camp candidates outrank same-camp ones, except in the last
		// resort band where camp no longer matters.
		group := inTier
		if tier != models.TierLastResort {
			crossCamp := pie.Filter(inTier, func(c scoredCandidate) bool {
				return c.team.Camp != pivot.team.Camp
			})
			if len(crossCamp) > 0 {
				group = crossCamp
			}
		}
		group = pie.SortUsing(group, func(a, b scoredCandidate) bool {
			if a.score != b.score {
				return a.score > b.score
			}
			return a.entry.EnqueuedAt.Before(b.entry.EnqueuedAt)
		})
		return &group[0], ""
	}

	return nil, constants.ReasonNoEligibleCandidates
}

// deepestEligibleTier maps the pivot's own wait time to the worst tier it is
// currently willing to accept.
func (e *DefaultEngine) deepestEligibleTier(ownWait time.Duration) models.Tier {
	switch {
	case ownWait >= e.cfg.EscalationAllTier():
		return models.TierLastResort
	case ownWait >= e.cfg.EscalationGoodTier():
		return models.TierGood
	default:
		return models.TierExcellent
	}
}
