// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package defaultengine

import (
	"context"
	"time"

	"github.com/AccelByte/extend-festival-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/engine"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/models"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/queue"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/utils"
)

// StartSearch validates eligibility against fresh registry state, enqueues the
// team and runs an immediate pairing pass so two compatible searchers never
// wait a full scheduler tick.
func (e *DefaultEngine) StartSearch(scope *envelope.Scope, instanceID, teamName string) (*engine.SearchResult, error) {
	scope = scope.NewChildScope("DefaultEngine.StartSearch")
	defer scope.Finish()
	scope.SetAttributes(envelope.InstanceIDTag, instanceID)

	festival, err := e.registry.GetFestival(scope.Ctx, instanceID)
	if err != nil {
		return nil, err
	}
	team, err := e.registry.FindTeamByName(scope.Ctx, instanceID, teamName)
	if err != nil {
		return nil, err
	}
	if len(festival.Camps) > 0 && !utils.Contains(festival.Camps, team.Camp) {
		return nil, models.ErrUnknownCamp
	}

	st := e.instance(instanceID)
	if err := st.queue.Enqueue(team, festival.RequiredMemberCount, e.searchTimeoutHandler(instanceID)); err != nil {
		scope.Log.WithError(err).WithField("team", teamName).Info("team rejected from search queue")
		return nil, err
	}
	scope.Log.WithField("team", teamName).Info("team entered the search queue")

	e.runMatchPass(scope, instanceID, st)

	// The pass may or may not have involved this team; the fresh document is
	// the only authority on whether it got matched.
	fresh, err := e.registry.FindTeamByName(scope.Ctx, instanceID, teamName)
	if err != nil {
		scope.Log.WithError(err).WithField("team", teamName).Warn("could not re-read team after immediate pass")
		return &engine.SearchResult{Queued: true}, nil
	}
	if !fresh.Busy || fresh.CurrentOpponent == "" {
		return &engine.SearchResult{Queued: true}, nil
	}

	opponent, err := e.registry.FindTeamByName(scope.Ctx, instanceID, fresh.CurrentOpponent)
	if err != nil {
		scope.Log.WithError(err).WithField("team", fresh.CurrentOpponent).Warn("could not read opponent of immediate match")
	}
	result := &engine.SearchResult{
		Opponent:   opponent,
		ChannelRef: fresh.SideChannelRef,
	}
	if fresh.MatchMultiplier != nil {
		result.Multiplier = *fresh.MatchMultiplier
	}
	return result, nil
}

// searchTimeoutHandler builds the callback armed on each queue entry. It runs
// on the timer goroutine, after the entry has already been dequeued.
func (e *DefaultEngine) searchTimeoutHandler(instanceID string) func(teamName string) {
	return func(teamName string) {
		scope := envelope.NewRootScope(context.Background(), "DefaultEngine.searchTimeout", "")
		defer scope.Finish()
		scope.SetAttributes(envelope.InstanceIDTag, instanceID)

		scope.Log.WithField("team", teamName).Info("search timed out, team removed from queue")
		e.metrics.AddSearchTimeout(instanceID)
		e.notifier.SearchTimedOut(scope.Ctx, instanceID, teamName)
	}
}

// CancelSearch removes the team's queue entry, reporting whether one existed.
func (e *DefaultEngine) CancelSearch(scope *envelope.Scope, instanceID, teamName string) bool {
	scope = scope.NewChildScope("DefaultEngine.CancelSearch")
	defer scope.Finish()
	scope.SetAttributes(envelope.InstanceIDTag, instanceID)

	removed := e.instance(instanceID).queue.Dequeue(teamName)
	scope.Log.WithField("team", teamName).WithField("removed", removed).Info("search cancelled")
	return removed
}

// FinishMatch brings both teams of an active match back to idle. State is
// mutated and persisted before any external side effect fires, so a crash in
// between leaves nothing a repair pass cannot reconcile.
func (e *DefaultEngine) FinishMatch(scope *envelope.Scope, instanceID, teamAName, teamBName string) (*engine.FinishResult, error) {
	scope = scope.NewChildScope("DefaultEngine.FinishMatch")
	defer scope.Finish()
	scope.SetAttributes(envelope.InstanceIDTag, instanceID)

	if teamAName == teamBName {
		return nil, models.ErrNotMatchedTogether
	}

	st := e.instance(instanceID)
	start := time.Now()

	var result *engine.FinishResult
	acquired, err := e.locks.WithLock(scope, instanceID, []string{teamAName, teamBName}, constants.OperationFinishMatch,
		func(scope *envelope.Scope, teams []*models.Team) error {
			teamA, teamB := teams[0], teams[1]
			if !teamA.Reciprocates(teamB) {
				return models.ErrNotMatchedTogether
			}
			channelRef := teamA.SideChannelRef

			teamA.ResetMatchState()
			teamB.ResetMatchState()
			for _, team := range []*models.Team{teamA, teamB} {
				if err := e.registry.SaveTeam(scope.Ctx, instanceID, team); err != nil {
					return err
				}
			}
			until := time.Now().Add(e.cfg.FinishCooldown())
			st.queue.SetCooldown(teamA.Name, until)
			st.queue.SetCooldown(teamB.Name, until)

			if recordID, ok := st.takeActiveRecord(teamA.Name, teamB.Name); ok {
				if err := e.records.UpdateMatchStatus(scope.Ctx, recordID, constants.MatchStatusCompleted); err != nil {
					scope.Log.WithError(err).WithField("recordID", recordID).Warn("failed to mark match record completed")
				}
			}
			if channelRef != "" {
				scope.SetAttributes(envelope.SideChannelTag, channelRef)
				if err := e.channels.ScheduleChannelDeletion(scope.Ctx, channelRef, e.cfg.ChannelDeleteDelay()); err != nil {
					scope.Log.WithError(err).Warn("failed to schedule side channel deletion")
				}
			}

			result = &engine.FinishResult{TeamA: teamA, TeamB: teamB}
			return nil
		})
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, models.ErrTeamLocked
	}

	e.metrics.AddCommitElapsedTimeMs(instanceID, constants.OperationFinishMatch, time.Since(start))
	scope.Log.WithField("teamA", teamAName).WithField("teamB", teamBName).Info("match finished")
	return result, nil
}

// ListSearching returns the live queue entries of the instance in enqueue order.
func (e *DefaultEngine) ListSearching(scope *envelope.Scope, instanceID string) []queue.Entry {
	scope = scope.NewChildScope("DefaultEngine.ListSearching")
	defer scope.Finish()
	scope.SetAttributes(envelope.InstanceIDTag, instanceID)

	return e.instance(instanceID).queue.List()
}
