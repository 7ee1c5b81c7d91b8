// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package defaultengine

import (
	"errors"
	"time"

	"github.com/go-openapi/swag"
	"github.com/oklog/ulid/v2"

	"github.com/AccelByte/extend-festival-matchmaker/pkg/common"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/models"
)

// errPairAborted signals that the fresh snapshot no longer supports the
// pairing decision. Not an error condition; the pass just yields.
var errPairAborted = errors.New("pairing aborted, teams changed state before commit")

// drawMultiplier picks the match score multiplier: mostly 1x, sometimes 10x,
// rarely 100x. A variable so tests can pin the draw.
var drawMultiplier = func() float64 {
	roll := common.GenerateRandomInt() % 100
	switch {
	case roll < 70:
		return 1
	case roll < 95:
		return 10
	default:
		return 100
	}
}

// commitPair executes the pairing commit protocol: lock both teams, revalidate
// the decision on the freshly re-read snapshot, mutate and persist state, and
// only then fire the external side effects (match record, side channel,
// notification). Reports whether the pair actually committed.
func (e *DefaultEngine) commitPair(scope *envelope.Scope, instanceID string, st *instanceState, pivotName, opponentName string) bool {
	start := time.Now()

	acquired, err := e.locks.WithLock(scope, instanceID, []string{pivotName, opponentName}, constants.OperationPairTeams,
		func(scope *envelope.Scope, teams []*models.Team) error {
			teamA, teamB := teams[0], teams[1]

			festival, err := e.registry.GetFestival(scope.Ctx, instanceID)
			if err != nil {
				return err
			}
			// The selection ran unlocked; anything may have happened since.
			for _, team := range []*models.Team{teamA, teamB} {
				if team.Busy || !st.queue.Contains(team.Name) || !team.IsComplete(festival.RequiredMemberCount) {
					return errPairAborted
				}
			}

			st.queue.Dequeue(teamA.Name)
			st.queue.Dequeue(teamB.Name)

			multiplier := drawMultiplier()
			teamA.Busy, teamB.Busy = true, true
			teamA.CurrentOpponent, teamB.CurrentOpponent = teamB.Name, teamA.Name
			teamA.MatchMultiplier = swag.Float64(multiplier)
			teamB.MatchMultiplier = swag.Float64(multiplier)

			for _, team := range []*models.Team{teamA, teamB} {
				if err := e.registry.SaveTeam(scope.Ctx, instanceID, team); err != nil {
					// Keep going: a half-persisted pair is exactly what the
					// consistency repair pass reconciles.
					scope.Log.WithError(err).WithField("team", team.Name).Warn("failed to persist paired team state")
				}
			}
			st.history.RecordMatch(teamA.Name, teamB.Name)

			record := models.MatchRecord{
				ID:         ulid.Make().String(),
				InstanceID: instanceID,
				Teams:      [2]string{teamA.Name, teamB.Name},
				Camps:      [2]models.CampID{teamA.Camp, teamB.Camp},
				Status:     constants.MatchStatusActive,
				Multiplier: multiplier,
				CreatedAt:  time.Now(),
			}
			if err := e.records.CreateMatchRecord(scope.Ctx, record); err != nil {
				scope.Log.WithError(err).Warn("failed to create match record")
			} else {
				st.setActiveRecord(teamA.Name, teamB.Name, record.ID)
			}

			channelRef, channelErr := e.channels.CreateMatchChannel(scope.Ctx, instanceID, teamA, teamB)
			if channelErr != nil {
				channelRef = ""
				scope.Log.WithError(channelErr).Warn("side channel creation failed, match proceeds without one")
			} else if channelRef != "" {
				scope.SetAttributes(envelope.SideChannelTag, channelRef)
				teamA.SideChannelRef = channelRef
				teamB.SideChannelRef = channelRef
				for _, team := range []*models.Team{teamA, teamB} {
					if err := e.registry.SaveTeam(scope.Ctx, instanceID, team); err != nil {
						scope.Log.WithError(err).WithField("team", team.Name).Warn("failed to persist side channel reference")
					}
				}
			}

			e.notifier.MatchFound(scope.Ctx, instanceID, teamA, teamB, multiplier, channelRef)

			scope.Log.WithField("teamA", teamA.Name).
				WithField("teamB", teamB.Name).
				WithField("multiplier", multiplier).
				Info("match committed")
			return nil
		})

	switch {
	case errors.Is(err, errPairAborted):
		return false
	case err != nil:
		scope.Log.WithError(err).Error("pairing commit failed")
		return false
	case !acquired:
		e.metrics.AddUnmatchedReason(instanceID, constants.ReasonLockContention)
		return false
	}

	e.metrics.AddCommitElapsedTimeMs(instanceID, constants.OperationPairTeams, time.Since(start))
	e.metrics.AddMatchCreated(instanceID)
	return true
}
