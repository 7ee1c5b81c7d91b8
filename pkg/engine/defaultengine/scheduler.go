// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package defaultengine

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/AccelByte/extend-festival-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/history"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/models"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/queue"
)

// Start launches the periodic matcher. Calling it twice is a no-op.
func (e *DefaultEngine) Start(rootScope *envelope.Scope) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	e.wg.Add(1)
	go e.run(rootScope)

	rootScope.Log.WithField("tickInterval", e.cfg.MatchTickInterval().String()).
		Info("matchmaking scheduler started")
}

// Stop shuts the scheduler down and blocks until its goroutine has drained.
func (e *DefaultEngine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopChan)
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *DefaultEngine) run(rootScope *envelope.Scope) {
	defer e.wg.Done()

	// Heal anything left over from a previous process before pairing resumes.
	for _, instanceID := range e.instanceSnapshot() {
		if _, err := e.Repair(rootScope, instanceID); err != nil {
			rootScope.Log.WithError(err).WithField("instanceID", instanceID).Warn("startup repair pass failed")
		}
	}

	ticker := time.NewTicker(e.cfg.MatchTickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.tick(rootScope)
		}
	}
}

// tick runs one scheduler round over every known instance: grace-period
// notifications, queue gauges, then a single pairing pass.
func (e *DefaultEngine) tick(rootScope *envelope.Scope) {
	for _, instanceID := range e.instanceSnapshot() {
		scope := rootScope.NewChildScope("DefaultEngine.tick")
		scope.SetAttributes(envelope.InstanceIDTag, instanceID)

		st := e.instance(instanceID)
		e.notifyLongWaiters(scope, instanceID, st)
		e.updateQueueGauges(instanceID, st)
		e.runMatchPass(scope, instanceID, st)

		scope.Finish()
	}
}

// notifyLongWaiters sends the still-waiting notification to every team past
// the grace period, at most once per queue entry.
func (e *DefaultEngine) notifyLongWaiters(scope *envelope.Scope, instanceID string, st *instanceState) {
	grace := e.cfg.SearchGracePeriod()
	for _, entry := range st.queue.List() {
		if entry.WaitTime() < grace || !st.queue.MarkNotified(entry.TeamName) {
			continue
		}
		e.notifier.SearchStillWaiting(scope.Ctx, instanceID, entry.TeamName, entry.WaitTime())
	}
}

func (e *DefaultEngine) updateQueueGauges(instanceID string, st *instanceState) {
	counts := make(map[models.CampID]int)
	for _, entry := range st.queue.List() {
		counts[entry.Camp]++
	}
	for camp, numTeams := range counts {
		e.metrics.TeamsInSearchQueue(instanceID, string(camp), numTeams)
	}
}

// candidate couples a queue entry with the fresh team document behind it.
type candidate struct {
	entry queue.Entry
	team  *models.Team
}

// runMatchPass runs one pairing attempt over the current queue. Pivots are
// visited longest wait first, and at most one pair commits per pass so every
// pairing decision runs against a fresh snapshot. Reports whether a match
// was committed.
func (e *DefaultEngine) runMatchPass(scope *envelope.Scope, instanceID string, st *instanceState) bool {
	entries := st.queue.PeekPairCandidates()
	if len(entries) < 2 {
		e.metrics.AddUnmatchedReason(instanceID, constants.ReasonNotEnoughTeams)
		return false
	}

	candidates := e.loadCandidates(scope, instanceID, entries)
	if len(candidates) < 2 {
		e.metrics.AddUnmatchedReason(instanceID, constants.ReasonNotEnoughTeams)
		return false
	}

	scores := scorePairs(st.history, candidates)

	pivots := make([]int, len(candidates))
	for i := range pivots {
		pivots[i] = i
	}
	sort.Slice(pivots, func(a, b int) bool {
		return candidates[pivots[a]].entry.EnqueuedAt.Before(candidates[pivots[b]].entry.EnqueuedAt)
	})

	for _, i := range pivots {
		pivot := candidates[i]
		pool := make([]scoredCandidate, 0, len(candidates)-1)
		for j, cand := range candidates {
			if j == i {
				continue
			}
			pool = append(pool, scoredCandidate{entry: cand.entry, team: cand.team, score: scores[pairIndex{i, j}]})
		}

		chosen, reason := e.selectOpponent(pivot, pool)
		if chosen == nil {
			e.metrics.AddUnmatchedReason(instanceID, reason)
			continue
		}
		return e.commitPair(scope, instanceID, st, pivot.team.Name, chosen.team.Name)
	}
	return false
}

// loadCandidates resolves fresh team documents for the peeked entries,
// dropping entries whose team cannot be read or is already mid-match.
func (e *DefaultEngine) loadCandidates(scope *envelope.Scope, instanceID string, entries []queue.Entry) []candidate {
	result := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		team, err := e.registry.FindTeamByName(scope.Ctx, instanceID, entry.TeamName)
		if err != nil {
			scope.Log.WithError(err).WithField("team", entry.TeamName).Warn("skipping queued team, registry read failed")
			continue
		}
		if team.Busy {
			continue
		}
		result = append(result, candidate{entry: entry, team: team})
	}
	return result
}

type pairIndex struct {
	pivot, candidate int
}

// scorePairs precomputes both orientations of every unordered pair. The two
// orientations differ because the wait bonus belongs to the candidate side.
func scorePairs(store *history.Store, candidates []candidate) map[pairIndex]float64 {
	scores := make(map[pairIndex]float64, len(candidates)*(len(candidates)-1))
	for _, pair := range combin.Combinations(len(candidates), 2) {
		i, j := pair[0], pair[1]
		scores[pairIndex{i, j}] = store.Score(candidates[i].team, candidates[j].team, candidates[j].entry.WaitTime())
		scores[pairIndex{j, i}] = store.Score(candidates[j].team, candidates[i].team, candidates[i].entry.WaitTime())
	}
	return scores
}
