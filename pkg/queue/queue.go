// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package queue implements the per-festival search queue: the ordered set of
// teams currently looking for an opponent, with timeout and cooldown semantics.
// Queue state is volatile; it is rebuilt from team records on restart.
package queue

import (
	"sync"
	"time"

	"gopkg.in/typ.v4/slices"

	"github.com/AccelByte/extend-festival-matchmaker/pkg/models"
)

// Now is a variable that holds the current time function.
// This can be overridden for testing purposes.
var Now = time.Now

// LockChecker reports whether a team name is currently checked out by an
// in-flight pairing or finish operation. Implemented by the lock manager.
type LockChecker interface {
	IsLocked(instanceID, teamName string) bool
}

// Entry is one team waiting in the search queue.
type Entry struct {
	TeamName                 string
	Camp                     models.CampID
	EnqueuedAt               time.Time
	NotifiedAfterGracePeriod bool

	timer *time.Timer
}

// WaitTime returns how long the entry has been in the queue.
func (e Entry) WaitTime() time.Duration {
	return Now().Sub(e.EnqueuedAt)
}

// SearchQueue holds the searching teams of a single festival instance.
// All mutation goes through its methods; entries are never persisted.
type SearchQueue struct {
	mu         sync.Mutex
	instanceID string
	timeout    time.Duration
	locks      LockChecker

	order         []string
	entries       map[string]*Entry
	cooldownUntil map[string]time.Time
}

// New creates a search queue for one festival instance. A non-positive timeout
// disables auto-dequeue.
func New(instanceID string, timeout time.Duration, locks LockChecker) *SearchQueue {
	return &SearchQueue{
		instanceID:    instanceID,
		timeout:       timeout,
		locks:         locks,
		entries:       make(map[string]*Entry),
		cooldownUntil: make(map[string]time.Time),
	}
}

// Enqueue inserts the team into the queue and arms its timeout. The timeout,
// when it fires, dequeues the entry and invokes onTimeout exactly once; a team
// dequeued for any other reason never sees its onTimeout fire.
func (q *SearchQueue) Enqueue(team *models.Team, requiredMembers int, onTimeout func(teamName string)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.entries[team.Name]; ok {
		return models.ErrAlreadyQueued
	}
	if team.Busy {
		return models.ErrTeamBusy
	}
	if q.locks != nil && q.locks.IsLocked(q.instanceID, team.Name) {
		return models.ErrTeamLocked
	}
	if !team.IsComplete(requiredMembers) {
		return models.ErrTeamIncomplete
	}

	entry := &Entry{
		TeamName:   team.Name,
		Camp:       team.Camp,
		EnqueuedAt: Now(),
	}
	if q.timeout > 0 && onTimeout != nil {
		name := team.Name
		entry.timer = time.AfterFunc(q.timeout, func() {
			// Dequeue reports whether this call removed the entry, which
			// guarantees a single timeout side effect even when the team is
			// matched or cancelled concurrently.
			if q.Dequeue(name) {
				onTimeout(name)
			}
		})
	}

	q.entries[team.Name] = entry
	q.order = append(q.order, team.Name)

	return nil
}

// Dequeue removes the entry and disarms its timeout. It is idempotent: an
// absent entry is not an error and returns false.
func (q *SearchQueue) Dequeue(teamName string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[teamName]
	if !ok {
		return false
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(q.entries, teamName)
	q.order = slices.Filter(q.order, func(name string) bool { return name != teamName })

	return true
}

// Contains reports whether the team currently has a queue entry.
func (q *SearchQueue) Contains(teamName string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, ok := q.entries[teamName]
	return ok
}

// Len returns the number of live entries.
func (q *SearchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.entries)
}

// List returns the live entries in enqueue order.
func (q *SearchQueue) List() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.snapshotLocked()
}

// PeekPairCandidates returns the entries available for pairing consideration,
// excluding any mid-lock team and any team still inside its post-match
// cooldown window.
func (q *SearchQueue) PeekPairCandidates() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := Now()
	return slices.Filter(q.snapshotLocked(), func(e Entry) bool {
		if q.locks != nil && q.locks.IsLocked(q.instanceID, e.TeamName) {
			return false
		}
		if until, ok := q.cooldownUntil[e.TeamName]; ok && now.Before(until) {
			return false
		}
		return true
	})
}

// MarkNotified flips the grace-period notification flag and reports whether
// this call was the one that flipped it, so the caller notifies at most once.
func (q *SearchQueue) MarkNotified(teamName string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[teamName]
	if !ok || entry.NotifiedAfterGracePeriod {
		return false
	}
	entry.NotifiedAfterGracePeriod = true
	return true
}

// SetCooldown stamps the post-match cooldown for the team. Until it expires the
// team is skipped by PeekPairCandidates.
func (q *SearchQueue) SetCooldown(teamName string, until time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.cooldownUntil[teamName] = until
}

func (q *SearchQueue) snapshotLocked() []Entry {
	result := make([]Entry, 0, len(q.order))
	for _, name := range q.order {
		if entry, ok := q.entries[name]; ok {
			result = append(result, *entry)
		}
	}
	return result
}
