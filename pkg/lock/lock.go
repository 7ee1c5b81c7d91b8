// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package lock implements the advisory lock protocol that makes pairing and
// finishing atomic without a database transaction. Locks are process-local and
// keyed by festival instance plus team name.
package lock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mitchellh/copystructure"

	"github.com/AccelByte/extend-festival-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/models"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/utils"
)

// TeamReader is the slice of the team registry the lock manager needs to
// re-hydrate fresh team state after acquisition.
type TeamReader interface {
	FindTeamByName(ctx context.Context, instanceID, name string) (*models.Team, error)
}

// Body runs while the locks are held. It receives freshly re-read copies of the
// locked teams, in the order their names were passed to WithLock.
type Body func(scope *envelope.Scope, teams []*models.Team) error

// Manager serializes read-modify-write sequences over team names. A name is
// held by at most one operation at a time.
type Manager struct {
	mu   sync.Mutex
	held map[string]string // instance-qualified team name -> operation name

	registry     TeamReader
	timeLimit    time.Duration
	pollInterval time.Duration
}

// NewManager creates a lock manager backed by the given registry for
// re-hydration. Acquisition polls at pollInterval and gives up after timeLimit.
func NewManager(registry TeamReader, timeLimit, pollInterval time.Duration) *Manager {
	return &Manager{
		held:         make(map[string]string),
		registry:     registry,
		timeLimit:    timeLimit,
		pollInterval: pollInterval,
	}
}

// IsLocked reports whether the team name is currently checked out.
func (m *Manager) IsLocked(instanceID, teamName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.held[lockKey(instanceID, teamName)]
	return ok
}

// HeldBy returns the operation holding the team name, if any.
func (m *Manager) HeldBy(instanceID, teamName string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	operation, ok := m.held[lockKey(instanceID, teamName)]
	return operation, ok
}

// WithLock acquires exclusive, all-or-nothing locks on every listed team name,
// re-reads the teams from the registry, and invokes body with the fresh
// snapshot. Locking alone is insufficient when the body trusts stale caller
// references, so the re-read is unconditional.
//
// The returned bool reports whether the locks were acquired. Failing to
// acquire within the time limit is not an error: the caller simply retries on
// its next tick. Acquired locks are released on every exit path.
func (m *Manager) WithLock(scope *envelope.Scope, instanceID string, teamNames []string, operation string, body Body) (acquired bool, err error) {
	names := utils.Dedupe(teamNames)
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = lockKey(instanceID, name)
	}
	// Deterministic key order keeps the held-set diffable in logs.
	sort.Strings(keys)

	deadline := time.Now().Add(m.timeLimit)
	for !m.tryAcquire(keys, operation) {
		if !time.Now().Before(deadline) {
			scope.Log.WithField("operation", operation).
				WithField("teams", names).
				Debug("lock acquisition timed out, operation skipped")
			return false, nil
		}
		select {
		case <-scope.Ctx.Done():
			return false, scope.Ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
	defer m.release(keys)

	scope.SetAttributes(envelope.OperationTag, operation)
	scope.SetAttributes(envelope.TeamNamesTag, names)

	teams, err := m.rehydrate(scope.Ctx, instanceID, names)
	if err != nil {
		return false, err
	}

	return true, body(scope, teams)
}

// tryAcquire takes every key or none under a single critical section.
func (m *Manager) tryAcquire(keys []string, operation string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		if _, ok := m.held[key]; ok {
			return false
		}
	}
	for _, key := range keys {
		m.held[key] = operation
	}
	return true
}

func (m *Manager) release(keys []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.held, key)
	}
}

// rehydrate reads fresh team state and deep-copies it, so the body never
// shares structures with whatever the registry implementation caches.
func (m *Manager) rehydrate(ctx context.Context, instanceID string, names []string) ([]*models.Team, error) {
	teams := make([]*models.Team, len(names))
	for i, name := range names {
		team, err := m.registry.FindTeamByName(ctx, instanceID, name)
		if err != nil {
			return nil, err
		}
		copied, err := copystructure.Copy(team)
		if err != nil {
			return nil, err
		}
		teams[i] = copied.(*models.Team)
	}
	return teams, nil
}

func lockKey(instanceID, teamName string) string {
	return instanceID + "/" + teamName
}
