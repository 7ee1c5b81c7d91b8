// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package defaultengine is the reference implementation of engine.Engine. It
// combines the per-instance search queue, the match history store and the lock
// manager into the full search / pair / finish lifecycle.
package defaultengine

import (
	"sort"
	"sync"

	"github.com/AccelByte/extend-festival-matchmaker/pkg/config"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/engine"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/history"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/lock"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/metrics"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/queue"
)

// instanceState bundles the volatile per-festival state. It is created lazily
// the first time an instance is referenced and lives for the process lifetime.
type instanceState struct {
	queue   *queue.SearchQueue
	history *history.Store

	mu            sync.Mutex
	activeRecords map[string]string // sorted pair key -> match record ID
}

func (st *instanceState) setActiveRecord(teamA, teamB, recordID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.activeRecords[pairKey(teamA, teamB)] = recordID
}

// takeActiveRecord removes and returns the record ID for the pair, if any.
func (st *instanceState) takeActiveRecord(teamA, teamB string) (string, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	key := pairKey(teamA, teamB)
	recordID, ok := st.activeRecords[key]
	if ok {
		delete(st.activeRecords, key)
	}
	return recordID, ok
}

func pairKey(teamA, teamB string) string {
	if teamB < teamA {
		teamA, teamB = teamB, teamA
	}
	return teamA + "|" + teamB
}

// DefaultEngine implements engine.Engine on top of external collaborators for
// persistence, audit records, side channels and notifications. Everything it
// holds in memory is reconstructible, so losing the process loses no matches.
type DefaultEngine struct {
	cfg      *config.Config
	registry engine.TeamRegistry
	records  engine.MatchRecordStore
	channels engine.SideChannelProvisioner
	notifier engine.Notifier
	metrics  metrics.FestivalMetrics
	locks    *lock.Manager

	mu        sync.Mutex
	instances map[string]*instanceState

	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func New(
	cfg *config.Config,
	registry engine.TeamRegistry,
	records engine.MatchRecordStore,
	channels engine.SideChannelProvisioner,
	notifier engine.Notifier,
	festivalMetrics metrics.FestivalMetrics,
) *DefaultEngine {
	return &DefaultEngine{
		cfg:       cfg,
		registry:  registry,
		records:   records,
		channels:  channels,
		notifier:  notifier,
		metrics:   festivalMetrics,
		locks:     lock.NewManager(registry, cfg.LockTimeLimit(), cfg.LockPollInterval()),
		instances: make(map[string]*instanceState),
	}
}

// Locks exposes the lock manager, mainly so callers can surface held-lock
// state in diagnostics.
func (e *DefaultEngine) Locks() *lock.Manager {
	return e.locks
}

func (e *DefaultEngine) instance(instanceID string) *instanceState {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.instances[instanceID]
	if !ok {
		st = &instanceState{
			queue:         queue.New(instanceID, e.cfg.QueueTimeout(), e.locks),
			history:       history.NewStore(e.cfg.HistoryWindowSize),
			activeRecords: make(map[string]string),
		}
		e.instances[instanceID] = st
	}
	return st
}

// instanceSnapshot returns the known instances in stable order so scheduler
// ticks process them deterministically.
func (e *DefaultEngine) instanceSnapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.instances))
	for id := range e.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
