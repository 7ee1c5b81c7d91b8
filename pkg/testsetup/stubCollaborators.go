// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/copystructure"

	"github.com/AccelByte/extend-festival-matchmaker/pkg/models"
)

// StubTeamRegistry is an in-memory engine.TeamRegistry. Reads and writes go
// through deep copies, mirroring a real store where callers never share
// structures with the backend.
type StubTeamRegistry struct {
	mu       sync.Mutex
	festival *models.Festival
	teams    map[string]*models.Team

	SaveErr error // when set, SaveTeam fails with it
	saves   int
}

func NewStubTeamRegistry(festival *models.Festival, teams ...*models.Team) *StubTeamRegistry {
	registry := &StubTeamRegistry{
		festival: festival,
		teams:    make(map[string]*models.Team),
	}
	for _, team := range teams {
		registry.teams[team.Name] = copyTeam(team)
	}
	return registry
}

func (r *StubTeamRegistry) GetAllTeams(ctx context.Context, instanceID string) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	teams := make([]*models.Team, 0, len(r.teams))
	for _, team := range r.teams {
		teams = append(teams, copyTeam(team))
	}
	return teams, nil
}

func (r *StubTeamRegistry) FindTeamByName(ctx context.Context, instanceID, name string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	team, ok := r.teams[name]
	if !ok {
		return nil, models.ErrTeamNotFound
	}
	return copyTeam(team), nil
}

func (r *StubTeamRegistry) SaveTeam(ctx context.Context, instanceID string, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.teams[team.Name] = copyTeam(team)
	r.saves++
	return nil
}

func (r *StubTeamRegistry) GetFestival(ctx context.Context, instanceID string) (*models.Festival, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.festival == nil {
		return nil, models.ErrFestivalNotFound
	}
	return r.festival, nil
}

// SaveCount returns the number of successful SaveTeam calls.
func (r *StubTeamRegistry) SaveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.saves
}

func copyTeam(team *models.Team) *models.Team {
	copied, err := copystructure.Copy(team)
	if err != nil {
		panic(err)
	}
	return copied.(*models.Team)
}

// StubMatchRecordStore records every audit call it receives.
type StubMatchRecordStore struct {
	mu       sync.Mutex
	records  []models.MatchRecord
	statuses map[string]string

	CreateErr error
}

func NewStubMatchRecordStore() *StubMatchRecordStore {
	return &StubMatchRecordStore{statuses: make(map[string]string)}
}

func (s *StubMatchRecordStore) CreateMatchRecord(ctx context.Context, record models.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.records = append(s.records, record)
	s.statuses[record.ID] = record.Status
	return nil
}

func (s *StubMatchRecordStore) UpdateMatchStatus(ctx context.Context, recordID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses[recordID] = status
	return nil
}

func (s *StubMatchRecordStore) Records() []models.MatchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]models.MatchRecord, len(s.records))
	copy(records, s.records)
	return records
}

func (s *StubMatchRecordStore) StatusOf(recordID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.statuses[recordID]
}

// StubChannelProvisioner hands out predictable channel refs and tracks which
// of them are still considered alive.
type StubChannelProvisioner struct {
	mu       sync.Mutex
	sequence int
	alive    map[string]bool
	deleted  []string

	CreateErr error
}

func NewStubChannelProvisioner() *StubChannelProvisioner {
	return &StubChannelProvisioner{alive: make(map[string]bool)}
}

func (p *StubChannelProvisioner) CreateMatchChannel(ctx context.Context, instanceID string, teamA, teamB *models.Team) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.CreateErr != nil {
		return "", p.CreateErr
	}
	p.sequence++
	channelRef := fmt.Sprintf("channel-%d", p.sequence)
	p.alive[channelRef] = true
	return channelRef, nil
}

func (p *StubChannelProvisioner) ScheduleChannelDeletion(ctx context.Context, channelRef string, delay time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.deleted = append(p.deleted, channelRef)
	return nil
}

func (p *StubChannelProvisioner) ChannelExists(ctx context.Context, channelRef string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.alive[channelRef], nil
}

// DropChannel marks the channel as gone, as if the external service expired it.
func (p *StubChannelProvisioner) DropChannel(channelRef string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.alive, channelRef)
}

func (p *StubChannelProvisioner) ScheduledDeletions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	deleted := make([]string, len(p.deleted))
	copy(deleted, p.deleted)
	return deleted
}

// MatchFoundEvent is one recorded match-found notification.
type MatchFoundEvent struct {
	TeamA      string
	TeamB      string
	Multiplier float64
	ChannelRef string
}

// StubNotifier records every notification it receives.
type StubNotifier struct {
	mu           sync.Mutex
	matchesFound []MatchFoundEvent
	timedOut     []string
	stillWaiting []string
}

func NewStubNotifier() *StubNotifier {
	return &StubNotifier{}
}

func (n *StubNotifier) MatchFound(ctx context.Context, instanceID string, teamA, teamB *models.Team, multiplier float64, channelRef string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.matchesFound = append(n.matchesFound, MatchFoundEvent{
		TeamA:      teamA.Name,
		TeamB:      teamB.Name,
		Multiplier: multiplier,
		ChannelRef: channelRef,
	})
}

func (n *StubNotifier) SearchTimedOut(ctx context.Context, instanceID, teamName string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.timedOut = append(n.timedOut, teamName)
}

func (n *StubNotifier) SearchStillWaiting(ctx context.Context, instanceID, teamName string, waited time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.stillWaiting = append(n.stillWaiting, teamName)
}

func (n *StubNotifier) MatchesFound() []MatchFoundEvent {
	n.mu.Lock()
	defer n.mu.Unlock()

	events := make([]MatchFoundEvent, len(n.matchesFound))
	copy(events, n.matchesFound)
	return events
}

func (n *StubNotifier) TimedOut() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	names := make([]string, len(n.timedOut))
	copy(names, n.timedOut)
	return names
}

func (n *StubNotifier) StillWaiting() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	names := make([]string, len(n.stillWaiting))
	copy(names, n.stillWaiting)
	return names
}
