// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package engine provides the core interfaces and data structures for the
// festival matchmaking engine: the engine surface consumed by the command
// layer, and the external collaborator contracts the engine calls out to.
package engine

import (
	"context"
	"time"

	"github.com/AccelByte/extend-festival-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/models"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/queue"
)

/*
Engine is the matchmaking surface exposed to the command layer. A search either
matches immediately, is queued awaiting the periodic matcher, or is rejected
with a specific eligibility error (see models.EligibilityErrorCode).

The engine owns no persistence: team records live in the TeamRegistry, the
audit trail in the MatchRecordStore. In-memory queue and lock state is a
volatile cache that Repair can always reconstruct or discard.
*/
type Engine interface {
	// StartSearch validates eligibility, enqueues the team and attempts an
	// immediate pairing pass. Eligibility errors propagate to the caller.
	StartSearch(scope *envelope.Scope, instanceID, teamName string) (*SearchResult, error)

	// CancelSearch removes the team's queue entry. It is idempotent and
	// reports whether an entry was actually removed.
	CancelSearch(scope *envelope.Scope, instanceID, teamName string) bool

	// FinishMatch transitions both teams of an active match back to idle under
	// the lock protocol and stamps their post-match cooldown.
	FinishMatch(scope *envelope.Scope, instanceID, teamAName, teamBName string) (*FinishResult, error)

	// ListSearching returns a snapshot of the live search queue entries.
	ListSearching(scope *envelope.Scope, instanceID string) []queue.Entry

	// Repair scans all team records of the instance for contradictions and
	// heals them. Best effort; it never fails hard on collaborator errors.
	Repair(scope *envelope.Scope, instanceID string) (*RepairReport, error)

	// Start launches the periodic matcher scheduler. Stop blocks until the
	// scheduler goroutine has drained.
	Start(rootScope *envelope.Scope)
	Stop()
}

// TeamRegistry is the persisted source of truth for team and festival
// documents. The engine reads fresh state through it before every mutation and
// writes the match-state subset of team fields back.
type TeamRegistry interface {
	GetAllTeams(ctx context.Context, instanceID string) ([]*models.Team, error)

	// FindTeamByName returns models.ErrTeamNotFound when the team does not
	// exist in the instance.
	FindTeamByName(ctx context.Context, instanceID, name string) (*models.Team, error)

	SaveTeam(ctx context.Context, instanceID string, team *models.Team) error

	// GetFestival returns the instance descriptor carrying the roster size
	// requirement and the camp list.
	GetFestival(ctx context.Context, instanceID string) (*models.Festival, error)
}

// MatchRecordStore keeps the audit record of committed pairings, independent
// of the engine's in-memory history window.
type MatchRecordStore interface {
	CreateMatchRecord(ctx context.Context, record models.MatchRecord) error
	UpdateMatchStatus(ctx context.Context, recordID, status string) error
}

// SideChannelProvisioner creates and tears down the external resource (for
// example a chat channel) attached to an active match. A creation failure is
// non-fatal: the match proceeds without a channel.
type SideChannelProvisioner interface {
	CreateMatchChannel(ctx context.Context, instanceID string, teamA, teamB *models.Team) (channelRef string, err error)
	ScheduleChannelDeletion(ctx context.Context, channelRef string, delay time.Duration) error

	// ChannelExists lets consistency repair confirm whether a referenced
	// channel is still alive.
	ChannelExists(ctx context.Context, channelRef string) (bool, error)
}

// Notifier presents match-found, timeout and still-waiting events to end
// users. Fire and forget: the engine treats notifier failures as non-fatal.
type Notifier interface {
	MatchFound(ctx context.Context, instanceID string, teamA, teamB *models.Team, multiplier float64, channelRef string)
	SearchTimedOut(ctx context.Context, instanceID, teamName string)
	SearchStillWaiting(ctx context.Context, instanceID, teamName string, waited time.Duration)
}
