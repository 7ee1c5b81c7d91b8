// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package defaultengine

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/onsi/gomega"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-festival-matchmaker/pkg/config"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/models"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/testsetup"
)

const testInstance = "festival-1"

type fixture struct {
	engine   *DefaultEngine
	registry *testsetup.StubTeamRegistry
	records  *testsetup.StubMatchRecordStore
	channels *testsetup.StubChannelProvisioner
	notifier *testsetup.StubNotifier
}

func newFixture(cfg *config.Config, teams ...*models.Team) *fixture {
	festival := &models.Festival{
		InstanceID:          testInstance,
		RequiredMemberCount: 3,
		Camps:               []models.CampID{"crimson", "azure"},
	}
	registry := testsetup.NewStubTeamRegistry(festival, teams...)
	records := testsetup.NewStubMatchRecordStore()
	channels := testsetup.NewStubChannelProvisioner()
	notifier := testsetup.NewStubNotifier()
	return &fixture{
		engine:   New(cfg, registry, records, channels, notifier, testsetup.NewMetrics()),
		registry: registry,
		records:  records,
		channels: channels,
		notifier: notifier,
	}
}

func completeTeam(name string, camp models.CampID) *models.Team {
	return &models.Team{Name: name, Camp: camp, MemberCount: 3}
}

func pinMultiplier(t *testing.T, value float64) {
	original := drawMultiplier
	drawMultiplier = func() float64 { return value }
	t.Cleanup(func() { drawMultiplier = original })
}

func TestStartSearch_ImmediateCrossCampMatch(t *testing.T) {
	pinMultiplier(t, 10)
	scope := testsetup.NewTestScope()
	f := newFixture(config.Default(), completeTeam("alpha", "crimson"), completeTeam("beta", "azure"))

	first, err := f.engine.StartSearch(scope, testInstance, "alpha")
	require.NoError(t, err)
	require.True(t, first.Queued)

	second, err := f.engine.StartSearch(scope, testInstance, "beta")
	require.NoError(t, err)
	require.False(t, second.Queued, "cross-camp never-played pair must match immediately: %s", spew.Sdump(second))
	require.NotNil(t, second.Opponent)
	require.Equal(t, "alpha", second.Opponent.Name)
	require.Equal(t, 10.0, second.Multiplier)
	require.NotEmpty(t, second.ChannelRef)

	// Persisted state is reciprocal with the shared channel on both sides.
	alpha, err := f.registry.FindTeamByName(scope.Ctx, testInstance, "alpha")
	require.NoError(t, err)
	beta, err := f.registry.FindTeamByName(scope.Ctx, testInstance, "beta")
	require.NoError(t, err)
	require.True(t, alpha.Busy)
	require.True(t, beta.Busy)
	require.True(t, alpha.Reciprocates(beta))
	require.Equal(t, second.ChannelRef, alpha.SideChannelRef)
	require.Equal(t, second.ChannelRef, beta.SideChannelRef)

	records := f.records.Records()
	require.Len(t, records, 1)
	require.Equal(t, constants.MatchStatusActive, records[0].Status)
	require.Equal(t, 10.0, records[0].Multiplier)

	found := f.notifier.MatchesFound()
	require.Len(t, found, 1)
	require.Equal(t, second.ChannelRef, found[0].ChannelRef)

	// The queue drained and both names are free again in the lock manager.
	require.Empty(t, f.engine.ListSearching(scope, testInstance))
	require.False(t, f.engine.Locks().IsLocked(testInstance, "alpha"))
	require.False(t, f.engine.Locks().IsLocked(testInstance, "beta"))
}

func TestStartSearch_RecentSameCampRematchStaysQueued(t *testing.T) {
	t.Parallel()

	scope := testsetup.NewTestScope()
	f := newFixture(config.Default(), completeTeam("alpha", "crimson"), completeTeam("beta", "crimson"))

	// They just played each other: same camp, rematch penalty floors the
	// score into last resort, which a fresh searcher never accepts.
	f.engine.instance(testInstance).history.RecordMatch("alpha", "beta")

	first, err := f.engine.StartSearch(scope, testInstance, "alpha")
	require.NoError(t, err)
	require.True(t, first.Queued)

	second, err := f.engine.StartSearch(scope, testInstance, "beta")
	require.NoError(t, err)
	require.True(t, second.Queued)

	require.Empty(t, f.notifier.MatchesFound())
	require.Len(t, f.engine.ListSearching(scope, testInstance), 2)
}

func TestStartSearch_EligibilityErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		teamName string
		team     *models.Team
		wantErr  error
	}{
		{
			name:     "unknown team",
			teamName: "ghost",
			wantErr:  models.ErrTeamNotFound,
		},
		{
			name:     "busy team",
			teamName: "alpha",
			team:     &models.Team{Name: "alpha", Camp: "crimson", MemberCount: 3, Busy: true, CurrentOpponent: "beta"},
			wantErr:  models.ErrTeamBusy,
		},
		{
			name:     "incomplete team",
			teamName: "alpha",
			team:     &models.Team{Name: "alpha", Camp: "crimson", MemberCount: 2},
			wantErr:  models.ErrTeamIncomplete,
		},
		{
			name:     "camp not part of the festival",
			teamName: "alpha",
			team:     &models.Team{Name: "alpha", Camp: "emerald", MemberCount: 3},
			wantErr:  models.ErrUnknownCamp,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			scope := testsetup.NewTestScope()
			teams := []*models.Team{}
			if tt.team != nil {
				teams = append(teams, tt.team)
			}
			f := newFixture(config.Default(), teams...)

			_, err := f.engine.StartSearch(scope, testInstance, tt.teamName)
			require.ErrorIs(t, err, tt.wantErr)
			require.NotEqual(t, 20002, models.EligibilityErrorCode(err))
		})
	}
}

func TestStartSearch_Duplicate(t *testing.T) {
	t.Parallel()

	scope := testsetup.NewTestScope()
	f := newFixture(config.Default(), completeTeam("alpha", "crimson"))

	_, err := f.engine.StartSearch(scope, testInstance, "alpha")
	require.NoError(t, err)

	_, err = f.engine.StartSearch(scope, testInstance, "alpha")
	require.ErrorIs(t, err, models.ErrAlreadyQueued)
}

func TestCancelSearch_Idempotent(t *testing.T) {
	t.Parallel()

	scope := testsetup.NewTestScope()
	f := newFixture(config.Default(), completeTeam("alpha", "crimson"))

	_, err := f.engine.StartSearch(scope, testInstance, "alpha")
	require.NoError(t, err)

	require.True(t, f.engine.CancelSearch(scope, testInstance, "alpha"))
	require.False(t, f.engine.CancelSearch(scope, testInstance, "alpha"))
	require.Empty(t, f.engine.ListSearching(scope, testInstance))
}

func TestFinishMatch_RoundTrip(t *testing.T) {
	pinMultiplier(t, 1)
	scope := testsetup.NewTestScope()
	f := newFixture(config.Default(), completeTeam("alpha", "crimson"), completeTeam("beta", "azure"))

	_, err := f.engine.StartSearch(scope, testInstance, "alpha")
	require.NoError(t, err)
	matched, err := f.engine.StartSearch(scope, testInstance, "beta")
	require.NoError(t, err)
	require.False(t, matched.Queued)

	result, err := f.engine.FinishMatch(scope, testInstance, "alpha", "beta")
	require.NoError(t, err)
	require.False(t, result.TeamA.Busy)
	require.False(t, result.TeamB.Busy)

	alpha, err := f.registry.FindTeamByName(scope.Ctx, testInstance, "alpha")
	require.NoError(t, err)
	require.False(t, alpha.Busy)
	require.Empty(t, alpha.CurrentOpponent)
	require.Nil(t, alpha.MatchMultiplier)
	require.Empty(t, alpha.SideChannelRef)

	records := f.records.Records()
	require.Len(t, records, 1)
	require.Equal(t, constants.MatchStatusCompleted, f.records.StatusOf(records[0].ID))
	require.Equal(t, []string{matched.ChannelRef}, f.channels.ScheduledDeletions())

	// Finishing an already finished match is rejected.
	_, err = f.engine.FinishMatch(scope, testInstance, "alpha", "beta")
	require.ErrorIs(t, err, models.ErrNotMatchedTogether)
}

func TestFinishMatch_RejectsUnmatchedTeams(t *testing.T) {
	t.Parallel()

	scope := testsetup.NewTestScope()
	f := newFixture(config.Default(), completeTeam("alpha", "crimson"), completeTeam("beta", "azure"))

	_, err := f.engine.FinishMatch(scope, testInstance, "alpha", "beta")
	require.ErrorIs(t, err, models.ErrNotMatchedTogether)

	_, err = f.engine.FinishMatch(scope, testInstance, "alpha", "alpha")
	require.ErrorIs(t, err, models.ErrNotMatchedTogether)
}

func TestFinishMatch_CooldownBlocksImmediateRematch(t *testing.T) {
	pinMultiplier(t, 1)
	scope := testsetup.NewTestScope()
	f := newFixture(config.Default(), completeTeam("alpha", "crimson"), completeTeam("beta", "azure"))

	_, err := f.engine.StartSearch(scope, testInstance, "alpha")
	require.NoError(t, err)
	_, err = f.engine.StartSearch(scope, testInstance, "beta")
	require.NoError(t, err)
	_, err = f.engine.FinishMatch(scope, testInstance, "alpha", "beta")
	require.NoError(t, err)

	// Both re-enter the queue immediately; the cooldown keeps the pass from
	// pairing them again this instant.
	first, err := f.engine.StartSearch(scope, testInstance, "alpha")
	require.NoError(t, err)
	require.True(t, first.Queued)
	second, err := f.engine.StartSearch(scope, testInstance, "beta")
	require.NoError(t, err)
	require.True(t, second.Queued)
	require.Len(t, f.engine.ListSearching(scope, testInstance), 2)
}

func TestSearchTimeout_NotifiesAndClearsQueue(t *testing.T) {
	g := testsetup.WithGomega(t)

	cfg := config.Default()
	cfg.QueueTimeoutSecond = 1
	f := newFixture(cfg, completeTeam("solo", "crimson"))

	_, err := f.engine.StartSearch(g.TestScope, testInstance, "solo")
	require.NoError(t, err)

	g.Eventually(func() []string {
		return f.notifier.TimedOut()
	}, "3s", "50ms").Should(gomega.ConsistOf("solo"))
	g.Expect(f.engine.ListSearching(g.TestScope, testInstance)).To(gomega.BeEmpty())

	// Timed out, not matched: the team can search again right away.
	result, err := f.engine.StartSearch(g.TestScope, testInstance, "solo")
	require.NoError(t, err)
	require.True(t, result.Queued)
}

func TestScheduler_NotifiesLongWaiters(t *testing.T) {
	g := testsetup.WithGomega(t)

	cfg := config.Default()
	cfg.MatchTickIntervalSecond = 1
	cfg.SearchGracePeriodSecond = 0
	f := newFixture(cfg, completeTeam("solo", "crimson"))

	_, err := f.engine.StartSearch(g.TestScope, testInstance, "solo")
	require.NoError(t, err)

	f.engine.Start(g.TestScope)
	defer f.engine.Stop()

	g.Eventually(func() []string {
		return f.notifier.StillWaiting()
	}, "3s", "100ms").Should(gomega.ConsistOf("solo"))

	// The notification is one-shot per queue entry.
	g.Consistently(func() []string {
		return f.notifier.StillWaiting()
	}, "1500ms", "200ms").Should(gomega.HaveLen(1))
}

func TestStartStop_Reentrant(t *testing.T) {
	t.Parallel()

	f := newFixture(config.Default())
	scope := testsetup.NewTestScope()

	f.engine.Start(scope)
	f.engine.Start(scope)
	f.engine.Stop()
	f.engine.Stop()
}

func TestChannelFailure_MatchStillCommits(t *testing.T) {
	pinMultiplier(t, 1)
	scope := testsetup.NewTestScope()
	f := newFixture(config.Default(), completeTeam("alpha", "crimson"), completeTeam("beta", "azure"))
	f.channels.CreateErr = models.ErrFestivalNotFound // any error will do

	_, err := f.engine.StartSearch(scope, testInstance, "alpha")
	require.NoError(t, err)
	matched, err := f.engine.StartSearch(scope, testInstance, "beta")
	require.NoError(t, err)

	require.False(t, matched.Queued)
	require.Empty(t, matched.ChannelRef)

	alpha, err := f.registry.FindTeamByName(scope.Ctx, testInstance, "alpha")
	require.NoError(t, err)
	require.True(t, alpha.Busy)
	require.Empty(t, alpha.SideChannelRef)

	found := f.notifier.MatchesFound()
	require.Len(t, found, 1)
	require.Empty(t, found[0].ChannelRef)
}

func TestDrawMultiplier_Values(t *testing.T) {
	t.Parallel()

	for i := 0; i < 100; i++ {
		value := drawMultiplier()
		require.Contains(t, []float64{1, 10, 100}, value)
	}
}
