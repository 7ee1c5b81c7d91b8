// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/onsi/gomega"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-festival-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/models"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/testsetup"
)

type stubReader struct {
	mu    sync.Mutex
	teams map[string]*models.Team
}

func newStubReader(teams ...*models.Team) *stubReader {
	reader := &stubReader{teams: make(map[string]*models.Team)}
	for _, team := range teams {
		reader.teams[team.Name] = team
	}
	return reader
}

func (r *stubReader) FindTeamByName(ctx context.Context, instanceID, name string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	team, ok := r.teams[name]
	if !ok {
		return nil, models.ErrTeamNotFound
	}
	return team, nil
}

func (r *stubReader) set(team *models.Team) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.teams[team.Name] = team
}

func TestWithLock_BodySeesFreshSnapshot(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)

	reader := newStubReader(&models.Team{Name: "alpha", Busy: false})
	manager := NewManager(reader, time.Second, 10*time.Millisecond)

	// The registry state changes after the caller made its decision.
	reader.set(&models.Team{Name: "alpha", Busy: true})

	acquired, err := manager.WithLock(g.TestScope, "festival-1", []string{"alpha"}, constants.OperationPairTeams,
		func(_ *envelope.Scope, teams []*models.Team) error {
			g.Expect(teams).To(gomega.HaveLen(1))
			g.Expect(teams[0].Busy).To(gomega.BeTrue())
			return nil
		})
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(acquired).To(gomega.BeTrue())
}

func TestWithLock_SnapshotIsACopy(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)

	backing := &models.Team{Name: "alpha"}
	reader := newStubReader(backing)
	manager := NewManager(reader, time.Second, 10*time.Millisecond)

	acquired, err := manager.WithLock(g.TestScope, "festival-1", []string{"alpha"}, constants.OperationPairTeams,
		func(_ *envelope.Scope, teams []*models.Team) error {
			teams[0].Busy = true
			return nil
		})
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(acquired).To(gomega.BeTrue())
	g.Expect(backing.Busy).To(gomega.BeFalse(), "body must not mutate registry-cached structures")
}

func TestWithLock_Exclusive(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)

	reader := newStubReader(&models.Team{Name: "alpha"})
	manager := NewManager(reader, 150*time.Millisecond, 10*time.Millisecond)

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = manager.WithLock(g.TestScope, "festival-1", []string{"alpha"}, constants.OperationPairTeams,
			func(_ *envelope.Scope, _ []*models.Team) error {
				close(holding)
				<-release
				return nil
			})
	}()
	<-holding

	operation, held := manager.HeldBy("festival-1", "alpha")
	g.Expect(held).To(gomega.BeTrue())
	g.Expect(operation).To(gomega.Equal(constants.OperationPairTeams))

	// Second acquisition gives up after the time limit without error.
	acquired, err := manager.WithLock(g.TestScope, "festival-1", []string{"alpha"}, constants.OperationFinishMatch,
		func(_ *envelope.Scope, _ []*models.Team) error {
			t.Error("body must not run without the lock")
			return nil
		})
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(acquired).To(gomega.BeFalse())

	close(release)
	g.Eventually(func() bool {
		return manager.IsLocked("festival-1", "alpha")
	}, "1s", "10ms").Should(gomega.BeFalse())
}

func TestWithLock_AllOrNothing(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)

	reader := newStubReader(&models.Team{Name: "alpha"}, &models.Team{Name: "beta"})
	manager := NewManager(reader, 100*time.Millisecond, 10*time.Millisecond)

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = manager.WithLock(g.TestScope, "festival-1", []string{"beta"}, constants.OperationFinishMatch,
			func(_ *envelope.Scope, _ []*models.Team) error {
				close(holding)
				<-release
				return nil
			})
	}()
	<-holding
	defer close(release)

	acquired, err := manager.WithLock(g.TestScope, "festival-1", []string{"alpha", "beta"}, constants.OperationPairTeams,
		func(_ *envelope.Scope, _ []*models.Team) error { return nil })
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(acquired).To(gomega.BeFalse())

	// The free half of the pair must not be left behind as held.
	g.Expect(manager.IsLocked("festival-1", "alpha")).To(gomega.BeFalse())
}

func TestWithLock_ReleasedOnBodyError(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)

	reader := newStubReader(&models.Team{Name: "alpha"})
	manager := NewManager(reader, time.Second, 10*time.Millisecond)

	bodyErr := errors.New("body failed")
	acquired, err := manager.WithLock(g.TestScope, "festival-1", []string{"alpha"}, constants.OperationPairTeams,
		func(_ *envelope.Scope, _ []*models.Team) error { return bodyErr })
	g.Expect(err).To(gomega.MatchError(bodyErr))
	g.Expect(acquired).To(gomega.BeTrue())
	g.Expect(manager.IsLocked("festival-1", "alpha")).To(gomega.BeFalse())
}

func TestWithLock_ReleasedOnRehydrateError(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)

	reader := newStubReader() // no teams registered
	manager := NewManager(reader, time.Second, 10*time.Millisecond)

	acquired, err := manager.WithLock(g.TestScope, "festival-1", []string{"ghost"}, constants.OperationPairTeams,
		func(_ *envelope.Scope, _ []*models.Team) error {
			t.Error("body must not run when rehydration fails")
			return nil
		})
	g.Expect(err).To(gomega.MatchError(models.ErrTeamNotFound))
	g.Expect(acquired).To(gomega.BeFalse())
	g.Expect(manager.IsLocked("festival-1", "ghost")).To(gomega.BeFalse())
}

func TestWithLock_DuplicateNamesCollapse(t *testing.T) {
	t.Parallel()

	reader := newStubReader(&models.Team{Name: "alpha"})
	manager := NewManager(reader, time.Second, 10*time.Millisecond)

	acquired, err := manager.WithLock(testsetup.NewTestScope(), "festival-1", []string{"alpha", "alpha"}, constants.OperationPairTeams,
		func(_ *envelope.Scope, teams []*models.Team) error {
			require.Len(t, teams, 1)
			return nil
		})
	require.NoError(t, err)
	require.True(t, acquired)
}
