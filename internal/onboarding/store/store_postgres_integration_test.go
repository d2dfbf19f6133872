//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"onboard/internal/onboarding"
	"onboard/internal/onboarding/store"
	"onboard/pkg/platform/sentinel"
	"onboard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "onboarding_instances")
	s.Require().NoError(err)
}

func newTestInstance(id, clientID string) *onboarding.Instance {
	return &onboarding.Instance{
		ID:        id,
		ClientID:  clientID,
		CreatedAt: time.Now(),
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()

	s.Require().NoError(s.store.Create(ctx, newTestInstance("inst-1", "client-1")))

	found, err := s.store.FindByID(ctx, "inst-1")
	s.Require().NoError(err)
	s.Equal("client-1", found.ClientID)
}

func (s *PostgresStoreSuite) TestDuplicateCreateConflicts() {
	ctx := context.Background()

	s.Require().NoError(s.store.Create(ctx, newTestInstance("inst-1", "client-1")))

	err := s.store.Create(ctx, newTestInstance("inst-1", "client-2"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindMissingReturnsNotFound() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, "inst-missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentDuplicateCreate verifies that concurrent creation attempts
// with the same ID result in exactly one success.
func (s *PostgresStoreSuite) TestConcurrentDuplicateCreate() {
	ctx := context.Background()
	instanceID := "inst-" + uuid.NewString()
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := s.store.Create(ctx, newTestInstance(instanceID, "client-1"))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}

	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should get conflict error")
}
