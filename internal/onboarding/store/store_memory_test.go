package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboard/internal/onboarding"
	"onboard/internal/onboarding/store"
	"onboard/pkg/platform/sentinel"
)

func TestMemoryStoreCreateAndFind(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	err := s.Create(ctx, &onboarding.Instance{ID: "inst-1", ClientID: "client-1", CreatedAt: time.Now()})
	require.NoError(t, err)

	found, err := s.FindByID(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "client-1", found.ClientID)
}

func TestMemoryStoreDuplicateCreateConflicts(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &onboarding.Instance{ID: "inst-1", ClientID: "client-1"}))

	err := s.Create(ctx, &onboarding.Instance{ID: "inst-1", ClientID: "client-2"})
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestMemoryStoreFindMissing(t *testing.T) {
	s := store.NewMemory()

	_, err := s.FindByID(context.Background(), "inst-missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
