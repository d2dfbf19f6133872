//go:build integration

package access_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"onboard/internal/access"
	"onboard/pkg/testutil/containers"
)

// countingDirectory counts authoritative lookups so cache hits are observable.
type countingDirectory struct {
	inner access.Directory
	calls atomic.Int32
}

func (d *countingDirectory) ResolveRoles(ctx context.Context, userID string) ([]access.Role, error) {
	d.calls.Add(1)
	return d.inner.ResolveRoles(ctx, userID)
}

type CachedDirectorySuite struct {
	suite.Suite
	redis    *containers.RedisContainer
	inner    *countingDirectory
	memory   *access.MemoryDirectory
	cached   *access.CachedDirectory
	testUser string
}

func TestCachedDirectorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedDirectorySuite))
}

func (s *CachedDirectorySuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *CachedDirectorySuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.redis.FlushAll(ctx))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.memory = access.NewMemoryDirectory()
	s.inner = &countingDirectory{inner: s.memory}
	s.cached = access.NewCachedDirectory(s.inner, s.redis.Client, time.Minute, logger)

	s.testUser = uuid.NewString()
	s.memory.Grant(s.testUser, access.RoleAdmin)
}

func (s *CachedDirectorySuite) TestSecondLookupServedFromCache() {
	ctx := context.Background()

	roles, err := s.cached.ResolveRoles(ctx, s.testUser)
	s.Require().NoError(err)
	s.Equal([]access.Role{access.RoleAdmin}, roles)
	s.Equal(int32(1), s.inner.calls.Load())

	roles, err = s.cached.ResolveRoles(ctx, s.testUser)
	s.Require().NoError(err)
	s.Equal([]access.Role{access.RoleAdmin}, roles)
	s.Equal(int32(1), s.inner.calls.Load(), "second lookup must not hit the directory")
}

func (s *CachedDirectorySuite) TestCachedRoleSetOutlivesGrantChange() {
	ctx := context.Background()

	_, err := s.cached.ResolveRoles(ctx, s.testUser)
	s.Require().NoError(err)

	// A grant made after caching is invisible until the TTL expires.
	s.memory.Grant(s.testUser, access.RoleClient)

	roles, err := s.cached.ResolveRoles(ctx, s.testUser)
	s.Require().NoError(err)
	s.Equal([]access.Role{access.RoleAdmin}, roles)
}

func (s *CachedDirectorySuite) TestCorruptCacheEntryFallsThrough() {
	ctx := context.Background()

	err := s.redis.Client.Set(ctx, "roles:user:"+s.testUser, "{not json", time.Minute).Err()
	s.Require().NoError(err)

	roles, err := s.cached.ResolveRoles(ctx, s.testUser)
	s.Require().NoError(err)
	s.Equal([]access.Role{access.RoleAdmin}, roles)
	s.Equal(int32(1), s.inner.calls.Load(), "corrupt entry must trigger authoritative lookup")
}

func (s *CachedDirectorySuite) TestDistinctUsersCachedSeparately() {
	ctx := context.Background()
	other := uuid.NewString()
	s.memory.Grant(other, access.RoleClient)

	adminRoles, err := s.cached.ResolveRoles(ctx, s.testUser)
	s.Require().NoError(err)
	clientRoles, err := s.cached.ResolveRoles(ctx, other)
	s.Require().NoError(err)

	s.Equal([]access.Role{access.RoleAdmin}, adminRoles)
	s.Equal([]access.Role{access.RoleClient}, clientRoles)
}
