//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"donorhub/internal/auth/store/revocation"
	"donorhub/pkg/testutil/containers"
)

type RevocationStoreSuite struct {
	suite.Suite
	redis    *containers.RedisContainer
	postgres *containers.PostgresContainer
}

func TestRevocationStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RevocationStoreSuite))
}

func (s *RevocationStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.postgres = mgr.GetPostgres(s.T())
}

func (s *RevocationStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.redis.FlushAll(ctx))
	s.Require().NoError(s.postgres.TruncateTables(ctx, "token_revocations"))
}

func (s *RevocationStoreSuite) TestRedisTRL() {
	ctx := context.Background()
	trl := revocation.NewRedisTRL(s.redis.Client)

	s.Require().NoError(trl.RevokeToken(ctx, "jti-redis", time.Minute))
	revoked, err := trl.IsRevoked(ctx, "jti-redis")
	s.Require().NoError(err)
	s.True(revoked)

	ttl, err := s.redis.Client.TTL(ctx, "trl:jti:jti-redis").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Minute)

	revoked, err = trl.IsRevoked(ctx, "jti-other")
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *RevocationStoreSuite) TestPostgresTRL() {
	ctx := context.Background()
	now := time.Now().UTC()
	trl := revocation.NewPostgresTRL(s.postgres.DB, revocation.WithPostgresClock(func() time.Time { return now }))

	s.Require().NoError(trl.RevokeToken(ctx, "jti-pg", time.Hour))
	s.Require().NoError(trl.RevokeToken(ctx, "jti-pg", 2*time.Hour), "revoking twice extends the entry")

	revoked, err := trl.IsRevoked(ctx, "jti-pg")
	s.Require().NoError(err)
	s.True(revoked)

	now = now.Add(3 * time.Hour)
	revoked, err = trl.IsRevoked(ctx, "jti-pg")
	s.Require().NoError(err)
	s.False(revoked)

	purged, err := trl.PurgeExpired(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), purged)
}
