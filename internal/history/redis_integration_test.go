//go:build integration

package history_test

import (
	"context"
	"testing"
	"time"

	"veil/internal/domain"
	"veil/internal/history"
	"veil/pkg/testutil/containers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *history.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = history.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) record(requesterID string, violation bool, age time.Duration) history.Record {
	return history.Record{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		EntityType:  domain.EntityAge,
		Level:       domain.LevelPerturb,
		Strategy:    "perturb",
		Score:       0.3,
		Status:      domain.StatusCompleted,
		Violation:   violation,
		CreatedAt:   time.Now().Add(-age),
	}
}

func (s *RedisStoreSuite) TestAppendAndQueryWindow() {
	ctx := context.Background()

	s.Require().NoError(s.store.Append(ctx, s.record("req-1", false, time.Minute)))
	s.Require().NoError(s.store.Append(ctx, s.record("req-1", true, 2*time.Minute)))
	s.Require().NoError(s.store.Append(ctx, s.record("req-1", false, 48*time.Hour)))

	stats, err := s.store.QueryWindow(ctx, "req-1", domain.EntityAge, 24*time.Hour)
	s.Require().NoError(err)

	s.Equal(history.Stats{WindowCount: 2, WindowViolations: 1, TotalCount: 3, TotalViolations: 1}, stats)
}

func (s *RedisStoreSuite) TestKeysAreIsolated() {
	ctx := context.Background()

	s.Require().NoError(s.store.Append(ctx, s.record("req-1", false, 0)))

	stats, err := s.store.QueryWindow(ctx, "req-2", domain.EntityAge, time.Hour)
	s.Require().NoError(err)
	s.Zero(stats)

	other, err := s.store.QueryWindow(ctx, "req-1", domain.EntitySalary, time.Hour)
	s.Require().NoError(err)
	s.Zero(other)
}

func (s *RedisStoreSuite) TestViolationCommitsAtomically() {
	ctx := context.Background()

	s.Require().NoError(s.store.Append(ctx, s.record("req-1", true, 0)))

	stats, err := s.store.QueryWindow(ctx, "req-1", domain.EntityAge, time.Hour)
	s.Require().NoError(err)
	s.Equal(stats.TotalCount, stats.TotalViolations)
	s.Equal(1, stats.TotalCount)
}
