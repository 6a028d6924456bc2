//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"veil/internal/audit"
	"veil/internal/domain"
	"veil/pkg/testutil/containers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = audit.NewPostgresStore(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *PostgresStoreSuite) event(requesterID string, age time.Duration) audit.Event {
	return audit.Event{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().Add(-age).UTC(),
		Action:      audit.ActionDecision,
		RequesterID: requesterID,
		Role:        domain.RoleAnalyst,
		EntityType:  domain.EntitySalary,
		Sensitivity: domain.SensitivityHigh,
		Purpose:     domain.PurposeInternalResearch,
		Level:       domain.LevelBucket,
		Strategy:    "generalize",
		Score:       0.58,
		Status:      domain.StatusCompleted,
	}
}

func (s *PostgresStoreSuite) TestAppendAndListRecent() {
	ctx := context.Background()

	older := s.event("req-1", 2*time.Minute)
	newer := s.event("req-2", time.Minute)
	s.Require().NoError(s.store.Append(ctx, older))
	s.Require().NoError(s.store.Append(ctx, newer))

	events, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(older.ID, events[0].ID)
	s.Equal(newer.ID, events[1].ID)
	s.Equal(audit.ActionDecision, events[0].Action)
	s.Equal(domain.LevelBucket, events[0].Level)
}

func (s *PostgresStoreSuite) TestListRecentKeepsNewestSuffix() {
	ctx := context.Background()

	oldest := s.event("req-1", 3*time.Minute)
	middle := s.event("req-1", 2*time.Minute)
	newest := s.event("req-1", time.Minute)
	s.Require().NoError(s.store.Append(ctx, oldest))
	s.Require().NoError(s.store.Append(ctx, middle))
	s.Require().NoError(s.store.Append(ctx, newest))

	events, err := s.store.ListRecent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(middle.ID, events[0].ID)
	s.Equal(newest.ID, events[1].ID)
}

func (s *PostgresStoreSuite) TestListByRequester() {
	ctx := context.Background()

	mine := s.event("req-1", time.Minute)
	theirs := s.event("req-2", time.Minute)
	s.Require().NoError(s.store.Append(ctx, mine))
	s.Require().NoError(s.store.Append(ctx, theirs))

	events, err := s.store.ListByRequester(ctx, "req-1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(mine.ID, events[0].ID)
}
