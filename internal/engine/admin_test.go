package engine

import (
	"context"
	"testing"

	"veil/internal/audit"
	"veil/internal/domain"
	"veil/internal/policy"
	"veil/internal/scoring"

	"github.com/stretchr/testify/suite"
)

type AdminSuite struct {
	EngineSuite
}

func TestAdminSuite(t *testing.T) {
	suite.Run(t, new(AdminSuite))
}

func (s *AdminSuite) TestUpdateWeights() {
	ctx := context.Background()
	actor := domain.Requester{ID: "op-1", Role: domain.RoleAdmin}

	s.Run("applies a valid update and audits it", func() {
		f := s.newFixture()

		updated := scoring.DefaultWeights()
		updated.Bias = -0.55
		s.Require().NoError(f.service.UpdateWeights(ctx, updated, actor))
		s.Equal(updated, f.service.Weights())

		events, err := f.auditStore.ListByRequester(ctx, "op-1")
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(audit.ActionConfigUpdate, events[0].Action)
	})

	s.Run("rejects an invalid update and keeps the old weights", func() {
		f := s.newFixture()
		before := f.service.Weights()

		bad := scoring.DefaultWeights()
		bad.Gain = 0
		s.Error(f.service.UpdateWeights(ctx, bad, actor))
		s.Equal(before, f.service.Weights())

		events, err := f.auditStore.ListByRequester(ctx, "op-1")
		s.Require().NoError(err)
		s.Empty(events)
	})
}

func (s *AdminSuite) TestOverrides() {
	ctx := context.Background()
	actor := domain.Requester{ID: "op-1", Role: domain.RoleAdmin}
	f := s.newFixture()

	override := policy.Override{EntityType: domain.EntityEmail, Role: domain.RoleExternal, Level: domain.LevelSuppress}
	s.Require().NoError(f.service.UpsertOverride(ctx, override, actor))

	overrides, err := f.service.Overrides(ctx)
	s.Require().NoError(err)
	s.Require().Len(overrides, 1)
	s.Equal(override, overrides[0])

	events, err := f.auditStore.ListByRequester(ctx, "op-1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionPolicyUpdate, events[0].Action)
}
