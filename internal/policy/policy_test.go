package policy

import (
	"context"
	"testing"

	"veil/internal/domain"

	"github.com/stretchr/testify/suite"
)

type PolicySuite struct {
	suite.Suite
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

func (s *PolicySuite) TestDefaultConfig() {
	cfg := Default()

	s.Run("every known role has positive trust", func() {
		for _, role := range domain.KnownRoles {
			trust, ok := cfg.RoleTrust[role]
			s.True(ok, "role %s missing from trust table", role)
			s.Greater(trust, 0.0)
			s.LessOrEqual(trust, 1.0)
		}
	})

	s.Run("purpose allow-lists resolve", func() {
		s.True(cfg.PurposeAllowed(domain.EntityEmail, domain.PurposeCompliance))
		s.False(cfg.PurposeAllowed(domain.EntityEmail, domain.PurposeMarketing))
		s.False(cfg.PurposeAllowed(domain.EntityType("unknown"), domain.PurposeCompliance))
	})

	s.Run("epsilon falls back to the default budget", func() {
		s.InDelta(0.5, cfg.EpsilonFor(domain.EntityAge), 1e-9)
		s.InDelta(0.3, cfg.EpsilonFor(domain.EntitySalary), 1e-9)
		s.InDelta(cfg.DefaultEpsilon, cfg.EpsilonFor(domain.EntityEmail), 1e-9)
	})
}

func (s *PolicySuite) TestOverrideStore() {
	ctx := context.Background()

	s.Run("exact match wins over the wildcard", func() {
		store := NewInMemoryOverrideStore(
			Override{EntityType: domain.EntityEmail, Role: domain.RoleExternal, Level: domain.LevelBucket},
			Override{EntityType: "*", Role: domain.RoleExternal, Level: domain.LevelSuppress},
		)

		o, found, err := store.Lookup(ctx, domain.EntityEmail, domain.RoleExternal)
		s.Require().NoError(err)
		s.True(found)
		s.Equal(domain.LevelBucket, o.Level)

		o, found, err = store.Lookup(ctx, domain.EntitySalary, domain.RoleExternal)
		s.Require().NoError(err)
		s.True(found)
		s.Equal(domain.LevelSuppress, o.Level)
	})

	s.Run("misses report not found", func() {
		store := NewInMemoryOverrideStore()

		_, found, err := store.Lookup(ctx, domain.EntityEmail, domain.RoleAdmin)
		s.Require().NoError(err)
		s.False(found)
	})

	s.Run("upsert replaces an existing entry", func() {
		store := NewInMemoryOverrideStore()
		key := Override{EntityType: domain.EntityAge, Role: domain.RoleAnalyst, Level: domain.LevelPerturb}

		s.Require().NoError(store.Upsert(ctx, key))
		key.Level = domain.LevelSuppress
		s.Require().NoError(store.Upsert(ctx, key))

		list, err := store.List(ctx)
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(domain.LevelSuppress, list[0].Level)
	})
}
