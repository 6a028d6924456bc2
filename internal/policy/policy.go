// Package policy holds the configured trust tables the scoring model
// evaluates: per-role base trust, per-entity purpose allow-lists, privacy
// budgets, and explicit level overrides. The engine evaluates these values;
// it never computes them.
package policy

import (
	"veil/internal/domain"
)

// Config carries every tunable the decision path consults. Concrete values
// are deployment configuration; the defaults below are development seeds.
type Config struct {
	// RoleTrust maps each known role to its base trust weight in (0,1].
	// The least-privileged role keeps a small positive floor, never 0.
	RoleTrust map[domain.Role]float64

	// PurposeAllowlist maps entity types to their legitimate purposes. A
	// purpose outside the list downgrades trust; it does not reject.
	PurposeAllowlist map[domain.EntityType][]domain.Purpose

	// UnlistedPurposeFactor is the purpose factor applied when the declared
	// purpose is not in the allow-list. Low but never zero.
	UnlistedPurposeFactor float64

	// Epsilon is the differential-privacy budget per entity type, each in
	// (0.1, 1.0]. Smaller budgets mean noisier Level-3 output.
	Epsilon map[domain.EntityType]float64

	// DefaultEpsilon applies to entity types without an explicit budget.
	DefaultEpsilon float64
}

// Default returns the development trust tables. Production deployments
// override these through platform configuration.
func Default() Config {
	return Config{
		RoleTrust: map[domain.Role]float64{
			domain.RoleAdmin:     1.0,
			domain.RoleSteward:   0.75,
			domain.RoleAnalyst:   0.6,
			domain.RoleAnnotator: 0.4,
			domain.RoleExternal:  0.2,
			domain.RoleLabeler:   0.1,
		},
		PurposeAllowlist: map[domain.EntityType][]domain.Purpose{
			domain.EntityIdentityNumber:   {domain.PurposeCompliance, domain.PurposeInternalResearch},
			domain.EntityFinancialAccount: {domain.PurposeCompliance},
			domain.EntityEmail:            {domain.PurposeCompliance, domain.PurposeInternalResearch, domain.PurposeResearch},
			domain.EntityPhone:            {domain.PurposeCompliance, domain.PurposeInternalResearch},
			domain.EntityName:             {domain.PurposeCompliance, domain.PurposeInternalResearch, domain.PurposeResearch},
			domain.EntityAge:              {domain.PurposeCompliance, domain.PurposeInternalResearch, domain.PurposeResearch, domain.PurposeGeneral},
			domain.EntitySalary:           {domain.PurposeCompliance, domain.PurposeInternalResearch},
		},
		UnlistedPurposeFactor: 0.2,
		Epsilon: map[domain.EntityType]float64{
			domain.EntityAge:    0.5,
			domain.EntitySalary: 0.3,
		},
		DefaultEpsilon: 0.5,
	}
}

// PurposeAllowed reports whether the declared purpose is in the entity
// type's allow-list.
func (c Config) PurposeAllowed(entity domain.EntityType, purpose domain.Purpose) bool {
	for _, allowed := range c.PurposeAllowlist[entity] {
		if allowed == purpose {
			return true
		}
	}
	return false
}

// EpsilonFor returns the privacy budget for an entity type.
func (c Config) EpsilonFor(entity domain.EntityType) float64 {
	if eps, ok := c.Epsilon[entity]; ok {
		return eps
	}
	return c.DefaultEpsilon
}
