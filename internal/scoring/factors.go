package scoring

import (
	"veil/internal/domain"
	"veil/internal/history"
	"veil/internal/policy"
)

// Factors are the six normalized trust signals, each in [0,1]. Higher is
// always more trust-raising; the sensitivity factor is already inverted.
type Factors struct {
	Role        float64
	Purpose     float64
	Sensitivity float64
	Compliance  float64
	Frequency   float64
	Violation   float64
}

// FactorParams tunes how history statistics normalize into factors.
type FactorParams struct {
	// FrequencyCeiling is the window access count at which the frequency
	// factor bottoms out at 0.
	FrequencyCeiling int
	// ViolationPenalty is subtracted from 1 per violation in the window.
	ViolationPenalty float64
}

func DefaultFactorParams() FactorParams {
	return FactorParams{FrequencyCeiling: 20, ViolationPenalty: 0.25}
}

// sensitivityFactor inverts the tier ordinal: more sensitive data resists
// release, so a higher tier yields a lower factor. Never reaches 0.
func sensitivityFactor(tier domain.SensitivityTier) float64 {
	switch tier.Ordinal() {
	case 0:
		return 1.0
	case 1:
		return 0.7
	case 2:
		return 0.4
	default:
		return 0.15
	}
}

// ComputeFactors derives the six factors from the request and a history
// snapshot. Pure: identical inputs yield identical factors.
func ComputeFactors(
	requester domain.Requester,
	accessCtx domain.AccessContext,
	attr domain.Attribute,
	stats history.Stats,
	cfg policy.Config,
	params FactorParams,
) Factors {
	f := Factors{
		Sensitivity: sensitivityFactor(attr.Sensitivity),
	}

	// Role: configured base trust, floored above 0 for the least-privileged
	// role so downstream arithmetic never degenerates. A known role missing
	// from the trust table is a config gap; treat it as floor trust.
	const roleTrustFloor = 0.05
	if trust, ok := cfg.RoleTrust[requester.Role]; ok && trust > 0 {
		f.Role = trust
	} else {
		f.Role = roleTrustFloor
	}

	// Purpose: allow-listed purposes carry full weight; anything else is a
	// lower-trust signal, not a disqualifier.
	if cfg.PurposeAllowed(attr.EntityType, accessCtx.Purpose) {
		f.Purpose = 1.0
	} else {
		f.Purpose = cfg.UnlistedPurposeFactor
	}

	// Compliance: share of all recorded decisions not flagged as violations.
	// A requester with no history starts fully trusted.
	if stats.TotalCount > 0 {
		f.Compliance = 1.0 - float64(stats.TotalViolations)/float64(stats.TotalCount)
	} else {
		f.Compliance = 1.0
	}

	// Frequency: inverse of normalized window access count. Repeated access
	// to the same class of sensitive data erodes trust.
	ceiling := params.FrequencyCeiling
	if ceiling <= 0 {
		ceiling = DefaultFactorParams().FrequencyCeiling
	}
	load := float64(stats.WindowCount) / float64(ceiling)
	if load > 1 {
		load = 1
	}
	f.Frequency = 1.0 - load

	// Violation: scaled penalty per window violation, floored at 0.
	f.Violation = 1.0 - params.ViolationPenalty*float64(stats.WindowViolations)
	if f.Violation < 0 {
		f.Violation = 0
	}

	return clampFactors(f)
}

func clampFactors(f Factors) Factors {
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
	f.Role = clamp(f.Role)
	f.Purpose = clamp(f.Purpose)
	f.Sensitivity = clamp(f.Sensitivity)
	f.Compliance = clamp(f.Compliance)
	f.Frequency = clamp(f.Frequency)
	f.Violation = clamp(f.Violation)
	return f
}
