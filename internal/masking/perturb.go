package masking

import (
	"math"
	"math/rand/v2"
	"sync"

	"veil/internal/domain"
)

// Bounds is the natural domain of a numeric entity type. Nil ends are
// unbounded.
type Bounds struct {
	Min *float64
	Max *float64
}

// PerturbConfig calibrates the Level-3 strategy.
type PerturbConfig struct {
	// Epsilon returns the privacy budget for an entity type, in (0.1, 1.0].
	Epsilon func(domain.EntityType) float64
	// Sensitivity is the query sensitivity per entity type; the Laplace
	// scale is Sensitivity/Epsilon. Defaults to 1 when absent.
	Sensitivity map[domain.EntityType]float64
	// NaturalBounds clamps output to the value's legal domain, e.g. age
	// never below 0. Clamping deviates from pure differential privacy and
	// is therefore recorded on the MaskedValue, never applied silently.
	NaturalBounds map[domain.EntityType]Bounds
	// Decimals is the fixed precision of the perturbed output.
	Decimals int
}

// DefaultPerturbConfig returns development bounds for the built-in numeric
// entity types.
func DefaultPerturbConfig(epsilon func(domain.EntityType) float64) PerturbConfig {
	zero := 0.0
	maxAge := 130.0
	return PerturbConfig{
		Epsilon: epsilon,
		Sensitivity: map[domain.EntityType]float64{
			domain.EntityAge:    1,
			domain.EntitySalary: 100,
		},
		NaturalBounds: map[domain.EntityType]Bounds{
			domain.EntityAge:    {Min: &zero, Max: &maxAge},
			domain.EntitySalary: {Min: &zero},
		},
		Decimals: 2,
	}
}

// Perturber adds calibrated Laplace noise to numeric values. The noise is
// symmetric and zero-centered, so sample means converge to the true value;
// only domain clamping can introduce a shift, and that is flagged per value.
type Perturber struct {
	cfg PerturbConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPerturber builds a perturber around the given noise source. Pass a
// seeded source in tests for reproducible draws; nil selects a randomly
// seeded one.
func NewPerturber(cfg PerturbConfig, src rand.Source) *Perturber {
	if cfg.Decimals <= 0 {
		cfg.Decimals = 2
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Perturber{cfg: cfg, rng: rand.New(src)}
}

func (p *Perturber) Apply(attr domain.Attribute) (domain.MaskedValue, error) {
	if attr.Kind != domain.ValueNumeric {
		return domain.MaskedValue{}, &domain.TypeMismatchError{
			Strategy:   StrategyPerturb.String(),
			EntityType: attr.EntityType,
		}
	}

	scale := p.scaleFor(attr.EntityType)
	perturbed := attr.Number + p.laplace(scale)

	clamped := false
	if bounds, ok := p.cfg.NaturalBounds[attr.EntityType]; ok {
		if bounds.Min != nil && perturbed < *bounds.Min {
			perturbed = *bounds.Min
			clamped = true
		}
		if bounds.Max != nil && perturbed > *bounds.Max {
			perturbed = *bounds.Max
			clamped = true
		}
	}

	pow := math.Pow(10, float64(p.cfg.Decimals))
	return domain.MaskedValue{
		Kind:    domain.ValueNumeric,
		Number:  math.Round(perturbed*pow) / pow,
		Clamped: clamped,
	}, nil
}

func (p *Perturber) scaleFor(entity domain.EntityType) float64 {
	sensitivity := 1.0
	if s, ok := p.cfg.Sensitivity[entity]; ok && s > 0 {
		sensitivity = s
	}
	eps := p.cfg.Epsilon(entity)
	if eps <= 0 {
		eps = 0.5
	}
	return sensitivity / eps
}

// laplace draws Laplace(0, scale) noise as the difference of two unit
// exponentials, which is symmetric and free of boundary cases.
func (p *Perturber) laplace(scale float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return scale * (p.rng.ExpFloat64() - p.rng.ExpFloat64())
}
