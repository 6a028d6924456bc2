// Package masking implements the five transformation strategies applied to
// sensitive values. The strategy set is a closed enumeration dispatched
// exhaustively; adding a level without a strategy is a compile-visible gap,
// not a runtime lookup miss.
package masking

import (
	"fmt"
	"strings"

	"veil/internal/domain"
)

// Strategy enumerates the closed set of transformations.
type Strategy int

const (
	StrategyReveal Strategy = iota
	StrategyEncode
	StrategyGeneralize
	StrategyPerturb
	StrategySuppress
)

func (s Strategy) String() string {
	switch s {
	case StrategyReveal:
		return "reveal"
	case StrategyEncode:
		return "encode"
	case StrategyGeneralize:
		return "generalize"
	case StrategyPerturb:
		return "perturb"
	case StrategySuppress:
		return "suppress"
	}
	return "unknown"
}

// ForLevel maps a masking level to its strategy. Levels and strategies are
// both closed sets with a fixed one-to-one pairing.
func ForLevel(level domain.MaskingLevel) Strategy {
	switch level {
	case domain.LevelReveal:
		return StrategyReveal
	case domain.LevelEncode:
		return StrategyEncode
	case domain.LevelBucket:
		return StrategyGeneralize
	case domain.LevelPerturb:
		return StrategyPerturb
	default:
		return StrategySuppress
	}
}

// Registry dispatches to the configured strategy implementations. Strategies
// never fall back on each other; an incompatible strategy/attribute pairing
// returns TypeMismatch and the orchestrator decides what happens next.
type Registry struct {
	encoder     *Encoder
	generalizer *Generalizer
	perturber   *Perturber
}

func NewRegistry(encoder *Encoder, generalizer *Generalizer, perturber *Perturber) *Registry {
	return &Registry{
		encoder:     encoder,
		generalizer: generalizer,
		perturber:   perturber,
	}
}

// Apply runs one strategy over one attribute, producing a new MaskedValue.
// The original attribute is never modified.
func (r *Registry) Apply(strategy Strategy, attr domain.Attribute) (domain.MaskedValue, error) {
	switch strategy {
	case StrategyReveal:
		return reveal(attr), nil
	case StrategyEncode:
		return r.encoder.Apply(attr)
	case StrategyGeneralize:
		return r.generalizer.Apply(attr)
	case StrategyPerturb:
		return r.perturber.Apply(attr)
	case StrategySuppress:
		return Suppress(attr), nil
	}
	return domain.MaskedValue{}, fmt.Errorf("unhandled strategy %d", strategy)
}

// reveal is the identity transform, reachable only from Level 0.
func reveal(attr domain.Attribute) domain.MaskedValue {
	return domain.MaskedValue{
		Kind:   attr.Kind,
		Text:   attr.Text,
		Number: attr.Number,
	}
}

// Suppress replaces the value with a type-tagged sentinel that carries no
// information beyond "a value of this type existed and was withheld".
// Idempotent: the sentinel depends only on the entity type.
func Suppress(attr domain.Attribute) domain.MaskedValue {
	return domain.MaskedValue{
		Kind: domain.ValueText,
		Text: Sentinel(attr.EntityType),
	}
}

// Sentinel returns the suppression placeholder for an entity type.
func Sentinel(entity domain.EntityType) string {
	return "[" + strings.ToUpper(string(entity)) + "]"
}
