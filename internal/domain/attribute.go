package domain

import "strings"

// EntityType is the classifier-assigned category of a sensitive attribute.
// The set is open-ended: the upstream classifier owns the taxonomy and this
// engine treats the value as trusted input.
type EntityType string

const (
	EntityIdentityNumber   EntityType = "identity_number"
	EntityFinancialAccount EntityType = "financial_account"
	EntityEmail            EntityType = "email"
	EntityPhone            EntityType = "phone"
	EntityName             EntityType = "name"
	EntityAge              EntityType = "age"
	EntitySalary           EntityType = "salary"
)

// SensitivityTier is the ordered disclosure-damage scale assigned by the
// upstream classifier. Trusted input; never re-validated here.
type SensitivityTier string

const (
	SensitivityLow      SensitivityTier = "low"
	SensitivityMedium   SensitivityTier = "medium"
	SensitivityHigh     SensitivityTier = "high"
	SensitivityCritical SensitivityTier = "critical"
)

// ParseSensitivityTier normalizes a classifier-supplied tier string.
func ParseSensitivityTier(s string) (SensitivityTier, bool) {
	tier := SensitivityTier(strings.ToLower(strings.TrimSpace(s)))
	switch tier {
	case SensitivityLow, SensitivityMedium, SensitivityHigh, SensitivityCritical:
		return tier, true
	}
	return "", false
}

// Ordinal returns the tier's position on the ordered scale, LOW first.
func (t SensitivityTier) Ordinal() int {
	switch t {
	case SensitivityLow:
		return 0
	case SensitivityMedium:
		return 1
	case SensitivityHigh:
		return 2
	case SensitivityCritical:
		return 3
	}
	return 3 // unrecognized tiers are treated as most sensitive
}

// ValueKind distinguishes numeric attributes, which support encoding and
// perturbation, from textual ones, which do not.
type ValueKind int

const (
	ValueText ValueKind = iota
	ValueNumeric
)

// Attribute is a single sensitive value plus classifier metadata. The engine
// never mutates an Attribute; masking always produces a separate MaskedValue.
type Attribute struct {
	EntityType  EntityType
	Sensitivity SensitivityTier
	Kind        ValueKind

	// Text holds the raw value for ValueText attributes.
	Text string
	// Number holds the raw value for ValueNumeric attributes.
	Number float64
}

// NumericAttribute builds a numeric attribute.
func NumericAttribute(entity EntityType, tier SensitivityTier, value float64) Attribute {
	return Attribute{EntityType: entity, Sensitivity: tier, Kind: ValueNumeric, Number: value}
}

// TextAttribute builds a textual attribute.
func TextAttribute(entity EntityType, tier SensitivityTier, value string) Attribute {
	return Attribute{EntityType: entity, Sensitivity: tier, Kind: ValueText, Text: value}
}
