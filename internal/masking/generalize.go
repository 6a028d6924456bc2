package masking

import (
	"fmt"
	"math"
	"strings"

	"veil/internal/domain"
)

// GeneralizeRules configures the Level-2 strategy per entity type.
type GeneralizeRules struct {
	// BucketWidth maps numeric entity types to their band width, e.g. age
	// to decades, salary to fixed salary bands.
	BucketWidth map[domain.EntityType]float64
	// DefaultBucketWidth applies to numeric types without an explicit width.
	DefaultBucketWidth float64

	// PrefixLength maps textual entity types to the number of leading
	// characters preserved before the masked tail.
	PrefixLength map[domain.EntityType]int
	// DefaultPrefixLength applies to textual types without an explicit length.
	DefaultPrefixLength int

	// MaskRune fills the masked tail of textual values.
	MaskRune rune
}

// DefaultGeneralizeRules are the development defaults.
func DefaultGeneralizeRules() GeneralizeRules {
	return GeneralizeRules{
		BucketWidth: map[domain.EntityType]float64{
			domain.EntityAge:    10,
			domain.EntitySalary: 5000,
		},
		DefaultBucketWidth: 10,
		PrefixLength: map[domain.EntityType]int{
			domain.EntityIdentityNumber:   2,
			domain.EntityFinancialAccount: 4,
			domain.EntityPhone:            4,
			domain.EntityName:             1,
		},
		DefaultPrefixLength: 2,
		MaskRune:            '*',
	}
}

// Generalizer coarsens precise values into recognizable but imprecise ones:
// numeric values collapse into fixed-width bands, textual values keep a
// structural prefix and lose the rest.
type Generalizer struct {
	rules GeneralizeRules
}

func NewGeneralizer(rules GeneralizeRules) *Generalizer {
	if rules.MaskRune == 0 {
		rules.MaskRune = '*'
	}
	return &Generalizer{rules: rules}
}

func (g *Generalizer) Apply(attr domain.Attribute) (domain.MaskedValue, error) {
	switch attr.Kind {
	case domain.ValueNumeric:
		return domain.MaskedValue{Kind: domain.ValueText, Text: g.bucket(attr)}, nil
	case domain.ValueText:
		return domain.MaskedValue{Kind: domain.ValueText, Text: g.maskTail(attr)}, nil
	}
	return domain.MaskedValue{}, &domain.TypeMismatchError{
		Strategy:   StrategyGeneralize.String(),
		EntityType: attr.EntityType,
	}
}

// bucket maps a numeric value into its band, rendered as "lo-hi".
func (g *Generalizer) bucket(attr domain.Attribute) string {
	width := g.rules.DefaultBucketWidth
	if w, ok := g.rules.BucketWidth[attr.EntityType]; ok && w > 0 {
		width = w
	}
	lo := math.Floor(attr.Number/width) * width
	hi := lo + width - 1
	return fmt.Sprintf("%s-%s", formatBound(lo), formatBound(hi))
}

func formatBound(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// maskTail preserves a structurally recognizable prefix and masks the rest.
// Email addresses keep their domain part so the value stays identifiable as
// an address without exposing the mailbox.
func (g *Generalizer) maskTail(attr domain.Attribute) string {
	value := attr.Text
	if attr.EntityType == domain.EntityEmail {
		if at := strings.LastIndex(value, "@"); at > 0 {
			return g.masked(value[:at], g.prefixFor(attr.EntityType)) + value[at:]
		}
	}
	return g.masked(value, g.prefixFor(attr.EntityType))
}

func (g *Generalizer) prefixFor(entity domain.EntityType) int {
	if n, ok := g.rules.PrefixLength[entity]; ok {
		return n
	}
	return g.rules.DefaultPrefixLength
}

func (g *Generalizer) masked(value string, prefix int) string {
	runes := []rune(value)
	if prefix >= len(runes) {
		// Too short to reveal anything; mask it entirely.
		prefix = 0
	}
	var b strings.Builder
	for i, r := range runes {
		if i < prefix {
			b.WriteRune(r)
		} else {
			b.WriteRune(g.rules.MaskRune)
		}
	}
	return b.String()
}
