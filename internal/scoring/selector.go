package scoring

import (
	"math"

	"veil/internal/domain"
)

// Threshold bands mapping score to masking level. Bands are half-open,
// closed on the left, except the top band which is closed at 1.0.
const (
	RevealThreshold  = 0.85
	EncodeThreshold  = 0.65
	BucketThreshold  = 0.45
	PerturbThreshold = 0.25
)

// SelectLevel maps a score to its masking level. Total over [0,1]; anything
// outside that range (including NaN) is an input-contract violation and is
// reported, never clamped. The orchestrator owns the fail-closed fallback.
func SelectLevel(score float64) (domain.MaskingLevel, error) {
	if math.IsNaN(score) || score < 0 || score > 1 {
		return domain.LevelSuppress, &domain.ScoreOutOfRangeError{Score: score}
	}
	switch {
	case score >= RevealThreshold:
		return domain.LevelReveal, nil
	case score >= EncodeThreshold:
		return domain.LevelEncode, nil
	case score >= BucketThreshold:
		return domain.LevelBucket, nil
	case score >= PerturbThreshold:
		return domain.LevelPerturb, nil
	default:
		return domain.LevelSuppress, nil
	}
}
