package domain

import "time"

// MaskingLevel is one of five ordered protection tiers. Higher levels protect
// more and reveal less.
type MaskingLevel int

const (
	LevelReveal   MaskingLevel = 0
	LevelEncode   MaskingLevel = 1
	LevelBucket   MaskingLevel = 2
	LevelPerturb  MaskingLevel = 3
	LevelSuppress MaskingLevel = 4
)

func (l MaskingLevel) String() string {
	switch l {
	case LevelReveal:
		return "reveal"
	case LevelEncode:
		return "encode"
	case LevelBucket:
		return "generalize"
	case LevelPerturb:
		return "perturb"
	case LevelSuppress:
		return "suppress"
	}
	return "unknown"
}

// MaskedValue is the transformed representation of an attribute. Exactly one
// of the payload fields is meaningful, indicated by Kind.
type MaskedValue struct {
	Kind ValueKind

	Text   string
	Number float64

	// Ciphertext carries the hex-encoded Paillier ciphertext for Level-1
	// encodings, together with the key fingerprint needed for later decrypt
	// accounting. Empty for all other levels.
	Ciphertext string
	KeyID      string

	// Clamped records that a perturbed value was pulled back into its natural
	// domain. Clamping skews pure differential privacy, so it is surfaced
	// rather than applied silently.
	Clamped bool
}

// DecisionStatus classifies the terminal outcome of a masking request. Every
// status, including the failure statuses, is written to the history store so
// the audit trail has no gaps.
type DecisionStatus string

const (
	StatusCompleted          DecisionStatus = "completed"
	StatusUnknownRole        DecisionStatus = "unknown_role"
	StatusTypeMismatch       DecisionStatus = "type_mismatch"
	StatusHistoryUnavailable DecisionStatus = "history_unavailable"
	StatusScoreOutOfRange    DecisionStatus = "score_out_of_range"
)

// Decision is the immutable output of one masking request: the level chosen,
// the strategy applied, the resulting representation, and the score that
// produced it. It is the unit written to the history store.
type Decision struct {
	ID          string
	RequesterID string
	Role        Role
	EntityType  EntityType
	Sensitivity SensitivityTier
	Purpose     Purpose
	Level       MaskingLevel
	Strategy    string
	Masked      MaskedValue
	Score       float64
	Status      DecisionStatus
	// Violation flags decisions that represent a trust-lowering event, such
	// as an undeclared purpose or an incompatible strategy request. The
	// scoring model reads these back as the violation factor.
	Violation bool
	Timestamp time.Time
}
