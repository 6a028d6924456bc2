package audit

import (
	"context"
	"time"

	"veil/internal/domain"
)

// Action names the operation an event records.
type Action string

const (
	// ActionDecision records one terminal masking decision, successful or not.
	ActionDecision Action = "masking_decision"
	// ActionDecrypt records an explicitly authorized recovery of a Level-1
	// encoding. Decrypts are accounting-relevant and always audited.
	ActionDecrypt Action = "ciphertext_decrypt"
	// ActionConfigUpdate records a change to the scoring weights.
	ActionConfigUpdate Action = "config_update"
	// ActionPolicyUpdate records a change to the level overrides.
	ActionPolicyUpdate Action = "policy_update"
)

// Event is emitted from domain logic to capture key actions. It is
// transport-agnostic so stores and sinks can fan out. Events never carry the
// raw sensitive value, only decision metadata.
type Event struct {
	ID          string
	Timestamp   time.Time
	Action      Action
	RequesterID string
	Role        domain.Role
	EntityType  domain.EntityType
	Sensitivity domain.SensitivityTier
	Purpose     domain.Purpose
	Level       domain.MaskingLevel
	Strategy    string
	Score       float64
	Status      domain.DecisionStatus
	Violation   bool
	Reason      string
}

// Sink receives events. Stores, brokers, and test doubles implement it.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
