package engine

import (
	"context"
	"time"

	"veil/internal/audit"
	"veil/internal/domain"
	"veil/internal/policy"
	"veil/internal/scoring"
)

// Weights returns the active scoring weight snapshot.
func (s *Service) Weights() scoring.Weights {
	return s.model.Snapshot()
}

// UpdateWeights applies a validated fixed-point update of the scoring
// weights and records the change.
func (s *Service) UpdateWeights(ctx context.Context, w scoring.Weights, actor domain.Requester) error {
	if err := s.model.UpdateWeights(w); err != nil {
		return err
	}
	return s.publisher.Emit(context.WithoutCancel(ctx), audit.Event{
		Timestamp:   time.Now(),
		Action:      audit.ActionConfigUpdate,
		RequesterID: actor.ID,
		Role:        actor.Role,
		Status:      domain.StatusCompleted,
	})
}

// Overrides lists the explicit level overrides.
func (s *Service) Overrides(ctx context.Context) ([]policy.Override, error) {
	if s.overrides == nil {
		return nil, nil
	}
	return s.overrides.List(ctx)
}

// UpsertOverride installs or replaces a level override and records the
// change.
func (s *Service) UpsertOverride(ctx context.Context, override policy.Override, actor domain.Requester) error {
	if s.overrides == nil {
		return nil
	}
	if err := s.overrides.Upsert(ctx, override); err != nil {
		return err
	}
	return s.publisher.Emit(context.WithoutCancel(ctx), audit.Event{
		Timestamp:   time.Now(),
		Action:      audit.ActionPolicyUpdate,
		RequesterID: actor.ID,
		Role:        actor.Role,
		EntityType:  override.EntityType,
		Level:       override.Level,
		Status:      domain.StatusCompleted,
	})
}
