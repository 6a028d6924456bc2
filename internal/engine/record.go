package engine

import (
	"context"
	"errors"

	"veil/internal/domain"
	"veil/internal/masking"
)

// FieldDetection ties a record field to its classifier output. The upstream
// PII pipeline owns detection; this engine trusts it.
type FieldDetection struct {
	Field     string
	Attribute domain.Attribute
}

// FieldResult is the outcome for one detected field.
type FieldResult struct {
	Field    string
	Masked   domain.MaskedValue
	Level    domain.MaskingLevel
	Strategy string
	Status   domain.DecisionStatus
}

// RecordResult summarizes masking one multi-field record.
type RecordResult struct {
	Fields []FieldResult
	// Applied counts fields whose value was actually transformed.
	Applied int
}

// MaskRecord runs an independent decision per detected field. A field whose
// decision fails still fails closed to the suppression sentinel; the
// per-field status says why. One history record is appended per field, so
// the audit trail is as granular as the decisions themselves.
func (s *Service) MaskRecord(ctx context.Context, requester domain.Requester, accessCtx domain.AccessContext, detections []FieldDetection) (*RecordResult, error) {
	result := &RecordResult{}

	for _, detection := range detections {
		decision, err := s.Decide(ctx, Request{
			Requester: requester,
			Context:   accessCtx,
			Attribute: detection.Attribute,
		})
		field := FieldResult{Field: detection.Field}
		switch {
		case err == nil:
			field.Masked = decision.Masked
			field.Level = decision.Level
			field.Strategy = decision.Strategy
			field.Status = decision.Status
		default:
			// The decision failed closed; surface only the sentinel.
			field.Masked = masking.Suppress(detection.Attribute)
			field.Level = domain.LevelSuppress
			field.Strategy = masking.StrategySuppress.String()
			field.Status = failureStatus(err)
		}
		if field.Level != domain.LevelReveal {
			result.Applied++
		}
		result.Fields = append(result.Fields, field)
	}
	return result, nil
}

func failureStatus(err error) domain.DecisionStatus {
	var unknownRole *domain.UnknownRoleError
	var mismatch *domain.TypeMismatchError
	var outOfRange *domain.ScoreOutOfRangeError
	switch {
	case errors.As(err, &unknownRole):
		return domain.StatusUnknownRole
	case errors.As(err, &mismatch):
		return domain.StatusTypeMismatch
	case errors.As(err, &outOfRange):
		return domain.StatusScoreOutOfRange
	default:
		return domain.StatusHistoryUnavailable
	}
}
