package httptransport

import (
	"time"

	"veil/internal/audit"
	"veil/internal/domain"
	"veil/internal/engine"
	"veil/internal/policy"
	"veil/internal/scoring"
)

// MaskedValuePayload is the wire form of a masked value. Exactly one of
// value/ciphertext is set; suppressed fields carry the sentinel as value.
type MaskedValuePayload struct {
	Value      any    `json:"value,omitempty"`
	Ciphertext string `json:"ciphertext,omitempty"`
	KeyID      string `json:"key_id,omitempty"`
	Clamped    bool   `json:"clamped,omitempty"`
}

func maskedValuePayload(v domain.MaskedValue) MaskedValuePayload {
	out := MaskedValuePayload{KeyID: v.KeyID, Clamped: v.Clamped}
	if v.Ciphertext != "" {
		out.Ciphertext = v.Ciphertext
		return out
	}
	if v.Kind == domain.ValueNumeric {
		out.Value = v.Number
	} else {
		out.Value = v.Text
	}
	return out
}

// FieldResultPayload is the per-field outcome within a masked record.
type FieldResultPayload struct {
	Field    string             `json:"field"`
	Level    int                `json:"level"`
	Strategy string             `json:"strategy"`
	Status   string             `json:"status"`
	Masked   MaskedValuePayload `json:"masked"`
}

// MaskResponse is the body returned by POST /v1/mask.
type MaskResponse struct {
	Fields  []FieldResultPayload `json:"fields"`
	Applied int                  `json:"applied"`
}

func maskResponse(result *engine.RecordResult) MaskResponse {
	out := MaskResponse{Applied: result.Applied, Fields: make([]FieldResultPayload, 0, len(result.Fields))}
	for _, f := range result.Fields {
		out.Fields = append(out.Fields, FieldResultPayload{
			Field:    f.Field,
			Level:    int(f.Level),
			Strategy: f.Strategy,
			Status:   string(f.Status),
			Masked:   maskedValuePayload(f.Masked),
		})
	}
	return out
}

// ExplainResponse breaks a score into per-factor contributions.
type ExplainResponse struct {
	Level         int                `json:"level"`
	Score         float64            `json:"score"`
	Linear        float64            `json:"linear"`
	Factors       map[string]float64 `json:"factors"`
	Contributions map[string]float64 `json:"contributions"`
}

func explainResponse(e scoring.Explanation, level domain.MaskingLevel) ExplainResponse {
	return ExplainResponse{
		Level:  int(level),
		Score:  e.Score,
		Linear: e.Linear,
		Factors: map[string]float64{
			"role":        e.Factors.Role,
			"purpose":     e.Factors.Purpose,
			"sensitivity": e.Factors.Sensitivity,
			"compliance":  e.Factors.Compliance,
			"frequency":   e.Factors.Frequency,
			"violation":   e.Factors.Violation,
		},
		Contributions: map[string]float64{
			"role":        e.Contributions.Role,
			"purpose":     e.Contributions.Purpose,
			"sensitivity": e.Contributions.Sensitivity,
			"compliance":  e.Contributions.Compliance,
			"frequency":   e.Contributions.Frequency,
			"violation":   e.Contributions.Violation,
		},
	}
}

// DecryptResponse returns the recovered plaintext.
type DecryptResponse struct {
	Value float64 `json:"value"`
}

// OverridePayload is the wire form of a level override.
type OverridePayload struct {
	EntityType string `json:"entity_type"`
	Role       string `json:"role"`
	Level      int    `json:"level"`
}

// OverrideListResponse is the body of GET /v1/policies.
type OverrideListResponse struct {
	Overrides []OverridePayload `json:"overrides"`
}

func overrideListResponse(overrides []policy.Override) OverrideListResponse {
	out := OverrideListResponse{Overrides: make([]OverridePayload, 0, len(overrides))}
	for _, o := range overrides {
		out.Overrides = append(out.Overrides, OverridePayload{
			EntityType: string(o.EntityType),
			Role:       string(o.Role),
			Level:      int(o.Level),
		})
	}
	return out
}

// ConfigResponse is the body of GET /v1/config.
type ConfigResponse struct {
	Weights WeightsPayload `json:"weights"`
}

// AuditEventPayload is the wire form of one audit event.
type AuditEventPayload struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	RequesterID string    `json:"requester_id"`
	Role        string    `json:"role,omitempty"`
	EntityType  string    `json:"entity_type,omitempty"`
	Purpose     string    `json:"purpose,omitempty"`
	Level       int       `json:"level"`
	Strategy    string    `json:"strategy,omitempty"`
	Score       float64   `json:"score"`
	Status      string    `json:"status"`
	Violation   bool      `json:"violation"`
	Reason      string    `json:"reason,omitempty"`
}

// AuditListResponse is the body of GET /v1/audit.
type AuditListResponse struct {
	Events []AuditEventPayload `json:"events"`
}

func auditListResponse(events []audit.Event) AuditListResponse {
	out := AuditListResponse{Events: make([]AuditEventPayload, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, AuditEventPayload{
			ID:          e.ID,
			Timestamp:   e.Timestamp,
			Action:      string(e.Action),
			RequesterID: e.RequesterID,
			Role:        string(e.Role),
			EntityType:  string(e.EntityType),
			Purpose:     string(e.Purpose),
			Level:       int(e.Level),
			Strategy:    e.Strategy,
			Score:       e.Score,
			Status:      string(e.Status),
			Violation:   e.Violation,
			Reason:      e.Reason,
		})
	}
	return out
}
