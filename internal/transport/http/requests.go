package httptransport

import (
	"encoding/json"
	"fmt"
	"strings"

	"veil/internal/domain"
	"veil/internal/engine"
	"veil/internal/policy"
	"veil/internal/scoring"
)

// RequesterPayload identifies the caller in request bodies. Role validity is
// the engine's concern; transport only requires presence.
type RequesterPayload struct {
	ID           string   `json:"id"`
	Role         string   `json:"role"`
	Capabilities []string `json:"capabilities,omitempty"`
}

func (r RequesterPayload) toDomain() domain.Requester {
	caps := make([]domain.Capability, 0, len(r.Capabilities))
	for _, c := range r.Capabilities {
		caps = append(caps, domain.Capability(c))
	}
	return domain.Requester{ID: r.ID, Role: domain.Role(strings.ToLower(r.Role)), Capabilities: caps}
}

// ContextPayload states the declared access purpose.
type ContextPayload struct {
	Purpose       string `json:"purpose"`
	Justification string `json:"justification,omitempty"`
}

func (c ContextPayload) toDomain() domain.AccessContext {
	return domain.AccessContext{
		Purpose:       domain.Purpose(strings.ToLower(strings.TrimSpace(c.Purpose))),
		Justification: c.Justification,
	}
}

// DetectionPayload is one classifier detection: a field, its entity type and
// tier, and the raw value. JSON numbers become numeric attributes; anything
// else is textual.
type DetectionPayload struct {
	Field       string          `json:"field"`
	EntityType  string          `json:"entity_type"`
	Sensitivity string          `json:"sensitivity"`
	Value       json.RawMessage `json:"value"`
}

func (d DetectionPayload) toAttribute() (domain.Attribute, error) {
	tier, ok := domain.ParseSensitivityTier(d.Sensitivity)
	if !ok {
		return domain.Attribute{}, fmt.Errorf("unknown sensitivity tier %q", d.Sensitivity)
	}
	entity := domain.EntityType(strings.ToLower(strings.TrimSpace(d.EntityType)))

	var number float64
	if err := json.Unmarshal(d.Value, &number); err == nil {
		return domain.NumericAttribute(entity, tier, number), nil
	}
	var text string
	if err := json.Unmarshal(d.Value, &text); err != nil {
		return domain.Attribute{}, fmt.Errorf("field %q: value must be a number or string", d.Field)
	}
	return domain.TextAttribute(entity, tier, text), nil
}

// MaskRequest is the body of POST /v1/mask.
type MaskRequest struct {
	Requester  RequesterPayload   `json:"requester"`
	Context    ContextPayload     `json:"context"`
	Detections []DetectionPayload `json:"detections"`
}

func (r *MaskRequest) Validate() error {
	if r.Requester.ID == "" {
		return fmt.Errorf("requester.id is required")
	}
	if r.Requester.Role == "" {
		return fmt.Errorf("requester.role is required")
	}
	if len(r.Detections) == 0 {
		return fmt.Errorf("at least one detection is required")
	}
	for _, d := range r.Detections {
		if d.Field == "" {
			return fmt.Errorf("detection field is required")
		}
		if len(d.Value) == 0 {
			return fmt.Errorf("detection %q: value is required", d.Field)
		}
	}
	return nil
}

func (r *MaskRequest) toDetections() ([]engine.FieldDetection, error) {
	out := make([]engine.FieldDetection, 0, len(r.Detections))
	for _, d := range r.Detections {
		attr, err := d.toAttribute()
		if err != nil {
			return nil, err
		}
		out = append(out, engine.FieldDetection{Field: d.Field, Attribute: attr})
	}
	return out, nil
}

// ExplainRequest is the body of POST /v1/decide/explain. No value travels
// with it; explanation never touches data.
type ExplainRequest struct {
	Requester   RequesterPayload `json:"requester"`
	Context     ContextPayload   `json:"context"`
	EntityType  string           `json:"entity_type"`
	Sensitivity string           `json:"sensitivity"`
}

func (r *ExplainRequest) Validate() error {
	if r.Requester.ID == "" || r.Requester.Role == "" {
		return fmt.Errorf("requester.id and requester.role are required")
	}
	if _, ok := domain.ParseSensitivityTier(r.Sensitivity); !ok {
		return fmt.Errorf("unknown sensitivity tier %q", r.Sensitivity)
	}
	return nil
}

// DecryptRequest is the body of POST /v1/decrypt. Authorization comes from
// the capability token, not from this body.
type DecryptRequest struct {
	Ciphertext string `json:"ciphertext"`
	KeyID      string `json:"key_id"`
}

func (r *DecryptRequest) Validate() error {
	if r.Ciphertext == "" {
		return fmt.Errorf("ciphertext is required")
	}
	if r.KeyID == "" {
		return fmt.Errorf("key_id is required")
	}
	return nil
}

// WeightsPayload mirrors scoring.Weights for config reads and updates.
type WeightsPayload struct {
	Role        float64 `json:"role"`
	Purpose     float64 `json:"purpose"`
	Sensitivity float64 `json:"sensitivity"`
	Compliance  float64 `json:"compliance"`
	Frequency   float64 `json:"frequency"`
	Violation   float64 `json:"violation"`
	Bias        float64 `json:"bias"`
	Gain        float64 `json:"gain"`
}

func (w WeightsPayload) toDomain() scoring.Weights {
	return scoring.Weights{
		Role:        w.Role,
		Purpose:     w.Purpose,
		Sensitivity: w.Sensitivity,
		Compliance:  w.Compliance,
		Frequency:   w.Frequency,
		Violation:   w.Violation,
		Bias:        w.Bias,
		Gain:        w.Gain,
	}
}

func weightsPayload(w scoring.Weights) WeightsPayload {
	return WeightsPayload{
		Role:        w.Role,
		Purpose:     w.Purpose,
		Sensitivity: w.Sensitivity,
		Compliance:  w.Compliance,
		Frequency:   w.Frequency,
		Violation:   w.Violation,
		Bias:        w.Bias,
		Gain:        w.Gain,
	}
}

// ConfigUpdateRequest is the body of POST /v1/config.
type ConfigUpdateRequest struct {
	Actor   RequesterPayload `json:"actor"`
	Weights WeightsPayload   `json:"weights"`
}

func (r *ConfigUpdateRequest) Validate() error {
	if r.Actor.ID == "" {
		return fmt.Errorf("actor.id is required")
	}
	return nil
}

// OverrideRequest is the body of POST /v1/policies.
type OverrideRequest struct {
	Actor      RequesterPayload `json:"actor"`
	EntityType string           `json:"entity_type"`
	Role       string           `json:"role"`
	Level      int              `json:"level"`
}

func (r *OverrideRequest) Validate() error {
	if r.Actor.ID == "" {
		return fmt.Errorf("actor.id is required")
	}
	if r.EntityType == "" || r.Role == "" {
		return fmt.Errorf("entity_type and role are required")
	}
	if r.Level < int(domain.LevelReveal) || r.Level > int(domain.LevelSuppress) {
		return fmt.Errorf("level must be between 0 and 4")
	}
	// EntityType "*" is a valid wildcard; the role is always a concrete one.
	if _, err := domain.ParseRole(r.Role); err != nil {
		return err
	}
	return nil
}

func (r *OverrideRequest) toDomain() policy.Override {
	return policy.Override{
		EntityType: domain.EntityType(strings.ToLower(r.EntityType)),
		Role:       domain.Role(strings.ToLower(r.Role)),
		Level:      domain.MaskingLevel(r.Level),
	}
}
