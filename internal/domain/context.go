package domain

import "strings"

// Purpose enumerates the closed set of legitimate access purposes. A purpose
// outside this set is a lower-trust signal, not an instant rejection; the
// scoring model downgrades the purpose factor instead.
type Purpose string

const (
	PurposeInternalResearch Purpose = "internal_research"
	PurposeCompliance       Purpose = "compliance"
	PurposeResearch         Purpose = "research"
	PurposeGeneral          Purpose = "general"
	PurposeMarketing        Purpose = "marketing"
	PurposeThirdParty       Purpose = "third_party"
)

// ParsePurpose validates a purpose string against the closed set.
func ParsePurpose(s string) (Purpose, error) {
	purpose := Purpose(strings.ToLower(strings.TrimSpace(s)))
	switch purpose {
	case PurposeInternalResearch, PurposeCompliance, PurposeResearch,
		PurposeGeneral, PurposeMarketing, PurposeThirdParty:
		return purpose, nil
	}
	return "", &UnknownPurposeError{Purpose: s}
}

// AccessContext states why access is requested. Transient: constructed per
// request and persisted only inside the resulting history record.
type AccessContext struct {
	Purpose Purpose
	// Justification is an optional free-text declaration carried into the
	// audit trail verbatim. It never influences the score.
	Justification string
}
