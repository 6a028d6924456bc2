package domain

import "strings"

// Role enumerates the fixed set of requester roles. Each role carries a base
// trust weight supplied by configuration, not by this package.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSteward   Role = "steward"
	RoleAnalyst   Role = "analyst"
	RoleAnnotator Role = "annotator"
	RoleLabeler   Role = "labeler"
	RoleExternal  Role = "external"
)

// KnownRoles lists every role this engine accepts, in descending trust order.
var KnownRoles = []Role{RoleAdmin, RoleSteward, RoleAnalyst, RoleAnnotator, RoleLabeler, RoleExternal}

// ParseRole validates a role string against the known enumeration. The
// identity service owns role issuance; this engine only recognizes or rejects.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range KnownRoles {
		if role == known {
			return role, nil
		}
	}
	return "", &UnknownRoleError{Role: s}
}

// Capability names a discrete permission held by a requester.
type Capability string

const (
	// CapabilityDecrypt authorizes recovery of Level-1 encoded values. It is
	// checked on the decrypt path only, never during masking decisions.
	CapabilityDecrypt Capability = "decrypt"
)

// Requester identifies the party asking for a sensitive value. It is owned by
// the caller and never mutated by the engine.
type Requester struct {
	ID           string
	Role         Role
	Capabilities []Capability
}

// HasCapability reports whether the requester holds the named capability.
func (r Requester) HasCapability(c Capability) bool {
	for _, held := range r.Capabilities {
		if held == c {
			return true
		}
	}
	return false
}
