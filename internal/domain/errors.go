package domain

import (
	"errors"
	"fmt"
)

// Masking-path errors all fail closed: callers never receive more than
// Level-4 protection when any of these fire. Each carries enough context for
// the audit trail without echoing the sensitive value itself.

// UnknownRoleError signals a role outside the known enumeration. Fatal: the
// identity service is the source of truth for roles, so an unrecognized one
// means a contract breach upstream.
type UnknownRoleError struct {
	Role string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown role %q", e.Role)
}

// UnknownPurposeError signals a purpose outside the closed set. Non-fatal:
// the scoring model downgrades the purpose factor instead of rejecting.
type UnknownPurposeError struct {
	Purpose string
}

func (e *UnknownPurposeError) Error() string {
	return fmt.Sprintf("unknown purpose %q", e.Purpose)
}

// TypeMismatchError signals a strategy applied to an attribute kind it does
// not support. Fatal: no masking is performed and the request fails closed;
// fallback to a weaker level is the orchestrator's call, never the strategy's.
type TypeMismatchError struct {
	Strategy   string
	EntityType EntityType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("strategy %s does not support attribute type %s", e.Strategy, e.EntityType)
}

// ErrHistoryUnavailable is returned when the history store cannot be read or
// written. The orchestrator responds with Level-4 suppression rather than
// guessing a score: under-protecting is worse than over-protecting.
var ErrHistoryUnavailable = errors.New("history store unavailable")

// ScoreOutOfRangeError signals a score outside [0,1]. This is a configuration
// bug, never a data condition; the selector refuses to clamp it silently.
type ScoreOutOfRangeError struct {
	Score float64
}

func (e *ScoreOutOfRangeError) Error() string {
	return fmt.Sprintf("score %v outside [0,1]", e.Score)
}
