package engine

import (
	"context"
	"fmt"
	"time"

	"veil/internal/audit"
	"veil/internal/domain"
)

// ErrDecryptNotAuthorized is returned when the requester lacks the decrypt
// capability or presents a ciphertext from a different key.
var ErrDecryptNotAuthorized = fmt.Errorf("decrypt not authorized")

// Decrypt recovers a Level-1 encoded value. It is gated twice: the transport
// layer demands a capability token distinct from the masking credential, and
// this method re-checks the requester's capability set. Every attempt,
// allowed or refused, is audited before any value leaves.
func (s *Service) Decrypt(ctx context.Context, requester domain.Requester, cipherHex, keyID string) (float64, error) {
	if s.decrypter == nil {
		s.metrics.IncrementDecrypt("unavailable")
		return 0, fmt.Errorf("no decryption key configured")
	}

	event := audit.Event{
		Timestamp:   time.Now(),
		Action:      audit.ActionDecrypt,
		RequesterID: requester.ID,
		Role:        requester.Role,
		Status:      domain.StatusCompleted,
	}

	if !requester.HasCapability(domain.CapabilityDecrypt) || keyID != s.decrypter.KeyID() {
		event.Violation = true
		event.Reason = "decrypt refused"
		if err := s.publisher.Emit(context.WithoutCancel(ctx), event); err != nil {
			return 0, err
		}
		s.metrics.IncrementDecrypt("refused")
		return 0, ErrDecryptNotAuthorized
	}

	value, err := s.decrypter.Decrypt(cipherHex)
	if err != nil {
		event.Reason = "malformed ciphertext"
		if auditErr := s.publisher.Emit(context.WithoutCancel(ctx), event); auditErr != nil {
			return 0, auditErr
		}
		s.metrics.IncrementDecrypt("failed")
		return 0, err
	}

	// Audit before release: an unrecorded decrypt must never return a value.
	if err := s.publisher.Emit(context.WithoutCancel(ctx), event); err != nil {
		s.metrics.IncrementDecrypt("audit_failed")
		return 0, err
	}
	s.metrics.IncrementDecrypt("ok")
	return value, nil
}
