// Package history provides the append-only log of prior masking decisions.
// Records are never mutated or deleted after write; the scoring model reads
// them back as rolling frequency and violation statistics.
package history

import (
	"context"
	"time"

	"veil/internal/domain"
)

// Record is the persisted tuple for one terminal masking outcome.
type Record struct {
	ID          string
	RequesterID string
	EntityType  domain.EntityType
	Level       domain.MaskingLevel
	Strategy    string
	Score       float64
	Status      domain.DecisionStatus
	Violation   bool
	CreatedAt   time.Time
}

// Stats summarizes a requester's activity for one entity type. Window counts
// cover the trailing window passed to QueryWindow; totals cover all history.
type Stats struct {
	WindowCount      int
	WindowViolations int
	TotalCount       int
	TotalViolations  int
}

// Store is the append-only persistence boundary. Implementations must
// serialize appends per (requester, entity type) key so that a QueryWindow
// racing an append observes the latest fully-committed state, never a torn
// write.
type Store interface {
	Append(ctx context.Context, record Record) error
	QueryWindow(ctx context.Context, requesterID string, entityType domain.EntityType, window time.Duration) (Stats, error)
}
