package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"veil/internal/domain"
)

// PostgresStore persists history records in an append-only table. There is no
// UPDATE or DELETE path; non-repudiation depends on it. See EnsureSchema for
// the table definition.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the history table and index if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS masking_history (
		    id           UUID PRIMARY KEY,
		    requester_id TEXT NOT NULL,
		    entity_type  TEXT NOT NULL,
		    level        INT NOT NULL,
		    strategy     TEXT NOT NULL,
		    score        DOUBLE PRECISION NOT NULL,
		    status       TEXT NOT NULL,
		    violation    BOOLEAN NOT NULL DEFAULT FALSE,
		    created_at   TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS masking_history_key_idx
		    ON masking_history (requester_id, entity_type, created_at);
	`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure history schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	query := `
		INSERT INTO masking_history (
			id, requester_id, entity_type, level, strategy,
			score, status, violation, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.RequesterID,
		string(record.EntityType),
		int(record.Level),
		record.Strategy,
		record.Score,
		string(record.Status),
		record.Violation,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

func (s *PostgresStore) QueryWindow(ctx context.Context, requesterID string, entityType domain.EntityType, window time.Duration) (Stats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE created_at >= $3),
			COUNT(*) FILTER (WHERE created_at >= $3 AND violation),
			COUNT(*),
			COUNT(*) FILTER (WHERE violation)
		FROM masking_history
		WHERE requester_id = $1 AND entity_type = $2
	`
	cutoff := time.Now().Add(-window)

	var stats Stats
	err := s.db.QueryRowContext(ctx, query, requesterID, string(entityType), cutoff).Scan(
		&stats.WindowCount,
		&stats.WindowViolations,
		&stats.TotalCount,
		&stats.TotalViolations,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("query history window: %w", err)
	}
	return stats, nil
}

// ListByRequester returns the requester's full trail, oldest first.
func (s *PostgresStore) ListByRequester(ctx context.Context, requesterID string) ([]Record, error) {
	query := `
		SELECT id, requester_id, entity_type, level, strategy,
		       score, status, violation, created_at
		FROM masking_history
		WHERE requester_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list history records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var entityType, status string
		var level int
		if err := rows.Scan(&r.ID, &r.RequesterID, &entityType, &level, &r.Strategy,
			&r.Score, &status, &r.Violation, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		r.EntityType = domain.EntityType(entityType)
		r.Level = domain.MaskingLevel(level)
		r.Status = domain.DecisionStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
