package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"veil/internal/domain"
)

// PostgresStore is a durable, append-only Sink. It doubles as the queryable
// trail behind the operator listing endpoint.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit table and index if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS audit_events (
		    id           UUID PRIMARY KEY,
		    ts           TIMESTAMPTZ NOT NULL,
		    action       TEXT NOT NULL,
		    requester_id TEXT NOT NULL,
		    role         TEXT NOT NULL DEFAULT '',
		    entity_type  TEXT NOT NULL DEFAULT '',
		    sensitivity  TEXT NOT NULL DEFAULT '',
		    purpose      TEXT NOT NULL DEFAULT '',
		    level        INT NOT NULL DEFAULT 0,
		    strategy     TEXT NOT NULL DEFAULT '',
		    score        DOUBLE PRECISION NOT NULL DEFAULT 0,
		    status       TEXT NOT NULL DEFAULT '',
		    violation    BOOLEAN NOT NULL DEFAULT FALSE,
		    reason       TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS audit_events_requester_idx
		    ON audit_events (requester_id, ts);
	`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_events (
			id, ts, action, requester_id, role, entity_type, sensitivity,
			purpose, level, strategy, score, status, violation, reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Timestamp,
		string(event.Action),
		event.RequesterID,
		string(event.Role),
		string(event.EntityType),
		string(event.Sensitivity),
		string(event.Purpose),
		int(event.Level),
		event.Strategy,
		event.Score,
		string(event.Status),
		event.Violation,
		event.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListRecent returns up to limit of the newest events, oldest first.
func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	query := `
		SELECT id, ts, action, requester_id, role, entity_type, sensitivity,
		       purpose, level, strategy, score, status, violation, reason
		FROM (
			SELECT * FROM audit_events ORDER BY ts DESC LIMIT $1
		) newest
		ORDER BY ts
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByRequester returns all events for one requester, oldest first.
func (s *PostgresStore) ListByRequester(ctx context.Context, requesterID string) ([]Event, error) {
	query := `
		SELECT id, ts, action, requester_id, role, entity_type, sensitivity,
		       purpose, level, strategy, score, status, violation, reason
		FROM audit_events
		WHERE requester_id = $1
		ORDER BY ts
	`
	rows, err := s.db.QueryContext(ctx, query, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var e Event
		var action, role, entityType, sensitivity, purpose, status string
		var level int
		var ts time.Time
		if err := rows.Scan(&e.ID, &ts, &action, &e.RequesterID, &role, &entityType,
			&sensitivity, &purpose, &level, &e.Strategy, &e.Score, &status,
			&e.Violation, &e.Reason); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Timestamp = ts
		e.Action = Action(action)
		e.Role = domain.Role(role)
		e.EntityType = domain.EntityType(entityType)
		e.Sensitivity = domain.SensitivityTier(sensitivity)
		e.Purpose = domain.Purpose(purpose)
		e.Level = domain.MaskingLevel(level)
		e.Status = domain.DecisionStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
