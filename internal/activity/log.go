// Package activity persists the incident activity timeline. Every externally
// visible step the booking agent takes is appended here so case managers can
// reconstruct what happened on a call.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scratchieapp/booking-agent/internal/booking"
)

const (
	defaultActionType = "voice_agent"
	defaultActorName  = "AI Booking Agent"
)

type pgxExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Log is the pgx-backed activity logger.
type Log struct {
	pool pgxExecer
}

// NewLog creates an activity log backed by a pgx pool.
func NewLog(pool *pgxpool.Pool) *Log {
	if pool == nil {
		panic("activity: pgx pool required")
	}
	return &Log{pool: pool}
}

func newLogWithExecer(q pgxExecer) *Log {
	if q == nil {
		panic("activity: execer required")
	}
	return &Log{pool: q}
}

// Append inserts one immutable timeline entry. Empty actor and action fields
// take the voice-agent defaults.
func (l *Log) Append(ctx context.Context, entry booking.ActivityEntry) error {
	if entry.IncidentID == "" {
		return fmt.Errorf("activity: incident_id required")
	}
	if entry.ActionType == "" {
		entry.ActionType = defaultActionType
	}
	if entry.ActorName == "" {
		entry.ActorName = defaultActorName
	}

	var metadata []byte
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("activity: encode metadata: %w", err)
		}
		metadata = data
	}

	query := `
		INSERT INTO activity_logs (
			id, incident_id, action_type, summary, details,
			actor_name, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := l.pool.Exec(ctx, query,
		uuid.NewString(),
		entry.IncidentID,
		entry.ActionType,
		entry.Summary,
		nullable(entry.Details),
		entry.ActorName,
		metadata,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("activity: append entry: %w", err)
	}
	return nil
}

// Entry is one stored timeline record as read back for operators.
type Entry struct {
	ID         string          `json:"id"`
	IncidentID string          `json:"incident_id"`
	ActionType string          `json:"action_type"`
	Summary    string          `json:"summary"`
	Details    string          `json:"details,omitempty"`
	ActorName  string          `json:"actor_name"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ListByIncident returns the incident's timeline, newest first.
func (l *Log) ListByIncident(ctx context.Context, incidentID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, incident_id, action_type, summary,
		       COALESCE(details, ''), actor_name, metadata, created_at
		FROM activity_logs
		WHERE incident_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := l.pool.Query(ctx, query, incidentID, limit)
	if err != nil {
		return nil, fmt.Errorf("activity: list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.IncidentID, &e.ActionType, &e.Summary,
			&e.Details, &e.ActorName, &e.Metadata, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("activity: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activity: iterate entries: %w", err)
	}
	return entries, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
