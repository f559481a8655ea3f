package delivery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const messageColumns = `id, business_id, phone, content, fire_at, status, appointment_id, sent_at, failed_at, error_reason, created_at`

// Store provides persistence for scheduled messages.
type Store struct {
	db DB
}

// NewStore creates a delivery store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Create inserts a pending scheduled message.
func (s *Store) Create(ctx context.Context, m *ScheduledMessage) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now().UTC()
	if m.Status == "" {
		m.Status = StatusPending
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO scheduled_messages (id, business_id, phone, content, fire_at, status, appointment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.BusinessID, m.Phone, m.Content, m.FireAt, string(m.Status), m.AppointmentID, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("delivery: create scheduled message: %w", err)
	}
	return nil
}

// ClaimDue atomically claims pending rows due at asOf, oldest fire_at first.
// Claimed rows move to 'sending' so a concurrent sweep tick cannot pick them
// up again.
func (s *Store) ClaimDue(ctx context.Context, asOf time.Time, limit int) ([]ScheduledMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		UPDATE scheduled_messages SET status = 'sending', claimed_at = $1
		WHERE id IN (
			SELECT id FROM scheduled_messages
			WHERE status = 'pending' AND fire_at <= $1
			ORDER BY fire_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+messageColumns, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("delivery: claim due: %w", err)
	}
	defer rows.Close()
	claimed, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// RETURNING does not preserve the subquery order.
	sort.Slice(claimed, func(i, j int) bool { return claimed[i].FireAt.Before(claimed[j].FireAt) })
	return claimed, nil
}

// MarkSent transitions a claimed row to sent.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE scheduled_messages SET status = 'sent', sent_at = $1
		WHERE id = $2 AND status = 'sending'`, now, id)
	if err != nil {
		return fmt.Errorf("delivery: mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delivery: mark sent: no claimed message with id %s", id)
	}
	return nil
}

// Release returns a claimed row to pending without an attempt, so the next
// sweep picks it up again. Used when a sweep is interrupted before sending.
func (s *Store) Release(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE scheduled_messages SET status = 'pending', claimed_at = NULL
		WHERE id = $1 AND status = 'sending'`, id)
	if err != nil {
		return fmt.Errorf("delivery: release claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delivery: release claim: no claimed message with id %s", id)
	}
	return nil
}

// RecoverStale requeues rows stuck in 'sending' whose claim predates
// olderThan. A worker that crashed between claim and mark leaves such rows
// behind; requeuing them keeps delivery at-least-once.
func (s *Store) RecoverStale(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE scheduled_messages SET status = 'pending', claimed_at = NULL
		WHERE status = 'sending' AND claimed_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("delivery: recover stale claims: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkFailed transitions a claimed row to failed. Failed is terminal; retry
// requires scheduling a new message.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE scheduled_messages SET status = 'failed', failed_at = $1, error_reason = $2
		WHERE id = $3 AND status = 'sending'`, now, reason, id)
	if err != nil {
		return fmt.Errorf("delivery: mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delivery: mark failed: no claimed message with id %s", id)
	}
	return nil
}

// ListByStatus returns messages for a business filtered by status, newest
// fire_at first.
func (s *Store) ListByStatus(ctx context.Context, businessID string, status Status, limit int) ([]ScheduledMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM scheduled_messages
		WHERE business_id = $1 AND status = $2
		ORDER BY fire_at DESC
		LIMIT $3`, businessID, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("delivery: list by status: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]ScheduledMessage, error) {
	var result []ScheduledMessage
	for rows.Next() {
		var m ScheduledMessage
		var status string
		err := rows.Scan(
			&m.ID, &m.BusinessID, &m.Phone, &m.Content, &m.FireAt, &status,
			&m.AppointmentID, &m.SentAt, &m.FailedAt, &m.ErrorReason, &m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("delivery: scan scheduled message: %w", err)
		}
		m.Status = Status(status)
		result = append(result, m)
	}
	return result, rows.Err()
}
