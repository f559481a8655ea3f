package contexts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrNotFound indicates no context exists for the key.
var ErrNotFound = errors.New("contexts: context not found")

const contextColumns = `business_id, phone, client_name, state, flow_state, last_intent, last_sentiment, memory, last_interaction, created_at, updated_at`

// Store persists conversation contexts in PostgreSQL, one row per
// (business_id, phone).
type Store struct {
	db DB
}

// NewStore creates a context store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// GetOrCreate returns the context for the key, creating a fresh one on first
// contact. A fresh context has message count 0, state active, intent greeting
// and sentiment neutral. Creation is atomic under concurrent webhooks.
func (s *Store) GetOrCreate(ctx context.Context, businessID, phone string) (*Context, error) {
	now := time.Now().UTC()
	fresh := Memory{FirstSeen: now}
	memJSON, err := json.Marshal(fresh)
	if err != nil {
		return nil, fmt.Errorf("contexts: marshal memory: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO conversation_contexts (`+contextColumns+`)
		VALUES ($1, $2, '', 'active', 'idle', 'greeting', 'neutral', $3, $4, $4, $4)
		ON CONFLICT (business_id, phone) DO NOTHING`,
		businessID, phone, memJSON, now)
	if err != nil {
		return nil, fmt.Errorf("contexts: create: %w", err)
	}

	return s.get(ctx, businessID, phone)
}

func (s *Store) get(ctx context.Context, businessID, phone string) (*Context, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+contextColumns+`
		FROM conversation_contexts
		WHERE business_id = $1 AND phone = $2`, businessID, phone)
	if err != nil {
		return nil, fmt.Errorf("contexts: get: %w", err)
	}
	defer rows.Close()

	list, err := scanContexts(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

// Update loads the stored context, merges the patch and writes it back.
// Callers are expected to serialize turns per (business, phone); the
// orchestrator's keyed dispatch provides that guarantee.
func (s *Store) Update(ctx context.Context, businessID, phone string, patch Patch) (*Context, error) {
	current, err := s.get(ctx, businessID, phone)
	if err != nil {
		return nil, err
	}

	patch.apply(current, time.Now().UTC())

	memJSON, err := json.Marshal(current.Memory)
	if err != nil {
		return nil, fmt.Errorf("contexts: marshal memory: %w", err)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE conversation_contexts SET
			client_name = $1, state = $2, flow_state = $3, last_intent = $4,
			last_sentiment = $5, memory = $6, last_interaction = $7, updated_at = $7
		WHERE business_id = $8 AND phone = $9`,
		current.ClientName, string(current.State), string(current.FlowState),
		current.LastIntent, current.LastSentiment, memJSON, current.UpdatedAt,
		businessID, phone)
	if err != nil {
		return nil, fmt.Errorf("contexts: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return current, nil
}

// ListActive returns active contexts, most recently interacted first.
func (s *Store) ListActive(ctx context.Context, businessID string, limit int) ([]Context, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+contextColumns+`
		FROM conversation_contexts
		WHERE business_id = $1 AND state = 'active'
		ORDER BY last_interaction DESC
		LIMIT $2`, businessID, limit)
	if err != nil {
		return nil, fmt.Errorf("contexts: list active: %w", err)
	}
	defer rows.Close()
	return scanContexts(rows)
}

// CloseInactive bulk-transitions active contexts idle for longer than
// idleHours to closed and returns how many were closed.
func (s *Store) CloseInactive(ctx context.Context, businessID string, idleHours int) (int64, error) {
	if idleHours <= 0 {
		idleHours = 24
	}
	cutoff := time.Now().UTC().Add(-time.Duration(idleHours) * time.Hour)
	tag, err := s.db.Exec(ctx, `
		UPDATE conversation_contexts SET state = 'closed', updated_at = $1
		WHERE business_id = $2 AND state = 'active' AND last_interaction < $3`,
		time.Now().UTC(), businessID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("contexts: close inactive: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CloseAllInactive is CloseInactive across every business, used by the
// periodic idle sweep.
func (s *Store) CloseAllInactive(ctx context.Context, idleHours int) (int64, error) {
	if idleHours <= 0 {
		idleHours = 24
	}
	cutoff := time.Now().UTC().Add(-time.Duration(idleHours) * time.Hour)
	tag, err := s.db.Exec(ctx, `
		UPDATE conversation_contexts SET state = 'closed', updated_at = $1
		WHERE state = 'active' AND last_interaction < $2`,
		time.Now().UTC(), cutoff)
	if err != nil {
		return 0, fmt.Errorf("contexts: close all inactive: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanContexts(rows pgx.Rows) ([]Context, error) {
	var result []Context
	for rows.Next() {
		var c Context
		var state, flowState string
		var memJSON []byte
		err := rows.Scan(
			&c.BusinessID, &c.Phone, &c.ClientName, &state, &flowState,
			&c.LastIntent, &c.LastSentiment, &memJSON,
			&c.LastInteraction, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("contexts: scan: %w", err)
		}
		c.State = State(state)
		c.FlowState = FlowState(flowState)
		if len(memJSON) > 0 {
			if err := json.Unmarshal(memJSON, &c.Memory); err != nil {
				return nil, fmt.Errorf("contexts: decode memory: %w", err)
			}
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
