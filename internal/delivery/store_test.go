package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageRows(msgs ...ScheduledMessage) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "business_id", "phone", "content", "fire_at", "status",
		"appointment_id", "sent_at", "failed_at", "error_reason", "created_at",
	})
	for _, m := range msgs {
		rows.AddRow(m.ID, m.BusinessID, m.Phone, m.Content, m.FireAt, string(m.Status),
			m.AppointmentID, m.SentAt, m.FailedAt, m.ErrorReason, m.CreatedAt)
	}
	return rows
}

func TestStoreCreateDefaults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO scheduled_messages").
		WithArgs(pgxmock.AnyArg(), "salon-1", "5511999990001", "Olá!", pgxmock.AnyArg(),
			"pending", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewStore(mock)
	msg := &ScheduledMessage{
		BusinessID: "salon-1",
		Phone:      "5511999990001",
		Content:    "Olá!",
		FireAt:     time.Now().Add(time.Hour).UTC(),
	}
	require.NoError(t, store.Create(context.Background(), msg))

	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.Equal(t, StatusPending, msg.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreClaimDueOrdersByFireAt(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	older := ScheduledMessage{ID: uuid.New(), BusinessID: "salon-1", Phone: "a",
		Content: "x", FireAt: now.Add(-2 * time.Hour), Status: StatusSending, CreatedAt: now}
	newer := ScheduledMessage{ID: uuid.New(), BusinessID: "salon-1", Phone: "b",
		Content: "y", FireAt: now.Add(-time.Hour), Status: StatusSending, CreatedAt: now}

	// RETURNING may come back in any order; the store re-sorts.
	mock.ExpectQuery("UPDATE scheduled_messages SET status = 'sending'").
		WithArgs(now, 10).
		WillReturnRows(messageRows(newer, older))

	store := NewStore(mock)
	claimed, err := store.ClaimDue(context.Background(), now, 10)
	require.NoError(t, err)

	require.Len(t, claimed, 2)
	assert.Equal(t, older.ID, claimed[0].ID)
	assert.Equal(t, newer.ID, claimed[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreMarkSentRequiresClaim(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE scheduled_messages SET status = 'sent'").
		WithArgs(pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewStore(mock)
	err = store.MarkSent(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no claimed message")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreReleaseRequeuesClaim(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE scheduled_messages SET status = 'pending'").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := NewStore(mock)
	require.NoError(t, store.Release(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreReleaseRequiresClaim(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE scheduled_messages SET status = 'pending'").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewStore(mock)
	err = store.Release(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no claimed message")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRecoverStaleCountsRequeued(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cutoff := time.Now().UTC().Add(-15 * time.Minute)
	mock.ExpectExec("UPDATE scheduled_messages SET status = 'pending'").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	store := NewStore(mock)
	recovered, err := store.RecoverStale(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), recovered)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreMarkFailedRecordsReason(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE scheduled_messages SET status = 'failed'").
		WithArgs(pgxmock.AnyArg(), "provider down", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := NewStore(mock)
	require.NoError(t, store.MarkFailed(context.Background(), id, "provider down"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	sentAt := now.Add(-time.Minute)
	msg := ScheduledMessage{ID: uuid.New(), BusinessID: "salon-1", Phone: "5511999990001",
		Content: "ok", FireAt: now.Add(-time.Hour), Status: StatusSent, SentAt: &sentAt, CreatedAt: now}

	mock.ExpectQuery("SELECT (.+) FROM scheduled_messages").
		WithArgs("salon-1", "sent", 20).
		WillReturnRows(messageRows(msg))

	store := NewStore(mock)
	got, err := store.ListByStatus(context.Background(), "salon-1", StatusSent, 20)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, StatusSent, got[0].Status)
	require.NotNil(t, got[0].SentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
