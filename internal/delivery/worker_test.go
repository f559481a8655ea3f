package delivery

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweepStore struct {
	mu        sync.Mutex
	due       []ScheduledMessage
	claimed   map[uuid.UUID]ScheduledMessage
	claimedAt map[uuid.UUID]time.Time
	sent      []uuid.UUID
	failed    map[uuid.UUID]string
	claims    int
}

func newFakeSweepStore(due ...ScheduledMessage) *fakeSweepStore {
	return &fakeSweepStore{
		due:       due,
		claimed:   make(map[uuid.UUID]ScheduledMessage),
		claimedAt: make(map[uuid.UUID]time.Time),
		failed:    make(map[uuid.UUID]string),
	}
}

func (f *fakeSweepStore) ClaimDue(_ context.Context, asOf time.Time, limit int) ([]ScheduledMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims++
	var claimed, rest []ScheduledMessage
	for _, m := range f.due {
		if m.Status == StatusPending && !m.FireAt.After(asOf) && len(claimed) < limit {
			m.Status = StatusSending
			f.claimed[m.ID] = m
			f.claimedAt[m.ID] = asOf
			claimed = append(claimed, m)
			continue
		}
		rest = append(rest, m)
	}
	f.due = rest
	sort.Slice(claimed, func(i, j int) bool { return claimed[i].FireAt.Before(claimed[j].FireAt) })
	return claimed, nil
}

func (f *fakeSweepStore) MarkSent(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claimed, id)
	delete(f.claimedAt, id)
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeSweepStore) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claimed, id)
	delete(f.claimedAt, id)
	f.failed[id] = reason
	return nil
}

func (f *fakeSweepStore) Release(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.claimed[id]
	if !ok {
		return errors.New("no claimed message")
	}
	delete(f.claimed, id)
	delete(f.claimedAt, id)
	m.Status = StatusPending
	f.due = append(f.due, m)
	return nil
}

func (f *fakeSweepStore) RecoverStale(_ context.Context, olderThan time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var recovered int64
	for id, at := range f.claimedAt {
		if at.Before(olderThan) {
			m := f.claimed[id]
			delete(f.claimed, id)
			delete(f.claimedAt, id)
			m.Status = StatusPending
			f.due = append(f.due, m)
			recovered++
		}
	}
	return recovered, nil
}

func (f *fakeSweepStore) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.due {
		if m.Status == StatusPending {
			n++
		}
	}
	return n
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]error
}

func (f *fakeSender) Send(_ context.Context, phone, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[phone]; err != nil {
		return err
	}
	f.sent = append(f.sent, phone+": "+text)
	return nil
}

func dueMessage(phone string, fireAt time.Time) ScheduledMessage {
	return ScheduledMessage{
		ID:         uuid.New(),
		BusinessID: "salon-1",
		Phone:      phone,
		Content:    "Lembrete do seu horário",
		FireAt:     fireAt,
		Status:     StatusPending,
	}
}

func TestProcessDueSendsAndMarksSent(t *testing.T) {
	now := time.Now().UTC()
	msg := dueMessage("5511999990001", now.Add(-time.Minute))
	store := newFakeSweepStore(msg)
	sender := &fakeSender{}

	w := NewWorker(store, sender, nil).WithInterSendDelay(0)
	processed, err := w.ProcessDue(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []uuid.UUID{msg.ID}, store.sent)
	assert.Empty(t, store.failed)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "5511999990001")
}

func TestProcessDueMarksFailedOnSendError(t *testing.T) {
	now := time.Now().UTC()
	msg := dueMessage("5511999990002", now.Add(-time.Minute))
	store := newFakeSweepStore(msg)
	sender := &fakeSender{failFor: map[string]error{"5511999990002": errors.New("provider down")}}

	w := NewWorker(store, sender, nil).WithInterSendDelay(0)
	processed, err := w.ProcessDue(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Empty(t, store.sent)
	assert.Equal(t, "provider down", store.failed[msg.ID])
}

func TestProcessDueNeverRevisitsTerminalMessages(t *testing.T) {
	now := time.Now().UTC()
	ok := dueMessage("5511999990003", now.Add(-2*time.Minute))
	bad := dueMessage("5511999990004", now.Add(-time.Minute))
	store := newFakeSweepStore(ok, bad)
	sender := &fakeSender{failFor: map[string]error{"5511999990004": errors.New("timeout")}}

	w := NewWorker(store, sender, nil).WithInterSendDelay(0)
	processed, err := w.ProcessDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	// Second sweep finds nothing: sent and failed are terminal.
	processed, err = w.ProcessDue(context.Background(), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	assert.Equal(t, []uuid.UUID{ok.ID}, store.sent)
	assert.Len(t, store.failed, 1)
}

func TestProcessDueSkipsFutureMessages(t *testing.T) {
	now := time.Now().UTC()
	future := dueMessage("5511999990005", now.Add(time.Hour))
	store := newFakeSweepStore(future)

	w := NewWorker(store, &fakeSender{}, nil).WithInterSendDelay(0)
	processed, err := w.ProcessDue(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestProcessDueOldestFirst(t *testing.T) {
	now := time.Now().UTC()
	newer := dueMessage("phone-b", now.Add(-time.Minute))
	older := dueMessage("phone-a", now.Add(-time.Hour))
	store := newFakeSweepStore(newer, older)
	sender := &fakeSender{}

	w := NewWorker(store, sender, nil).WithInterSendDelay(0)
	_, err := w.ProcessDue(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{older.ID, newer.ID}, store.sent)
}

func TestProcessDueInterruptedReleasesRemainder(t *testing.T) {
	now := time.Now().UTC()
	first := dueMessage("5511999990006", now.Add(-2*time.Minute))
	second := dueMessage("5511999990007", now.Add(-time.Minute))
	store := newFakeSweepStore(first, second)

	ctx, cancel := context.WithCancel(context.Background())
	cancelling := &cancellingSender{inner: &fakeSender{}, cancel: cancel}

	w := NewWorker(store, cancelling, nil).WithInterSendDelay(0)
	processed, err := w.ProcessDue(ctx, now)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []uuid.UUID{first.ID}, store.sent)
	assert.Empty(t, store.failed)
	assert.Equal(t, 1, store.pendingCount())

	// The released message goes out on the next sweep.
	sender := &fakeSender{}
	w = NewWorker(store, sender, nil).WithInterSendDelay(0)
	processed, err = w.ProcessDue(context.Background(), now.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, store.sent)
}

func TestSweepRequeuesStaleClaims(t *testing.T) {
	now := time.Now().UTC()
	msg := dueMessage("5511999990008", now.Add(-time.Hour))
	store := newFakeSweepStore(msg)

	// A previous worker claimed the message and died before marking it.
	_, err := store.ClaimDue(context.Background(), now.Add(-30*time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, store.pendingCount())

	sender := &fakeSender{}
	w := NewWorker(store, sender, nil).WithInterSendDelay(0).WithStaleClaimAge(15 * time.Minute)
	w.sweep(context.Background())

	assert.Equal(t, []uuid.UUID{msg.ID}, store.sent)
	assert.Empty(t, store.failed)
}

func TestSweepLeavesFreshClaimsAlone(t *testing.T) {
	now := time.Now().UTC()
	msg := dueMessage("5511999990009", now.Add(-time.Hour))
	store := newFakeSweepStore(msg)

	// Claimed moments ago, presumably by a concurrent worker mid-send.
	_, err := store.ClaimDue(context.Background(), now, 10)
	require.NoError(t, err)

	sender := &fakeSender{}
	w := NewWorker(store, sender, nil).WithInterSendDelay(0).WithStaleClaimAge(15 * time.Minute)
	w.sweep(context.Background())

	assert.Empty(t, store.sent)
	assert.Empty(t, store.failed)
}

// cancellingSender cancels the sweep context after the first successful send.
type cancellingSender struct {
	inner  *fakeSender
	cancel context.CancelFunc
	calls  int
}

func (c *cancellingSender) Send(ctx context.Context, phone, text string) error {
	c.calls++
	err := c.inner.Send(ctx, phone, text)
	if c.calls == 1 {
		c.cancel()
	}
	return err
}
