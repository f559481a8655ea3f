package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brisalabs/salon-ai-platform/internal/messaging"
)

type recordingRunner struct {
	mu    sync.Mutex
	seen  map[string][]string
	delay time.Duration
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{seen: make(map[string][]string)}
}

func (r *recordingRunner) ProcessTurn(_ context.Context, msg messaging.InboundMessage) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := msg.BusinessID + "|" + msg.Phone
	r.seen[key] = append(r.seen[key], msg.Text)
	return nil
}

func TestDispatcherPreservesPerClientOrder(t *testing.T) {
	runner := newRecordingRunner()
	runner.delay = time.Millisecond
	d := NewDispatcher(runner, nil, 4, 16, nil)
	ctx := context.Background()
	d.Start(ctx)

	for i := 0; i < 20; i++ {
		msg := messaging.InboundMessage{
			BusinessID: "salon-1",
			Phone:      "5511999990001",
			Text:       string(rune('a' + i)),
		}
		require.NoError(t, d.HandleInbound(ctx, msg))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(shutdownCtx))

	got := runner.seen["salon-1|5511999990001"]
	require.Len(t, got, 20)
	for i, text := range got {
		assert.Equal(t, string(rune('a'+i)), text)
	}
}

func TestDispatcherRejectsAfterShutdown(t *testing.T) {
	d := NewDispatcher(newRecordingRunner(), nil, 2, 4, nil)
	ctx := context.Background()
	d.Start(ctx)
	require.NoError(t, d.Shutdown(ctx))

	err := d.HandleInbound(ctx, messaging.InboundMessage{BusinessID: "b", Phone: "p", Text: "x"})
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestDispatcherSkipsDuplicateDeliveries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	dedup := NewRedisDeduper(client, time.Hour)

	runner := newRecordingRunner()
	d := NewDispatcher(runner, dedup, 2, 4, nil)
	ctx := context.Background()
	d.Start(ctx)

	msg := messaging.InboundMessage{
		BusinessID: "salon-1",
		Phone:      "5511999990001",
		Text:       "oi",
		ProviderID: "3EB0A915C3",
	}
	require.NoError(t, d.HandleInbound(ctx, msg))
	require.NoError(t, d.HandleInbound(ctx, msg))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(shutdownCtx))

	assert.Len(t, runner.seen["salon-1|5511999990001"], 1)
}

func TestDispatcherRejectedMessageStaysUnseen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	dedup := NewRedisDeduper(client, time.Hour)

	d := NewDispatcher(newRecordingRunner(), dedup, 2, 4, nil)
	ctx := context.Background()
	d.Start(ctx)
	require.NoError(t, d.Shutdown(ctx))

	msg := messaging.InboundMessage{
		BusinessID: "salon-1",
		Phone:      "5511999990001",
		Text:       "oi",
		ProviderID: "3EB0A915C4",
	}
	require.ErrorIs(t, d.HandleInbound(ctx, msg), ErrShuttingDown)

	// The gateway's redelivery must still be processable.
	seen, err := dedup.Seen(ctx, msg.BusinessID, msg.ProviderID)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestDispatcherPartitionIsStable(t *testing.T) {
	d := NewDispatcher(newRecordingRunner(), nil, 8, 4, nil)
	first := d.partition("salon-1", "5511999990001")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, d.partition("salon-1", "5511999990001"))
	}
	// A different client may share a partition, but ids must spread at all.
	spread := map[int]bool{}
	for _, phone := range []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"} {
		spread[d.partition("salon-1", phone)] = true
	}
	assert.Greater(t, len(spread), 1)
}
