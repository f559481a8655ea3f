package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/brisalabs/salon-ai-platform/internal/observability/metrics"
	"github.com/brisalabs/salon-ai-platform/pkg/logging"
)

// Sender delivers one outbound message.
type Sender interface {
	Send(ctx context.Context, phone, text string) error
}

// sweepStore is the slice of Store the worker needs.
type sweepStore interface {
	ClaimDue(ctx context.Context, asOf time.Time, limit int) ([]ScheduledMessage, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	Release(ctx context.Context, id uuid.UUID) error
	RecoverStale(ctx context.Context, olderThan time.Time) (int64, error)
}

// Worker sweeps due scheduled messages and sends them. Delivery precision is
// bounded by the sweep interval, not fire_at.
type Worker struct {
	store          sweepStore
	sender         Sender
	logger         *logging.Logger
	metrics        *metrics.ConversationMetrics
	interval       time.Duration
	batchSize      int
	interSendDelay time.Duration
	staleClaimAge  time.Duration
}

// NewWorker creates a sweep worker.
func NewWorker(store sweepStore, sender Sender, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		store:          store,
		sender:         sender,
		logger:         logger,
		interval:       5 * time.Minute,
		batchSize:      50,
		interSendDelay: 500 * time.Millisecond,
		staleClaimAge:  15 * time.Minute,
	}
}

func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *Worker) WithBatchSize(n int) *Worker {
	if n > 0 {
		w.batchSize = n
	}
	return w
}

func (w *Worker) WithInterSendDelay(d time.Duration) *Worker {
	if d >= 0 {
		w.interSendDelay = d
	}
	return w
}

func (w *Worker) WithStaleClaimAge(d time.Duration) *Worker {
	if d > 0 {
		w.staleClaimAge = d
	}
	return w
}

func (w *Worker) WithMetrics(m *metrics.ConversationMetrics) *Worker {
	w.metrics = m
	return w
}

// Run sweeps on a fixed period until ctx is cancelled. Pending rows left
// behind at shutdown resume on the next run.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	now := time.Now().UTC()

	// A worker that died between claim and mark leaves rows in 'sending';
	// requeue anything claimed longer than staleClaimAge ago.
	recovered, err := w.store.RecoverStale(ctx, now.Add(-w.staleClaimAge))
	if err != nil {
		w.logger.Error("stale claim recovery failed", "error", err)
	} else if recovered > 0 {
		w.logger.Warn("requeued stale claimed messages", "count", recovered)
	}

	processed, err := w.ProcessDue(ctx, now)
	if err != nil {
		w.logger.Error("delivery sweep failed", "error", err)
		return
	}
	if processed > 0 {
		w.logger.Info("delivery sweep completed", "processed", processed)
	}
}

// ProcessDue claims and sends all pending messages due at asOf, oldest
// fire_at first. A send failure marks the message failed; there is no
// automatic requeue. Returns the number of messages processed.
func (w *Worker) ProcessDue(ctx context.Context, asOf time.Time) (int, error) {
	due, err := w.store.ClaimDue(ctx, asOf, w.batchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i, msg := range due {
		if ctx.Err() != nil {
			// Shutdown mid-batch: unattempted claimed rows go back to pending
			// so the next sweep delivers them. Only send attempts may reach a
			// terminal status.
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			for _, stuck := range due[i:] {
				if err := w.store.Release(cleanupCtx, stuck.ID); err != nil {
					w.logger.Error("release interrupted message failed", "error", err, "id", stuck.ID)
				}
			}
			cancel()
			return processed, ctx.Err()
		}

		if i > 0 && w.interSendDelay > 0 {
			time.Sleep(w.interSendDelay)
		}

		if err := w.sender.Send(ctx, msg.Phone, msg.Content); err != nil {
			w.logger.Error("scheduled send failed", "error", err, "id", msg.ID, "phone", msg.Phone)
			if markErr := w.store.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
				w.logger.Error("mark failed errored", "error", markErr, "id", msg.ID)
			}
			w.metrics.ObserveDelivery(string(StatusFailed))
			processed++
			continue
		}

		if err := w.store.MarkSent(ctx, msg.ID); err != nil {
			w.logger.Error("mark sent errored", "error", err, "id", msg.ID)
		}
		w.metrics.ObserveDelivery(string(StatusSent))
		processed++
	}
	return processed, nil
}
