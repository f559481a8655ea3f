package conversation

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/brisalabs/salon-ai-platform/internal/messaging"
	"github.com/brisalabs/salon-ai-platform/pkg/logging"
)

// TurnRunner executes one conversation turn to completion.
type TurnRunner interface {
	ProcessTurn(ctx context.Context, msg messaging.InboundMessage) error
}

// ErrShuttingDown is returned by HandleInbound once Shutdown has started.
var ErrShuttingDown = errors.New("conversation: dispatcher shutting down")

// Dispatcher fans inbound messages across a fixed set of worker partitions.
// Messages for the same (business, phone) pair always land on the same
// partition, so turns for one client are processed strictly in order while
// different clients proceed in parallel.
type Dispatcher struct {
	runner TurnRunner
	dedup  Deduper
	logger *logging.Logger

	partitions []chan messaging.InboundMessage
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher with the given partition count and
// per-partition buffer size.
func NewDispatcher(runner TurnRunner, dedup Deduper, partitions, buffer int, logger *logging.Logger) *Dispatcher {
	if partitions <= 0 {
		partitions = 8
	}
	if buffer <= 0 {
		buffer = 64
	}
	if dedup == nil {
		dedup = NopDeduper{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	d := &Dispatcher{
		runner:     runner,
		dedup:      dedup,
		logger:     logger,
		partitions: make([]chan messaging.InboundMessage, partitions),
	}
	for i := range d.partitions {
		d.partitions[i] = make(chan messaging.InboundMessage, buffer)
	}
	return d
}

// Start launches one worker goroutine per partition. Workers process turns
// with ctx and exit when their partition channel is closed.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.partitions {
		d.wg.Add(1)
		go d.work(ctx, i, ch)
	}
}

func (d *Dispatcher) work(ctx context.Context, partition int, ch <-chan messaging.InboundMessage) {
	defer d.wg.Done()
	for msg := range ch {
		if err := d.runner.ProcessTurn(ctx, msg); err != nil {
			d.logger.Error("turn processing failed",
				"error", err,
				"partition", partition,
				"business_id", msg.BusinessID,
				"phone", msg.Phone,
			)
		}
	}
}

// HandleInbound deduplicates the message and enqueues it on its partition.
// It returns once the message is accepted, not once the turn has run.
func (d *Dispatcher) HandleInbound(ctx context.Context, msg messaging.InboundMessage) error {
	seen, err := d.dedup.Seen(ctx, msg.BusinessID, msg.ProviderID)
	if err != nil {
		// Dedup is best effort; a Redis outage must not drop client messages.
		d.logger.Error("dedup check failed, processing anyway", "error", err, "provider_id", msg.ProviderID)
	} else if seen {
		d.logger.Info("duplicate webhook delivery skipped",
			"business_id", msg.BusinessID,
			"provider_id", msg.ProviderID,
		)
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrShuttingDown
	}

	ch := d.partitions[d.partition(msg.BusinessID, msg.Phone)]
	select {
	case ch <- msg:
		// Record the id only once the turn is queued, so a crash before this
		// point leaves the redelivery processable.
		if err := d.dedup.MarkSeen(ctx, msg.BusinessID, msg.ProviderID); err != nil {
			d.logger.Error("dedup mark failed", "error", err, "provider_id", msg.ProviderID)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) partition(businessID, phone string) int {
	h := fnv.New32a()
	h.Write([]byte(businessID))
	h.Write([]byte{'|'})
	h.Write([]byte(phone))
	return int(h.Sum32() % uint32(len(d.partitions)))
}

// Shutdown stops accepting messages and waits for queued turns to finish or
// ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for _, ch := range d.partitions {
		close(ch)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
