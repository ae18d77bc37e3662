package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	drainTimeout   = 5 * time.Second
)

// Dispatcher routes audit events to a fixed set of workers using consistent
// hashing on the target user id, so events about one user are stored in order.
type Dispatcher struct {
	workers []chan domain.AuditEvent
	service ports.AuditService
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.AuditService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuditEvent, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. When ctx is cancelled each worker
// stores what is still buffered, for at most drainTimeout, then returns.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Record enqueues event on the worker owning its target. It never blocks:
// when that worker's buffer is full the event is dropped and counted.
func (d *Dispatcher) Record(_ context.Context, event domain.AuditEvent) {
	idx := d.shardIndex(event.TargetID)
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().
			Str("action", string(event.Action)).
			Str("target_id", event.TargetID).
			Int("worker_id", idx).
			Msg("audit queue full, event dropped")
	}
}

// shardIndex maps a target id deterministically to a worker index.
func (d *Dispatcher) shardIndex(targetID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(targetID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuditEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	// The request context is gone by now. Storage runs on the worker's,
	// detached so that a dequeued event is not aborted by shutdown.
	storeCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			d.drain(ctx, id, ch)
			return
		case event := <-ch:
			metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.process(storeCtx, id, event)
		}
	}
}

// drain stores the events left in ch after shutdown began. Events still
// queued when drainTimeout expires are counted as dropped.
func (d *Dispatcher) drain(ctx context.Context, id int, ch <-chan domain.AuditEvent) {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	defer metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(0)

	for {
		if drainCtx.Err() != nil {
			if n := len(ch); n > 0 {
				metrics.AuditEventsTotal.WithLabelValues("dropped").Add(float64(n))
				d.log.Warn().Int("worker_id", id).Int("pending", n).Msg("audit drain timed out, events dropped")
			}
			return
		}
		select {
		case event := <-ch:
			d.process(drainCtx, id, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, id int, event domain.AuditEvent) {
	if err := d.service.Process(ctx, event); err != nil {
		d.log.Error().Err(err).
			Str("action", string(event.Action)).
			Str("target_id", event.TargetID).
			Int("worker_id", id).
			Msg("audit event processing failed")
	}
}
