package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/clinical-meteor/checklist-manifesto/internal/api/metrics"
	"github.com/clinical-meteor/checklist-manifesto/internal/core/domain"
	"github.com/clinical-meteor/checklist-manifesto/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes login attempts to a fixed set of workers using
// consistent hashing on the username, keeping per-account attempt ordering
// in the audit trail. Recording failures are logged and dropped; the audit
// trail never blocks or fails a login.
type Dispatcher struct {
	workers  []chan domain.LoginAttempt
	recorder ports.AuditRecorder
	log      zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, recorder ports.AuditRecorder, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan domain.LoginAttempt, numWorkers),
		recorder: recorder,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.LoginAttempt, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands an attempt to the worker responsible for its username. When
// the worker's buffer is full the attempt is dropped rather than stalling
// the login path.
func (d *Dispatcher) Enqueue(attempt domain.LoginAttempt) {
	idx := d.shardIndex(attempt.Username)
	select {
	case d.workers[idx] <- attempt:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditDroppedTotal.Inc()
		d.log.Warn().Str("username", attempt.Username).Msg("audit queue full, attempt dropped")
	}
}

// shardIndex maps a username deterministically to a worker index.
func (d *Dispatcher) shardIndex(username string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.LoginAttempt) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case attempt, ok := <-ch:
			if !ok {
				return
			}
			metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.recorder.Record(ctx, attempt); err != nil {
				d.log.Error().Err(err).
					Str("username", attempt.Username).
					Int("worker_id", id).
					Msg("audit recording failed")
			}
		}
	}
}
