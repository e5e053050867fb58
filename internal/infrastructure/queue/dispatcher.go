package queue

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/prostech/salesbi-auth/internal/core/domain"
	"github.com/prostech/salesbi-auth/internal/core/ports"
	"github.com/prostech/salesbi-auth/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher records login attempts off the request path. Attempts are
// sharded on username so one user's attempts are recorded in order.
type Dispatcher struct {
	workers []chan domain.LoginAttempt
	sink    ports.LoginAttemptRecorder
	wg      sync.WaitGroup
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers feeding
// sink. If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sink ports.LoginAttemptRecorder, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.LoginAttempt, numWorkers),
		sink:    sink,
		log:     log.With().Str("component", "attempt_queue").Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.LoginAttempt, channelBuffer)
	}
	return d
}

// Start launches the workers. They drain what is queued and exit when ctx is
// cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Record queues attempt. It never blocks a login: when the shard is full the
// attempt is dropped and counted.
func (d *Dispatcher) Record(_ context.Context, attempt domain.LoginAttempt) {
	select {
	case d.workers[d.shardIndex(attempt.Username)] <- attempt:
	default:
		metrics.AttemptsDroppedTotal.Inc()
		d.log.Warn().Str("username", attempt.Username).Msg("attempt queue full, dropping record")
	}
}

// shardIndex maps a username deterministically to a worker index.
func (d *Dispatcher) shardIndex(username string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.LoginAttempt) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case attempt := <-ch:
			d.sink.Record(context.WithoutCancel(ctx), attempt)
		}
	}
}

func (d *Dispatcher) drain(id int, ch <-chan domain.LoginAttempt) {
	n := 0
	for {
		select {
		case attempt := <-ch:
			d.sink.Record(context.Background(), attempt)
			n++
		default:
			if n > 0 {
				d.log.Debug().Int("worker_id", id).Int("drained", n).Msg("attempt worker drained")
			}
			return
		}
	}
}
