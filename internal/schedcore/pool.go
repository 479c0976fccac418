package schedcore

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cansrv/cansrv/internal/logger"
	"github.com/cansrv/cansrv/internal/metrics"
)

// ThreadRegistry is the subset of globalstate.ThreadRegistry a Pool needs
// to publish its worker goroutines for LIST_THREADS/admin visibility.
type ThreadRegistry interface {
	Register(id, kind string)
	Unregister(id string)
}

// Pool runs a fixed number of worker goroutines that drain a Queue,
// executing each due WorkItem's action. A panicking action is recovered
// and logged; it never takes down the worker goroutine.
type Pool struct {
	id      string
	queue   *Queue
	size    int
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex

	threads ThreadRegistry
}

// NewPool clamps size to [1, runtime.GOMAXPROCS(0)], the hardware
// parallelism hint, and binds it to queue.
func NewPool(size int, q *Queue) *Pool {
	if size < 1 {
		size = 1
	}
	if max := runtime.GOMAXPROCS(0); size > max {
		size = max
	}
	return &Pool{
		id:    fmt.Sprintf("pool-%s", uuid.New().String()[:8]),
		queue: q,
		size:  size,
	}
}

// ID returns this pool's log/registry identity, e.g. "pool-a1b2c3d4".
func (p *Pool) ID() string { return p.id }

// SetThreadRegistry wires a registry that each worker goroutine registers
// itself into on start and removes itself from on exit. Call before Start.
func (p *Pool) SetThreadRegistry(threads ThreadRegistry) {
	p.threads = threads
}

// Start spawns the worker goroutines. ctx cancellation unblocks any
// worker waiting on the queue and stops it from picking up new items.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	metrics.SetActiveWorkers(float64(p.size))
	logger.Info().Str("pool_id", p.id).Int("workers", p.size).Msg("worker pool started")
}

// Stop closes the underlying queue and waits for in-flight actions to
// return; items still queued are not run.
func (p *Pool) Stop() {
	p.queue.Close()
	p.wg.Wait()
	metrics.SetActiveWorkers(0)
	logger.Info().Str("pool_id", p.id).Msg("worker pool stopped")
}

func (p *Pool) worker(ctx context.Context, workerNum int) {
	defer p.wg.Done()

	workerID := fmt.Sprintf("%s-%d", p.id, workerNum)
	log := logger.WithWorker(workerID)
	log.Debug().Msg("worker started")

	if p.threads != nil {
		p.threads.Register(workerID, "worker")
		defer p.threads.Unregister(workerID)
	}

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		p.queue.Close()
		close(done)
	}()

	for {
		item, ok := p.queue.Pop()
		if !ok {
			return
		}

		start := time.Now()
		p.runAction(item)
		metrics.RecordWorkerBusyTime(workerID, time.Since(start).Seconds())
	}
}

// runAction invokes item.Action, recovering from and logging any panic
// so a single faulty action cannot tear down the worker pool.
func (p *Pool) runAction(item *WorkItem) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("scheduled action panicked")
		}
	}()
	item.Action()
}
