package runner

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ethereum/go-ethereum/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/zenc-lang/zc-conform/types"
)

// Handle is the pending outcome of one submitted test case.
type Handle struct {
	index   int
	tc      types.TestCase
	done    chan struct{}
	outcome types.TestOutcome
}

func newHandle(index int, tc types.TestCase) *Handle {
	return &Handle{
		index: index,
		tc:    tc,
		done:  make(chan struct{}),
	}
}

// resolve stores the outcome and releases every waiter. It must be called exactly once.
func (h *Handle) resolve(outcome types.TestOutcome) {
	h.outcome = outcome
	close(h.done)
}

// Wait blocks until this test case has finished and returns its outcome.
func (h *Handle) Wait() types.TestOutcome {
	<-h.done
	return h.outcome
}

// Done is closed once the outcome is available.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Batch holds the handles of one submission, indexed by submission position.
type Batch struct {
	handles []*Handle
	drained chan struct{}
}

// Len returns the number of submitted test cases.
func (b *Batch) Len() int {
	return len(b.handles)
}

// Await blocks until the i-th submitted test case has finished, regardless of how many
// later submissions already completed.
func (b *Batch) Await(i int) types.TestOutcome {
	return b.handles[i].Wait()
}

// Handle returns the handle at submission position i.
func (b *Batch) Handle(i int) *Handle {
	return b.handles[i]
}

// Wait blocks until every worker has exited.
func (b *Batch) Wait() {
	<-b.drained
}

// Scheduler distributes test cases over a bounded pool of workers.
type Scheduler struct {
	executor TestExecutor
	workers  int
	log      log.Logger
}

// NewScheduler creates a scheduler running at most workers tests at a time.
// A non-positive worker count means one worker per available CPU.
func NewScheduler(executor TestExecutor, workers int, logger log.Logger) *Scheduler {
	if executor == nil {
		panic("executor cannot be nil")
	}
	if logger == nil {
		logger = log.New()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > MaxReasonableConcurrency {
		logger.Warn("Very high concurrency requested", "workers", workers,
			"recommendation", "Consider using lower values to avoid resource exhaustion")
	}

	return &Scheduler{
		executor: executor,
		workers:  workers,
		log:      logger.New("component", "scheduler"),
	}
}

// Workers returns the effective worker count.
func (s *Scheduler) Workers() int {
	return s.workers
}

// Submit queues every test case and returns immediately. Outcomes become available through
// the returned Batch in submission order; execution order among workers is unconstrained.
func (s *Scheduler) Submit(ctx context.Context, cases []types.TestCase, cfg types.RunConfig) *Batch {
	batch := &Batch{
		handles: make([]*Handle, len(cases)),
		drained: make(chan struct{}),
	}
	for i, tc := range cases {
		batch.handles[i] = newHandle(i, tc)
	}

	s.log.Debug("Submitting tests", "total", len(cases), "workers", s.workers, "backend", cfg.Backend)

	// pool.Go blocks while all workers are busy, so feed the pool from its own goroutine.
	go func() {
		defer close(batch.drained)

		p := pool.New().WithMaxGoroutines(s.workers)
		for _, h := range batch.handles {
			p.Go(func() {
				h.resolve(s.run(ctx, h, cfg))
			})
		}
		p.Wait()
		s.log.Debug("All workers finished", "total", len(cases))
	}()

	return batch
}

// run executes one task, containing any panic so that the handle always resolves.
func (s *Scheduler) run(ctx context.Context, h *Handle, cfg types.RunConfig) (outcome types.TestOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("Worker panicked", "test", h.tc.Name, "index", h.index, "error", rec)
			outcome = types.TestOutcome{
				Case:       h.tc,
				Success:    false,
				Diagnostic: fmt.Sprintf("Exception: runtime error: %v", rec),
			}
		}
	}()

	s.log.Debug("Worker processing test", "test", h.tc.Name, "index", h.index)
	return s.executor.Execute(ctx, h.tc, cfg)
}
