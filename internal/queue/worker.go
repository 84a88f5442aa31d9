package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chattyapp/chatty-server/internal/domain"
)

// HandlerFunc runs one job. A nil return reports completion; a non-nil error
// reports failure and makes the job eligible for retry. There is no implicit
// success: panics are recovered and count as failures.
type HandlerFunc func(ctx context.Context, job *domain.Job) error

type registration struct {
	fn    HandlerFunc
	group *errgroup.Group
}

// Worker consumes one queue and dispatches jobs to registered handlers with
// a per-job-type concurrency ceiling. Jobs of one type at concurrency 1 run
// in FIFO order; higher ceilings permit reordered completion.
type Worker struct {
	queue    *Queue
	log      *zap.Logger
	mu       sync.Mutex
	handlers map[string]*registration

	pollBlock    time.Duration
	moveInterval time.Duration
}

// WorkerOptions tunes consumption; zero fields keep the defaults.
type WorkerOptions struct {
	// MoveInterval is how often due retries are moved back onto the work list.
	MoveInterval time.Duration
}

func NewWorker(q *Queue, log *zap.Logger, opts ...WorkerOptions) *Worker {
	w := &Worker{
		queue:        q,
		log:          log.Named(q.Name() + "Worker"),
		handlers:     make(map[string]*registration),
		pollBlock:    2 * time.Second,
		moveInterval: time.Second,
	}
	if len(opts) > 0 && opts[0].MoveInterval > 0 {
		w.moveInterval = opts[0].MoveInterval
	}
	return w
}

// Register binds a handler for the given job type. Registering the same type
// twice replaces the handler but keeps the original concurrency ceiling out
// of play; callers register each type once at startup.
func (w *Worker) Register(jobType string, concurrency int, fn HandlerFunc) {
	if concurrency < 1 {
		concurrency = 1
	}
	g := &errgroup.Group{}
	g.SetLimit(concurrency)
	w.mu.Lock()
	w.handlers[jobType] = &registration{fn: fn, group: g}
	w.mu.Unlock()
}

// Run consumes jobs until the context is cancelled, then waits for in-flight
// handlers. It also periodically moves due retries back onto the work list.
func (w *Worker) Run(ctx context.Context) error {
	go w.moveDueLoop(ctx)

	for {
		job, err := w.queue.dequeue(ctx, w.pollBlock)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			w.log.Error("dequeue failed", zap.Error(err))
			continue
		}
		if job == nil {
			continue
		}
		w.dispatch(ctx, job)
	}

	w.mu.Lock()
	regs := make([]*registration, 0, len(w.handlers))
	for _, reg := range w.handlers {
		regs = append(regs, reg)
	}
	w.mu.Unlock()
	for _, reg := range regs {
		// handler errors are routed through retry, never returned here
		_ = reg.group.Wait()
	}
	return nil
}

func (w *Worker) dispatch(ctx context.Context, job *domain.Job) {
	w.mu.Lock()
	reg, ok := w.handlers[job.Type]
	w.mu.Unlock()
	if !ok {
		w.log.Error("no handler registered", zap.String("jobType", job.Type), zap.String("jobId", job.ID))
		w.fail(ctx, job, fmt.Errorf("no handler registered for %q", job.Type))
		return
	}
	// Go blocks once the type's concurrency ceiling is reached, which keeps
	// dequeue paced to handler throughput.
	reg.group.Go(func() error {
		w.runJob(ctx, reg.fn, job)
		return nil
	})
}

func (w *Worker) runJob(ctx context.Context, fn HandlerFunc, job *domain.Job) {
	defer func() {
		if rec := recover(); rec != nil {
			w.fail(ctx, job, fmt.Errorf("handler panic: %v", rec))
		}
	}()
	if err := fn(ctx, job); err != nil {
		w.fail(ctx, job, err)
		return
	}
	w.log.Debug("job completed", zap.String("jobId", job.ID), zap.String("jobType", job.Type))
}

func (w *Worker) fail(ctx context.Context, job *domain.Job, cause error) {
	if err := w.queue.retry(ctx, job, cause); err != nil {
		w.log.Error("retry scheduling failed", zap.String("jobId", job.ID), zap.Error(err))
	}
}

func (w *Worker) moveDueLoop(ctx context.Context) {
	tick := time.NewTicker(w.moveInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if err := w.queue.MoveDue(ctx, time.Now().Unix(), 200); err != nil && ctx.Err() == nil {
				w.log.Error("move due jobs failed", zap.Error(err))
			}
		}
	}
}
