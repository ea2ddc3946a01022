package analysis

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/metrics"
)

var (
	ErrDispatcherClosed = errors.New("dispatcher is closed")
	errShuttingDown     = errors.New("service shutting down")
)

// Task is a batch waiting for a worker slot.
type Task struct {
	JobID string
	Items []Item
}

type Runner interface {
	Run(ctx context.Context, jobID string, items []Item) error
	Abandon(ctx context.Context, jobID string, items []Item, cause error)
}

// Dispatcher runs batches in the background with at most maxWorkers of them at once. Batches
// queue without bound; each runs on the dispatcher's context, never on the submitting request's.
type Dispatcher struct {
	runner Runner
	sem    *semaphore.Weighted
	g      errgroup.Group

	// waitCtx is cancelled on Close and releases the batches still waiting for a slot.
	waitCtx  context.Context
	stopWait context.CancelFunc
	runCtx   context.Context
	stopRuns context.CancelFunc
	mu       sync.Mutex
	closed   bool
	log      *zap.SugaredLogger
}

func NewDispatcher(runner Runner, maxWorkers int64) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	d := &Dispatcher{
		runner: runner,
		sem:    semaphore.NewWeighted(maxWorkers),
		log:    zap.S().Named("dispatcher"),
	}
	d.waitCtx, d.stopWait = context.WithCancel(context.Background())
	d.runCtx, d.stopRuns = context.WithCancel(context.Background())
	return d
}

// Dispatch queues the task and returns immediately.
func (d *Dispatcher) Dispatch(task Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	d.g.Go(func() error {
		if err := d.sem.Acquire(d.waitCtx, 1); err != nil {
			d.log.Infow("abandoning queued job", "job_id", task.JobID)
			d.runner.Abandon(context.Background(), task.JobID, task.Items, errShuttingDown)
			return nil
		}
		defer d.sem.Release(1)

		metrics.IncreaseRunningJobsMetric()
		defer metrics.DecreaseRunningJobsMetric()

		if err := d.runner.Run(d.runCtx, task.JobID, task.Items); err != nil {
			d.log.Warnw("job failed", "job_id", task.JobID, "error", err)
		}
		return nil
	})

	return nil
}

// Close stops accepting tasks, abandons the queued ones and waits for the running ones. When ctx
// expires first, the running batches are cancelled and Close returns ctx's error once they exit.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.stopWait()

	done := make(chan struct{})
	go func() {
		_ = d.g.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.stopRuns()
		return nil
	case <-ctx.Done():
		d.stopRuns()
		<-done
		return ctx.Err()
	}
}
