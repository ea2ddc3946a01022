package janitor

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/metrics"
)

const (
	// CompletedTTL is how long a finished job stays pollable.
	CompletedTTL = 5 * time.Minute
	// MaxAge bounds the life of any job, stuck ones included.
	MaxAge = 30 * time.Minute

	TriggerPoll     = "poll"
	TriggerInterval = "interval"
	TriggerCron     = "cron"
	TriggerManual   = "manual"
)

type Option func(j *Janitor)

func WithClock(now func() time.Time) Option {
	return func(j *Janitor) {
		j.now = now
	}
}

// Janitor removes the jobs nobody is going to poll anymore.
type Janitor struct {
	jobs store.Job
	now  func() time.Time
	log  *zap.SugaredLogger
}

func New(jobs store.Job, opts ...Option) *Janitor {
	j := &Janitor{
		jobs: jobs,
		now:  time.Now,
		log:  zap.S().Named("janitor"),
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Sweep deletes the stale jobs once and returns how many were removed.
func (j *Janitor) Sweep(ctx context.Context, trigger string) (int64, error) {
	deleted, err := j.jobs.DeleteStale(ctx, j.now(), CompletedTTL, MaxAge)
	if err != nil {
		j.log.Errorw("failed to sweep jobs", "trigger", trigger, "error", err)
		return 0, err
	}

	metrics.IncreaseJanitorMetrics(trigger, deleted)
	if deleted > 0 {
		j.log.Debugw("swept jobs", "trigger", trigger, "deleted", deleted)
	}
	return deleted, nil
}

// Run sweeps around every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := jitterbug.New(interval, &jitterbug.Norm{Stdev: interval / 20, Mean: 0})
	defer ticker.Stop()

	j.log.Infow("janitor started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			j.log.Info("janitor stopped")
			return
		case <-ticker.C:
		}

		_, _ = j.Sweep(ctx, TriggerInterval)
	}
}

// Schedule sweeps following the cron spec until ctx is done. It returns once the schedule is
// registered.
func (j *Janitor) Schedule(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		_, _ = j.Sweep(ctx, TriggerCron)
	}); err != nil {
		return errors.Wrapf(err, "invalid janitor schedule %q", spec)
	}

	c.Start()
	j.log.Infow("janitor scheduled", "schedule", spec)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		j.log.Info("janitor schedule stopped")
	}()

	return nil
}
