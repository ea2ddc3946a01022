package janitor

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
)

var errDryRun = errors.New("dry run")

// Report is what one sweep removed and the jobs still processing after it.
type Report struct {
	Deleted    int64
	Processing model.JobList
}

// SweepReport sweeps once and lists the remaining processing jobs in the same transaction. A dry
// run rolls the transaction back, so nothing is removed.
func SweepReport(ctx context.Context, s store.Store, dryRun bool, opts ...Option) (*Report, error) {
	var report Report
	err := store.WithTransaction(ctx, s, func(ctx context.Context) error {
		deleted, err := New(s.Job(), opts...).Sweep(ctx, TriggerManual)
		if err != nil {
			return err
		}

		processing, err := s.Job().List(ctx, store.NewJobQueryFilter().ByStatus(model.JobStatusProcessing))
		if err != nil {
			return errors.Wrap(err, "listing processing jobs")
		}

		report = Report{Deleted: deleted, Processing: processing}
		if dryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, err
	}

	return &report, nil
}
