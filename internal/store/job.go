package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
)

// Job interface for job-related database operations
type Job interface {
	Create(ctx context.Context, job model.Job) error
	Update(ctx context.Context, id string, upd model.JobUpdate) error
	Get(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, filter *JobQueryFilter) (model.JobList, error)
	DeleteStale(ctx context.Context, now time.Time, completedTTL, maxAge time.Duration) (int64, error)
}

// JobStore implements the Job interface
type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

// Create inserts the job. ErrDuplicateKey is returned when the id is already taken.
func (s *JobStore) Create(ctx context.Context, job model.Job) error {
	job.StartedAt = job.StartedAt.UTC()
	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.UTC()
		job.CompletedAt = &completedAt
	}

	result := s.getDB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("creating job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateKey
	}

	return nil
}

// Update writes the supplied fields in a single statement. The statement only matches a job that
// is still processing and whose progress is not above the new one, so concurrent readers never
// see a half applied update and status/progress stay monotonic.
func (s *JobStore) Update(ctx context.Context, id string, upd model.JobUpdate) error {
	if upd.Progress != nil && (*upd.Progress < 0 || *upd.Progress > 1) {
		return ErrInvalidProgress
	}
	if upd.Empty() {
		_, err := s.Get(ctx, id)
		return err
	}

	tx := s.getDB(ctx).Model(&model.Job{}).
		Where("job_id = ?", id).
		Where("status = ?", model.JobStatusProcessing)
	if upd.Progress != nil {
		tx = tx.Where("progress <= ?", *upd.Progress)
	}

	result := tx.Updates(upd.Columns())
	if result.Error != nil {
		return fmt.Errorf("updating job: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// nothing matched: tell apart a missing job from a rejected transition
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return ErrJobFinalized
	}
	return ErrProgressRegression
}

func (s *JobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	result := s.getDB(ctx).First(&job, "job_id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job: %w", result.Error)
	}

	return &job, nil
}

func (s *JobStore) List(ctx context.Context, filter *JobQueryFilter) (model.JobList, error) {
	var jobs model.JobList
	tx := s.getDB(ctx).Model(&jobs).Order("started_at")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if err := tx.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

// DeleteStale removes the jobs completed more than completedTTL ago and the jobs started more
// than maxAge ago, whatever their status. It returns the number of removed jobs.
func (s *JobStore) DeleteStale(ctx context.Context, now time.Time, completedTTL, maxAge time.Duration) (int64, error) {
	completedBefore := now.Add(-completedTTL).UTC()
	startedBefore := now.Add(-maxAge).UTC()

	result := s.getDB(ctx).
		Where("(completed_at IS NOT NULL AND completed_at < ?) OR started_at < ?", completedBefore, startedBefore).
		Delete(&model.Job{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting stale jobs: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
