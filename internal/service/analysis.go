package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/analysis"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/events"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/janitor"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/upload"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/log"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/metrics"
)

const startMessage = "Starting analysis..."

// FileForm is one document of a submission.
type FileForm struct {
	Filename string
	Content  io.Reader
}

type Feedback struct {
	MessageID string
	ThreadID  string
	Positive  bool
}

type Uploads interface {
	Allowed(filename string) bool
	Save(filename string, r io.Reader) (upload.File, error)
	Remove(path string)
}

type Dispatcher interface {
	Dispatch(task analysis.Task) error
}

type Sweeper interface {
	Sweep(ctx context.Context, trigger string) (int64, error)
}

type Interviewer interface {
	InterviewQuestions(ctx context.Context, item model.ResultItem) (string, error)
}

type FeedbackSubmitter interface {
	SubmitFeedback(ctx context.Context, messageID, threadID string, positive bool) error
}

type AnalysisServiceOption func(s *AnalysisService)

func WithSummarizer(summarizer analysis.Summarizer) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.summarizer = summarizer
	}
}

func WithInterviewer(interviewer Interviewer) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.interviewer = interviewer
	}
}

func WithFeedback(feedback FeedbackSubmitter) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.feedback = feedback
	}
}

func WithEventWriter(w analysis.EventWriter) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.events = w
	}
}

type AnalysisService struct {
	store             store.Store
	uploads           Uploads
	dispatcher        Dispatcher
	sweeper           Sweeper
	allowedExtensions []string
	summarizer        analysis.Summarizer
	interviewer       Interviewer
	feedback          FeedbackSubmitter
	events            analysis.EventWriter
	now               func() time.Time
}

func NewAnalysisService(store store.Store, uploads Uploads, dispatcher Dispatcher, sweeper Sweeper, allowedExtensions []string, opts ...AnalysisServiceOption) *AnalysisService {
	s := &AnalysisService{
		store:             store,
		uploads:           uploads,
		dispatcher:        dispatcher,
		sweeper:           sweeper,
		allowedExtensions: allowedExtensions,
		now:               time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit saves the acceptable files, creates the job and hands the batch to the dispatcher.
// It returns as soon as the batch is queued.
func (s *AnalysisService) Submit(ctx context.Context, files []FileForm) (string, error) {
	logger := log.NewDebugLogger("analysis_service").
		WithContext(ctx).
		Operation("submit").
		WithInt("files", len(files)).
		Build()

	items := make([]analysis.Item, 0, len(files))
	for _, f := range files {
		if f.Filename == "" || !s.uploads.Allowed(f.Filename) {
			logger.Step("file_rejected").WithString("filename", f.Filename).Log()
			continue
		}
		saved, err := s.uploads.Save(f.Filename, f.Content)
		if err != nil {
			logger.Error(err).WithString("step", "save_upload").WithString("filename", f.Filename).Log()
			s.removeUploads(items)
			return "", err
		}
		items = append(items, analysis.Item{Name: saved.Name, Path: saved.Path})
	}

	if len(items) == 0 {
		return "", NewErrNoValidFiles(s.allowedExtensions)
	}

	jobID := uuid.NewString()
	job := model.Job{
		ID:        jobID,
		Status:    model.JobStatusProcessing,
		Progress:  0,
		Message:   startMessage,
		StartedAt: s.now(),
	}
	if err := s.store.Job().Create(ctx, job); err != nil {
		logger.Error(err).WithString("step", "create_job").Log()
		s.removeUploads(items)
		return "", err
	}

	if err := s.dispatcher.Dispatch(analysis.Task{JobID: jobID, Items: items}); err != nil {
		logger.Error(err).WithString("step", "dispatch").WithString("job_id", jobID).Log()
		_ = s.store.Job().Update(ctx, jobID, model.NewFailedUpdate(err.Error()))
		s.removeUploads(items)
		return "", err
	}

	metrics.IncreaseJobsSubmittedMetric()
	s.emit(ctx, events.JobSubmittedKind, events.JobEvent{
		JobID:  jobID,
		Status: string(model.JobStatusProcessing),
		Items:  len(items),
	})

	logger.Success().WithString("job_id", jobID).WithInt("items", len(items)).Log()
	return jobID, nil
}

// Poll reads the job. The first completed job a session observes becomes the session's
// results; later completions never replace it until the session is reset.
func (s *AnalysisService) Poll(ctx context.Context, sessionID, jobID string) (*model.Job, error) {
	job, err := s.store.Job().Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(jobID)
		}
		return nil, err
	}

	if job.Status != model.JobStatusCompleted || job.ResultsID == nil || sessionID == "" {
		return job, nil
	}

	bound, err := s.store.Binding().BindIfAbsent(ctx, sessionID, *job.ResultsID)
	if err != nil {
		return nil, err
	}
	if bound && s.sweeper != nil {
		_, _ = s.sweeper.Sweep(ctx, janitor.TriggerPoll)
	}

	return job, nil
}

// Fetch returns the result set by id. Only the results bound to the session are visible; any
// other id is reported as not found.
func (s *AnalysisService) Fetch(ctx context.Context, sessionID, resultsID string) (*model.ResultSet, error) {
	bound, err := s.store.Binding().Get(ctx, sessionID)
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}
	if bound != resultsID {
		return nil, NewErrResultsNotFound(resultsID)
	}
	return s.load(ctx, resultsID)
}

func (s *AnalysisService) load(ctx context.Context, resultsID string) (*model.ResultSet, error) {
	rs, err := s.store.Result().Get(ctx, resultsID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrResultsNotFound(resultsID)
		}
		return nil, err
	}
	return rs, nil
}

// FetchCurrent returns the result set bound to the session.
func (s *AnalysisService) FetchCurrent(ctx context.Context, sessionID string) (*model.ResultSet, error) {
	_, rs, err := s.current(ctx, sessionID)
	return rs, err
}

func (s *AnalysisService) Reset(ctx context.Context, sessionID string) error {
	return s.store.Binding().Clear(ctx, sessionID)
}

// RegenerateSummary recomputes the summary of the session's results and stores the whole set
// again.
func (s *AnalysisService) RegenerateSummary(ctx context.Context, sessionID string) (*model.ResultSet, error) {
	if s.summarizer == nil {
		return nil, NewErrSummarizerUnavailable()
	}

	logger := log.NewDebugLogger("analysis_service").
		WithContext(ctx).
		Operation("regenerate_summary").
		Build()

	resultsID, rs, err := s.current(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary, err := s.summarizer.Summarize(ctx, rs.Items)
	if err != nil {
		logger.Error(err).WithString("results_id", resultsID).Log()
		return nil, fmt.Errorf("generating summary: %w", err)
	}
	rs.Summary = &summary

	if err := s.store.Result().Put(ctx, resultsID, *rs); err != nil {
		logger.Error(err).WithString("step", "store_results").WithString("results_id", resultsID).Log()
		return nil, err
	}

	logger.Success().WithString("results_id", resultsID).Log()
	return rs, nil
}

func (s *AnalysisService) Item(ctx context.Context, sessionID string, index int) (*model.ResultItem, error) {
	_, rs, err := s.current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(rs.Items) {
		return nil, NewErrItemNotFound(index)
	}
	item := rs.Items[index]
	return &item, nil
}

func (s *AnalysisService) InterviewQuestions(ctx context.Context, sessionID string, index int) (string, error) {
	if s.interviewer == nil {
		return "", NewErrInterviewerUnavailable()
	}

	item, err := s.Item(ctx, sessionID, index)
	if err != nil {
		return "", err
	}

	questions, err := s.interviewer.InterviewQuestions(ctx, *item)
	if err != nil {
		return "", fmt.Errorf("generating interview questions: %w", err)
	}
	return questions, nil
}

func (s *AnalysisService) SubmitFeedback(ctx context.Context, feedback Feedback) error {
	if s.feedback == nil {
		return NewErrFeedbackUnavailable()
	}

	logger := log.NewDebugLogger("analysis_service").
		WithContext(ctx).
		Operation("submit_feedback").
		WithString("message_id", feedback.MessageID).
		Build()

	if err := s.feedback.SubmitFeedback(ctx, feedback.MessageID, feedback.ThreadID, feedback.Positive); err != nil {
		logger.Error(err).Log()
		return err
	}

	logger.Success().WithBool("positive", feedback.Positive).Log()
	return nil
}

func (s *AnalysisService) current(ctx context.Context, sessionID string) (string, *model.ResultSet, error) {
	resultsID, err := s.store.Binding().Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return "", nil, NewErrNoResultsBound()
		}
		return "", nil, err
	}

	rs, err := s.load(ctx, resultsID)
	if err != nil {
		return "", nil, err
	}
	return resultsID, rs, nil
}

func (s *AnalysisService) removeUploads(items []analysis.Item) {
	for _, item := range items {
		s.uploads.Remove(item.Path)
	}
}

func (s *AnalysisService) emit(ctx context.Context, kind string, e events.JobEvent) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = s.events.Write(ctx, kind, bytes.NewReader(data))
}
