package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/events"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/log"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/metrics"
)

const (
	// progress reserved before the first document and for the summary
	progressStart   = 0.1
	progressItems   = 0.8
	progressSummary = 0.9

	summaryMessage = "Generating summary..."

	defaultAnalyzerTimeout   = 2 * time.Minute
	defaultSummarizerTimeout = 2 * time.Minute
)

type WorkerOption func(w *Worker)

func WithSummarizer(s Summarizer) WorkerOption {
	return func(w *Worker) {
		w.summarizer = s
	}
}

func WithEvents(e EventWriter) WorkerOption {
	return func(w *Worker) {
		w.events = e
	}
}

func WithAnalyzerTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.analyzerTimeout = d
		}
	}
}

func WithSummarizerTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.summarizerTimeout = d
		}
	}
}

func WithClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		w.now = now
	}
}

// Worker processes one batch at a time. It reports progress through the job store only.
type Worker struct {
	jobs              store.Job
	results           store.Result
	extractor         Extractor
	analyzer          Analyzer
	summarizer        Summarizer
	uploads           Uploads
	events            EventWriter
	analyzerTimeout   time.Duration
	summarizerTimeout time.Duration
	now               func() time.Time
}

func NewWorker(jobs store.Job, results store.Result, extractor Extractor, analyzer Analyzer, uploads Uploads, opts ...WorkerOption) *Worker {
	w := &Worker{
		jobs:              jobs,
		results:           results,
		extractor:         extractor,
		analyzer:          analyzer,
		uploads:           uploads,
		analyzerTimeout:   defaultAnalyzerTimeout,
		summarizerTimeout: defaultSummarizerTimeout,
		now:               time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run analyzes the items in order and completes the job. A document that fails becomes an error
// item; only a fault of the worker itself fails the job. Every item's upload is removed before
// Run returns, whatever happened.
func (w *Worker) Run(ctx context.Context, jobID string, items []Item) (err error) {
	logger := log.NewDebugLogger("analysis_worker").
		WithContext(ctx).
		Operation("process_batch").
		WithString("job_id", jobID).
		WithInt("items", len(items)).
		Build()
	start := w.now()

	defer func() {
		for _, item := range items {
			w.uploads.Remove(item.Path)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = panicFault(r)
		}
		if err != nil {
			w.fail(ctx, jobID, err, logger)
			metrics.IncreaseJobsFinishedMetric(string(model.JobStatusFailed), w.now().Sub(start).Seconds())
		}
	}()

	logger.Step("batch_started").Log()

	n := len(items)
	rs := model.ResultSet{
		Items:     make([]model.ResultItem, 0, n),
		ThreadIDs: make([]string, 0, n),
	}
	succeeded := 0

	for i, item := range items {
		progress := progressStart + (float64(i)/float64(n))*progressItems
		msg := fmt.Sprintf("Analyzing %s (%d of %d)...", item.Name, i+1, n)
		if err := w.jobs.Update(ctx, jobID, model.NewProgressUpdate(progress, msg)); err != nil {
			logger.Error(err).WithString("step", "update_progress").WithInt("item", i).Log()
			return newWorkerFault("update_progress", err)
		}

		result, err := w.analyzeItem(ctx, item, fmt.Sprintf("cv_%d", i+1))
		w.uploads.Remove(item.Path)
		if err != nil {
			logger.Error(err).WithString("step", "analyze_item").WithString("item", item.Name).Log()
			metrics.IncreaseItemsProcessedMetric("failed")
			rs.Items = append(rs.Items, model.ResultItem{
				Name:     item.Name,
				Analysis: fmt.Sprintf("Error: %s", err),
			})
			rs.ThreadIDs = append(rs.ThreadIDs, "")
			continue
		}

		metrics.IncreaseItemsProcessedMetric("succeeded")
		succeeded++
		rs.Items = append(rs.Items, *result)
		rs.ThreadIDs = append(rs.ThreadIDs, result.ThreadID)
		logger.Step("item_analyzed").WithString("item", item.Name).WithInt("index", i).Log()
	}

	if err := w.jobs.Update(ctx, jobID, model.NewProgressUpdate(progressSummary, summaryMessage)); err != nil {
		logger.Error(err).WithString("step", "update_progress_summary").Log()
		return newWorkerFault("update_progress", err)
	}

	if w.summarizer != nil && succeeded > 0 {
		summary := w.summarize(ctx, rs.Items)
		rs.Summary = &summary
		logger.Step("summary_generated").WithInt("summary_size", len(summary)).Log()
	}

	rs.CreatedAt = w.now().UTC()
	if err := w.results.Put(ctx, jobID, rs); err != nil {
		logger.Error(err).WithString("step", "store_results").Log()
		return newWorkerFault("store_results", err)
	}

	if err := w.jobs.Update(ctx, jobID, model.NewCompletedUpdate(jobID, w.now())); err != nil {
		logger.Error(err).WithString("step", "complete_job").Log()
		return newWorkerFault("complete_job", err)
	}

	metrics.IncreaseJobsFinishedMetric(string(model.JobStatusCompleted), w.now().Sub(start).Seconds())
	w.emit(ctx, events.JobCompletedKind, events.JobEvent{
		JobID:     jobID,
		Status:    string(model.JobStatusCompleted),
		Items:     n,
		Failed:    n - succeeded,
		ResultsID: jobID,
	})

	logger.Success().WithInt("succeeded", succeeded).WithInt("failed", n-succeeded).Log()
	return nil
}

// Abandon fails a job that never got a chance to run and removes its uploads.
func (w *Worker) Abandon(ctx context.Context, jobID string, items []Item, cause error) {
	defer func() {
		for _, item := range items {
			w.uploads.Remove(item.Path)
		}
	}()

	logger := log.NewDebugLogger("analysis_worker").
		WithContext(ctx).
		Operation("abandon_batch").
		WithString("job_id", jobID).
		Build()
	w.fail(ctx, jobID, cause, logger)
}

// analyzeItem turns a panicking collaborator into an item error: one bad document never costs the
// rest of the batch.
func (w *Worker) analyzeItem(ctx context.Context, item Item, identifier string) (result *model.ResultItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, panicFault(r).Unwrap()
		}
	}()

	text, err := w.extractor.Extract(ctx, item.Path)
	if err != nil {
		return nil, err
	}

	actx, cancel := context.WithTimeout(ctx, w.analyzerTimeout)
	defer cancel()

	analysis, err := w.analyzer.Analyze(actx, text, identifier)
	if err != nil {
		return nil, err
	}

	resultText := analysis.Text
	if resultText == "" {
		resultText = "Analysis failed"
	}

	return &model.ResultItem{
		Name:      item.Name,
		Analysis:  resultText,
		ThreadID:  analysis.ThreadID,
		MessageID: analysis.MessageID,
	}, nil
}

// summarize never fails: an unavailable summarizer turns into the summary text.
func (w *Worker) summarize(ctx context.Context, items []model.ResultItem) string {
	sctx, cancel := context.WithTimeout(ctx, w.summarizerTimeout)
	defer cancel()

	summary, err := w.summarizer.Summarize(sctx, items)
	if err != nil {
		return fmt.Sprintf("Error generating summary: %s", err)
	}
	return summary
}

func (w *Worker) fail(ctx context.Context, jobID string, cause error, logger *log.OperationTracer) {
	logger.Error(cause).WithString("step", "fail_job").Log()

	// the job context may be the reason we are failing
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := w.jobs.Update(uctx, jobID, model.NewFailedUpdate(cause.Error())); err != nil {
		logger.Error(err).WithString("step", "update_status_failed").Log()
	}

	w.emit(ctx, events.JobFailedKind, events.JobEvent{
		JobID:   jobID,
		Status:  string(model.JobStatusFailed),
		Message: cause.Error(),
	})
}

func (w *Worker) emit(ctx context.Context, kind string, e events.JobEvent) {
	if w.events == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = w.events.Write(ctx, kind, bytes.NewReader(data))
}
