package v1alpha1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/handlers/v1alpha1/mappers"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/handlers/validator"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/session"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/log"
)

// (GET /api/v1/results)
func (h *ServiceHandler) GetCurrentResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("results_handler").WithContext(ctx).Operation("get_current_results").Build()

	s := session.MustHaveSession(ctx)

	rs, err := h.analysisSrv.FetchCurrent(ctx, s.ID)
	if err != nil {
		writeError(w, r, err, logger)
		return
	}

	logger.Success().WithInt("items", len(rs.Items)).Log()
	render.JSON(w, r, mappers.ResultSetToApi(*rs))
}

// (GET /api/v1/results/{id})
func (h *ServiceHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resultsID := chi.URLParam(r, "id")
	logger := log.NewDebugLogger("results_handler").WithContext(ctx).Operation("get_results").WithString("results_id", resultsID).Build()

	s := session.MustHaveSession(ctx)

	rs, err := h.analysisSrv.Fetch(ctx, s.ID, resultsID)
	if err != nil {
		writeError(w, r, err, logger)
		return
	}

	logger.Success().WithInt("items", len(rs.Items)).Log()
	render.JSON(w, r, mappers.ResultSetToApi(*rs))
}

// (GET /api/v1/results/items/{index})
func (h *ServiceHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("results_handler").WithContext(ctx).Operation("get_item").Build()

	index, err := indexParam(r)
	if err != nil {
		writeError(w, r, err, logger)
		return
	}

	s := session.MustHaveSession(ctx)

	item, err := h.analysisSrv.Item(ctx, s.ID, index)
	if err != nil {
		writeError(w, r, err, logger)
		return
	}

	logger.Success().WithInt("index", index).Log()
	render.JSON(w, r, mappers.ItemToApi(index, *item))
}

// (POST /api/v1/results/summary)
func (h *ServiceHandler) RegenerateSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("results_handler").WithContext(ctx).Operation("regenerate_summary").Build()

	s := session.MustHaveSession(ctx)

	rs, err := h.analysisSrv.RegenerateSummary(ctx, s.ID)
	if err != nil {
		writeError(w, r, err, logger)
		return
	}

	logger.Success().Log()
	render.JSON(w, r, mappers.ResultSetToApi(*rs))
}

// (POST /api/v1/results/items/{index}/interview-questions)
func (h *ServiceHandler) GenerateInterviewQuestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("results_handler").WithContext(ctx).Operation("generate_interview_questions").Build()

	index, err := indexParam(r)
	if err != nil {
		writeError(w, r, err, logger)
		return
	}

	s := session.MustHaveSession(ctx)

	item, err := h.analysisSrv.Item(ctx, s.ID, index)
	if err != nil {
		writeError(w, r, err, logger)
		return
	}

	questions, err := h.analysisSrv.InterviewQuestions(ctx, s.ID, index)
	if err != nil {
		writeError(w, r, err, logger)
		return
	}

	logger.Success().WithInt("index", index).Log()
	render.JSON(w, r, mappers.InterviewQuestions{Index: index, Name: item.Name, Questions: questions})
}

// (GET /api/v1/results/export)
func (h *ServiceHandler) ExportResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	format := r.URL.Query().Get("format")
	logger := log.NewDebugLogger("results_handler").WithContext(ctx).Operation("export_results").WithString("format", format).Build()

	s := session.MustHaveSession(ctx)

	export, err := h.analysisSrv.Export(ctx, s.ID, format)
	if err != nil {
		writeError(w, r, err, logger)
		return
	}

	logger.Success().WithInt("size", len(export.Data)).Log()
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Data)
}

// (POST /api/v1/session/reset)
func (h *ServiceHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("session_handler").WithContext(ctx).Operation("reset_session").Build()

	s := session.MustHaveSession(ctx)

	if err := h.analysisSrv.Reset(ctx, s.ID); err != nil {
		writeError(w, r, err, logger)
		return
	}

	logger.Success().Log()
	w.WriteHeader(http.StatusNoContent)
}

// (POST /api/v1/feedback)
func (h *ServiceHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("feedback_handler").WithContext(ctx).Operation("submit_feedback").Build()

	var form mappers.FeedbackForm
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		writeError(w, r, validator.NewErrInvalidRequest("failed to decode body: %v", err), logger)
		return
	}

	if err := h.validator.Struct(form); err != nil {
		writeError(w, r, err, logger)
		return
	}

	if err := h.analysisSrv.SubmitFeedback(ctx, mappers.FeedbackFormToService(form)); err != nil {
		writeError(w, r, err, logger)
		return
	}

	logger.Success().Log()
	w.WriteHeader(http.StatusNoContent)
}

func indexParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validator.NewErrInvalidRequest("invalid item index %q", raw)
	}
	return index, nil
}
