package v1alpha1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/handlers/v1alpha1/mappers"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/handlers/validator"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/service"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/log"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/requestid"
)

type ServiceHandler struct {
	analysisSrv   *service.AnalysisService
	validator     *validator.Validator
	maxUploadSize int64
}

func NewServiceHandler(analysisService *service.AnalysisService, maxUploadSize int64) *ServiceHandler {
	v := validator.NewValidator()
	v.Register(validator.NewFeedbackValidationRules()...)

	return &ServiceHandler{
		analysisSrv:   analysisService,
		validator:     v,
		maxUploadSize: maxUploadSize,
	}
}

// Routes mounts the v1 api. Every route expects the session middleware to run first.
func (h *ServiceHandler) Routes(r chi.Router) {
	r.Post("/analyses", h.SubmitAnalysis)
	r.Get("/jobs/{id}", h.GetJob)

	r.Get("/results", h.GetCurrentResults)
	r.Post("/results/summary", h.RegenerateSummary)
	r.Get("/results/export", h.ExportResults)
	r.Get("/results/items/{index}", h.GetItem)
	r.Post("/results/items/{index}/interview-questions", h.GenerateInterviewQuestions)
	r.Get("/results/{id}", h.GetResults)

	r.Post("/session/reset", h.ResetSession)
	r.Post("/feedback", h.SubmitFeedback)
}

// (GET /health)
func Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, mappers.Health{Status: "ok"})
}

// writeError maps the service errors to their status code.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger *log.OperationTracer) {
	logger.Error(err).Log()

	status := http.StatusInternalServerError
	switch err.(type) {
	case *service.ErrResourceNotFound, *service.ErrNoResultsBound:
		status = http.StatusNotFound
	case *service.ErrNoValidFiles, *service.ErrUnsupportedExportFormat, *validator.ErrInvalidRequest:
		status = http.StatusBadRequest
	case *service.ErrCollaboratorUnavailable:
		status = http.StatusServiceUnavailable
	}

	render.Status(r, status)
	render.JSON(w, r, mappers.Error{Message: err.Error(), RequestId: requestid.FromContextPtr(r.Context())})
}
