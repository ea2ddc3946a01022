package v1alpha1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/handlers/v1alpha1/mappers"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/handlers/validator"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/service"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/session"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/log"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/requestid"
)

const (
	filesFormField     = "cv_files"
	multipartMaxMemory = 8 << 20
)

// (POST /api/v1/analyses)
func (h *ServiceHandler) SubmitAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("job_handler").WithContext(ctx).Operation("submit_analysis").Build()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
		logger.Error(err).Log()
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			render.Status(r, http.StatusRequestEntityTooLarge)
			render.JSON(w, r, mappers.Error{Message: fmt.Sprintf("upload exceeds %d bytes", maxErr.Limit), RequestId: requestid.FromContextPtr(ctx)})
			return
		}
		writeError(w, r, validator.NewErrInvalidRequest("failed to read multipart form: %v", err), logger)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File[filesFormField]
	if len(headers) == 0 {
		writeError(w, r, validator.NewErrInvalidRequest("no files uploaded"), logger)
		return
	}

	files := make([]service.FileForm, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, r, validator.NewErrInvalidRequest("failed to read file %s: %v", fh.Filename, err), logger)
			return
		}
		defer func() {
			_ = f.Close()
		}()
		files = append(files, service.FileForm{Filename: fh.Filename, Content: f})
	}

	jobID, err := h.analysisSrv.Submit(ctx, files)
	if err != nil {
		writeError(w, r, err, logger)
		return
	}

	logger.Success().WithString("job_id", jobID).Log()
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, mappers.SubmitResponse{JobID: jobID, Status: "processing"})
}

// (GET /api/v1/jobs/{id})
func (h *ServiceHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")
	logger := log.NewDebugLogger("job_handler").WithContext(ctx).Operation("get_job").WithString("job_id", jobID).Build()

	s := session.MustHaveSession(ctx)

	job, err := h.analysisSrv.Poll(ctx, s.ID, jobID)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, mappers.JobNotFoundToApi())
		default:
			writeError(w, r, err, logger)
		}
		return
	}

	logger.Success().WithString("status", string(job.Status)).Log()
	render.JSON(w, r, mappers.JobToApi(*job))
}
