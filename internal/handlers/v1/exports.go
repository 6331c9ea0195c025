package v1

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	api "github.com/openpim/catalog-bulk/api/v1"
	"github.com/openpim/catalog-bulk/internal/auth"
	"github.com/openpim/catalog-bulk/internal/handlers/v1/mappers"
	"github.com/openpim/catalog-bulk/internal/handlers/validator"
	"github.com/openpim/catalog-bulk/internal/service"
	"github.com/openpim/catalog-bulk/pkg/log"
)

// (POST /api/v1/exports)
func (h *ServiceHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("export_handler").WithContext(ctx).Operation("create_export").Build()

	var form api.ExportCreate
	if err := decodeBody(r, &form); err != nil {
		writeError(w, r, err)
		return
	}
	v := validator.NewValidator()
	v.Register(validator.NewExportValidationRules()...)
	if err := v.Struct(form); err != nil {
		badRequest(w, r, "invalid request body", validator.Messages(err))
		return
	}

	job, err := h.exportSrv.CreateExportJob(ctx, mappers.ExportRequestFromApi(form, auth.OwnerFromContext(ctx)))
	if err != nil {
		logger.Error(err).Log()
		writeError(w, r, err)
		return
	}

	logger.Success().WithUUID("job_id", job.ID).Log()
	reply(w, r, http.StatusCreated, mappers.ExportJobToApi(*job))
}

// (GET /api/v1/exports)
func (h *ServiceHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	filter, err := jobFilter(r, auth.OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jobs, err := h.exportSrv.ListExportJobs(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, http.StatusOK, mappers.ExportJobListToApi(jobs))
}

// (GET /api/v1/exports/{id})
func (h *ServiceHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, err := h.exportSrv.GetExportJob(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, http.StatusOK, mappers.ExportJobToApi(*job))
}

// (POST /api/v1/exports/{id}/cancel)
func (h *ServiceHandler) CancelExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger := log.NewDebugLogger("export_handler").WithContext(ctx).Operation("cancel_export").WithUUID("job_id", id).Build()

	job, err := h.exportSrv.CancelExportJob(ctx, id)
	if err != nil {
		logger.Error(err).Log()
		writeError(w, r, err)
		return
	}
	logger.Success().Log()
	reply(w, r, http.StatusOK, mappers.ExportJobToApi(*job))
}

// (GET /api/v1/exports/{id}/download)
func (h *ServiceHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dl, err := h.exportSrv.DownloadExport(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serveDownload(w, r, dl)
}

// serveDownload streams the body as an attachment. Errors after the first byte can
// only end up in the log.
func serveDownload(w http.ResponseWriter, r *http.Request, dl *service.Download) {
	defer dl.Body.Close()

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Name))
	if dl.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, dl.Body); err != nil {
		zap.S().Named("handler").Warnw("download interrupted", "path", r.URL.Path, "file", dl.Name, "error", err)
	}
}
