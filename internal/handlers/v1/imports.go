package v1

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	api "github.com/openpim/catalog-bulk/api/v1"
	"github.com/openpim/catalog-bulk/internal/auth"
	"github.com/openpim/catalog-bulk/internal/handlers/v1/mappers"
	"github.com/openpim/catalog-bulk/internal/handlers/validator"
	"github.com/openpim/catalog-bulk/internal/service"
	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/pkg/log"
)

// uploadForm is the multipart body shared by create, preview and validate.
type uploadForm struct {
	upload     service.Upload
	file       multipart.File
	entityType model.EntityType
	mapping    map[string]string
	options    model.ImportOptions
}

func (f *uploadForm) Close() {
	if f.file != nil {
		_ = f.file.Close()
	}
}

func (h *ServiceHandler) readUpload(w http.ResponseWriter, r *http.Request) (*uploadForm, error) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("failed to read multipart form: %w", wrapMultipart(err))
	}

	entityType, err := model.ParseEntityType(r.FormValue("entityType"))
	if err != nil {
		return nil, service.NewErrInvalidRequest("%s", err)
	}

	var opts api.ImportOptions
	if err := formJSON(r, "options", &opts); err != nil {
		return nil, err
	}
	v := validator.NewValidator()
	v.Register(validator.NewImportValidationRules()...)
	if err := v.Struct(opts); err != nil {
		return nil, service.NewErrInvalidRequest("invalid options: %s", strings.Join(validator.Messages(err), "; "))
	}

	form := &uploadForm{entityType: entityType, options: mappers.ImportOptionsFromApi(opts)}
	if err := formJSON(r, "mapping", &form.mapping); err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, service.NewErrInvalidRequest("file is required")
	}
	form.file = file
	form.upload = service.Upload{Name: header.Filename, Content: file}
	return form, nil
}

// wrapMultipart keeps size errors typed and turns the rest into bad requests.
func wrapMultipart(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return tooLarge
	}
	return service.NewErrInvalidRequest("%v", err)
}

// (POST /api/v1/imports)
func (h *ServiceHandler) CreateImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("import_handler").WithContext(ctx).Operation("create_import").Build()

	form, err := h.readUpload(w, r)
	if err != nil {
		logger.Error(err).Log()
		writeError(w, r, err)
		return
	}
	defer form.Close()

	job, err := h.importSrv.CreateImportJob(ctx, form.upload, service.ImportRequest{
		EntityType: form.entityType,
		Owner:      auth.OwnerFromContext(ctx),
		Mapping:    form.mapping,
		Options:    form.options,
	})
	if err != nil {
		logger.Error(err).Log()
		writeError(w, r, err)
		return
	}

	logger.Success().WithUUID("job_id", job.ID).Log()
	reply(w, r, http.StatusCreated, mappers.ImportJobToApi(*job))
}

// (POST /api/v1/imports/preview)
func (h *ServiceHandler) PreviewImport(w http.ResponseWriter, r *http.Request) {
	form, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer form.Close()

	rows, err := queryInt(r, "rows", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	preview, err := h.importSrv.PreviewImport(r.Context(), form.upload, form.entityType, rows, form.options)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, http.StatusOK, mappers.PreviewToApi(preview))
}

// (POST /api/v1/imports/validate)
func (h *ServiceHandler) ValidateImport(w http.ResponseWriter, r *http.Request) {
	form, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer form.Close()

	report, err := h.importSrv.ValidateImport(r.Context(), form.upload, form.entityType, form.mapping, form.options)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, http.StatusOK, mappers.ValidationReportToApi(report))
}

// (GET /api/v1/imports)
func (h *ServiceHandler) ListImports(w http.ResponseWriter, r *http.Request) {
	filter, err := jobFilter(r, auth.OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jobs, err := h.importSrv.ListImportJobs(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, http.StatusOK, mappers.ImportJobListToApi(jobs))
}

// (GET /api/v1/imports/{id})
func (h *ServiceHandler) GetImport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, err := h.importSrv.GetImportJob(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, http.StatusOK, mappers.ImportJobToApi(*job))
}

// (POST /api/v1/imports/{id}/process)
func (h *ServiceHandler) ProcessImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger := log.NewDebugLogger("import_handler").WithContext(ctx).Operation("process_import").WithUUID("job_id", id).Build()

	var form api.ProcessImport
	if err := decodeOptionalBody(r, &form); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validator.NewValidator().Struct(form); err != nil {
		badRequest(w, r, "invalid request body", validator.Messages(err))
		return
	}

	job, err := h.importSrv.ProcessImportJob(ctx, id, form.StartRow, form.BatchSize)
	if err != nil {
		logger.Error(err).Log()
		writeError(w, r, err)
		return
	}
	logger.Success().Log()
	reply(w, r, http.StatusAccepted, mappers.ImportJobToApi(*job))
}

// (POST /api/v1/imports/{id}/cancel)
func (h *ServiceHandler) CancelImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger := log.NewDebugLogger("import_handler").WithContext(ctx).Operation("cancel_import").WithUUID("job_id", id).Build()

	job, err := h.importSrv.CancelImportJob(ctx, id)
	if err != nil {
		logger.Error(err).Log()
		writeError(w, r, err)
		return
	}
	logger.Success().Log()
	reply(w, r, http.StatusOK, mappers.ImportJobToApi(*job))
}
