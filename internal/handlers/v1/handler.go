package v1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	api "github.com/openpim/catalog-bulk/api/v1"
	"github.com/openpim/catalog-bulk/internal/service"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

// multipartMemory is what ParseMultipartForm keeps in memory, larger files spill to disk.
const multipartMemory = 8 << 20

type ServiceHandler struct {
	importSrv     *service.ImportService
	exportSrv     *service.ExportService
	templateSrv   *service.TemplateService
	mappingSrv    *service.MappingService
	maxUploadSize int64
}

func NewServiceHandler(
	importService *service.ImportService,
	exportService *service.ExportService,
	templateService *service.TemplateService,
	mappingService *service.MappingService,
	maxUploadSize int64,
) *ServiceHandler {
	return &ServiceHandler{
		importSrv:     importService,
		exportSrv:     exportService,
		templateSrv:   templateService,
		mappingSrv:    mappingService,
		maxUploadSize: maxUploadSize,
	}
}

// Register mounts the /api/v1 routes on router.
func (h *ServiceHandler) Register(router chi.Router) {
	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/imports", func(r chi.Router) {
			r.Post("/", h.CreateImport)
			r.Get("/", h.ListImports)
			r.Post("/preview", h.PreviewImport)
			r.Post("/validate", h.ValidateImport)
			r.Get("/{id}", h.GetImport)
			r.Post("/{id}/process", h.ProcessImport)
			r.Post("/{id}/cancel", h.CancelImport)
		})
		r.Route("/exports", func(r chi.Router) {
			r.Post("/", h.CreateExport)
			r.Get("/", h.ListExports)
			r.Get("/{id}", h.GetExport)
			r.Post("/{id}/cancel", h.CancelExport)
			r.Get("/{id}/download", h.DownloadExport)
		})
		r.Get("/templates/{entityType}", h.DownloadTemplate)
		r.Route("/mappings", func(r chi.Router) {
			r.Post("/", h.CreateMapping)
			r.Get("/", h.ListMappings)
			r.Get("/{id}", h.GetMapping)
			r.Put("/{id}", h.UpdateMapping)
			r.Delete("/{id}", h.DeleteMapping)
		})
	})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, service.NewErrInvalidRequest("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return service.NewErrInvalidRequest("invalid request body: %v", err)
	}
	return nil
}

// decodeOptionalBody accepts an empty body and leaves v untouched.
func decodeOptionalBody(r *http.Request, v any) error {
	err := render.DecodeJSON(r.Body, v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return service.NewErrInvalidRequest("invalid request body: %v", err)
}

// formJSON decodes an optional JSON encoded multipart field.
func formJSON(r *http.Request, field string, v any) error {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return service.NewErrInvalidRequest("invalid %s: %v", field, err)
	}
	return nil
}

// queryInt binds an optional form style query parameter, def is kept when it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	if r.URL.Query().Get(name) == "" {
		return def, nil
	}
	n := def
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &n); err != nil || n < 0 {
		return 0, service.NewErrInvalidRequest("%s must be a non-negative integer, got %q", name, r.URL.Query().Get(name))
	}
	return n, nil
}

func queryBool(r *http.Request, name string, def bool) (bool, error) {
	if r.URL.Query().Get(name) == "" {
		return def, nil
	}
	b := def
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &b); err != nil {
		return false, service.NewErrInvalidRequest("%s must be a boolean, got %q", name, r.URL.Query().Get(name))
	}
	return b, nil
}

// jobFilter reads entityType, status (comma separated), limit and offset.
func jobFilter(r *http.Request, owner string) (service.JobFilter, error) {
	filter := service.JobFilter{Owner: owner}
	q := r.URL.Query()

	if raw := q.Get("entityType"); raw != "" {
		t, err := model.ParseEntityType(raw)
		if err != nil {
			return filter, service.NewErrInvalidRequest("%s", err)
		}
		filter.EntityType = t
	}
	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st, err := model.ParseJobStatus(strings.ToUpper(strings.TrimSpace(s)))
			if err != nil {
				return filter, service.NewErrInvalidRequest("%s", err)
			}
			filter.Status = append(filter.Status, st)
		}
	}
	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}

func reply(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// Health is the liveness probe.
func Health(w http.ResponseWriter, r *http.Request) {
	reply(w, r, http.StatusOK, api.Health{Status: "ok"})
}
