package v1

import (
	"net/http"

	api "github.com/openpim/catalog-bulk/api/v1"
	"github.com/openpim/catalog-bulk/internal/auth"
	"github.com/openpim/catalog-bulk/internal/handlers/v1/mappers"
	"github.com/openpim/catalog-bulk/internal/handlers/validator"
	"github.com/openpim/catalog-bulk/internal/service"
	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/pkg/log"
)

// (POST /api/v1/mappings)
func (h *ServiceHandler) CreateMapping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("mapping_handler").WithContext(ctx).Operation("create_mapping").Build()

	var form api.MappingTemplateCreate
	if err := decodeBody(r, &form); err != nil {
		writeError(w, r, err)
		return
	}
	v := validator.NewValidator()
	v.Register(validator.NewMappingValidationRules()...)
	if err := v.Struct(form); err != nil {
		badRequest(w, r, "invalid request body", validator.Messages(err))
		return
	}

	tpl, err := h.mappingSrv.CreateMapping(ctx, mappers.MappingFormApi(form, auth.OwnerFromContext(ctx)))
	if err != nil {
		logger.Error(err).Log()
		writeError(w, r, err)
		return
	}
	logger.Success().WithUUID("id", tpl.ID).Log()
	reply(w, r, http.StatusCreated, mappers.MappingTemplateToApi(*tpl))
}

// (GET /api/v1/mappings)
func (h *ServiceHandler) ListMappings(w http.ResponseWriter, r *http.Request) {
	filter := service.MappingFilter{Owner: auth.OwnerFromContext(r.Context())}
	if raw := r.URL.Query().Get("entityType"); raw != "" {
		t, err := model.ParseEntityType(raw)
		if err != nil {
			writeError(w, r, service.NewErrInvalidRequest("%s", err))
			return
		}
		filter.EntityType = t
	}

	tpls, err := h.mappingSrv.ListMappings(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, http.StatusOK, mappers.MappingTemplateListToApi(tpls))
}

// (GET /api/v1/mappings/{id})
func (h *ServiceHandler) GetMapping(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tpl, err := h.mappingSrv.GetMapping(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, http.StatusOK, mappers.MappingTemplateToApi(*tpl))
}

// (PUT /api/v1/mappings/{id})
func (h *ServiceHandler) UpdateMapping(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var form api.MappingTemplateUpdate
	if err := decodeBody(r, &form); err != nil {
		writeError(w, r, err)
		return
	}
	v := validator.NewValidator()
	v.Register(validator.NewMappingValidationRules()...)
	if err := v.Struct(form); err != nil {
		badRequest(w, r, "invalid request body", validator.Messages(err))
		return
	}

	tpl, err := h.mappingSrv.UpdateMapping(r.Context(), id, mappers.MappingUpdateFormApi(form))
	if err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, http.StatusOK, mappers.MappingTemplateToApi(*tpl))
}

// (DELETE /api/v1/mappings/{id})
func (h *ServiceHandler) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.mappingSrv.DeleteMapping(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
