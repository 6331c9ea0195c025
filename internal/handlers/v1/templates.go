package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openpim/catalog-bulk/internal/service"
	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/internal/tabular"
)

// (GET /api/v1/templates/{entityType})
func (h *ServiceHandler) DownloadTemplate(w http.ResponseWriter, r *http.Request) {
	entityType, err := model.ParseEntityType(chi.URLParam(r, "entityType"))
	if err != nil {
		writeError(w, r, service.NewErrInvalidRequest("%s", err))
		return
	}
	includeSampleData, err := queryBool(r, "includeSampleData", false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sampleRows, err := queryInt(r, "sampleRows", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	dl, err := h.templateSrv.DownloadTemplate(r.Context(), entityType, tabular.Format(r.URL.Query().Get("format")), includeSampleData, sampleRows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serveDownload(w, r, dl)
}
