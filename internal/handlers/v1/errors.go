package v1

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	api "github.com/openpim/catalog-bulk/api/v1"
	"github.com/openpim/catalog-bulk/internal/service"
	"github.com/openpim/catalog-bulk/pkg/requestid"
)

// writeError maps service errors to status codes; anything untyped is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidMapping *service.ErrInvalidMapping
		invalidRequest *service.ErrInvalidRequest
		fileFormat     *service.ErrFileFormat
		notFound       *service.ErrResourceNotFound
		jobState       *service.ErrJobState
		duplicate      *service.ErrDuplicate
		expired        *service.ErrExportExpired
		missing        *service.ErrArtifactMissing
		tooLarge       *http.MaxBytesError
	)

	body := api.Error{Message: err.Error()}
	if id := requestid.FromRequest(r); id != "" {
		body.RequestId = &id
	}

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &invalidMapping):
		status = http.StatusBadRequest
		body.Reasons = invalidMapping.Reasons
	case errors.As(err, &invalidRequest), errors.As(err, &fileFormat):
		status = http.StatusBadRequest
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &jobState):
		status = http.StatusConflict
		state := string(jobState.State)
		body.State = &state
	case errors.As(err, &duplicate):
		status = http.StatusConflict
	case errors.As(err, &expired), errors.As(err, &missing):
		status = http.StatusGone
	default:
		zap.S().Named("handler").Errorw("request failed", "path", r.URL.Path, "error", err)
	}

	reply(w, r, status, body)
}

func badRequest(w http.ResponseWriter, r *http.Request, message string, reasons []string) {
	body := api.Error{Message: message, Reasons: reasons}
	if id := requestid.FromRequest(r); id != "" {
		body.RequestId = &id
	}
	reply(w, r, http.StatusBadRequest, body)
}
