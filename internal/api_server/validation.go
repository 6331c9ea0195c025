package apiserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3filter"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	api "github.com/openpim/catalog-bulk/api/v1"
)

func oapiErrorHandler(w http.ResponseWriter, message string, statusCode int) {
	// the validator buffers the body, an upload over the limit surfaces as a read failure
	if strings.Contains(message, "request body too large") {
		statusCode = http.StatusRequestEntityTooLarge
	}
	http.Error(w, fmt.Sprintf("API Error: %s", message), statusCode)
}

// requestValidator checks /api/v1 requests against the embedded OpenAPI document.
// Bodies are capped at maxBodySize before validation reads them.
func requestValidator(maxBodySize int64) (func(http.Handler) http.Handler, error) {
	swagger, err := api.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("failed to load swagger spec: %w", err)
	}
	// Skip server name validation
	swagger.Servers = nil

	validate := oapimiddleware.OapiRequestValidatorWithOptions(swagger, &oapimiddleware.Options{
		ErrorHandler: oapiErrorHandler,
		Options: openapi3filter.Options{
			SkipSettingDefaults: true,
		},
	})

	return func(next http.Handler) http.Handler {
		validated := validate(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBodySize > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
			}
			validated.ServeHTTP(w, r)
		})
	}, nil
}
