package v1

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiDocument []byte

// GetSwagger loads and validates the embedded OpenAPI document of the v1 API.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(openapiDocument)
	if err != nil {
		return nil, fmt.Errorf("loading openapi document: %w", err)
	}
	if err := swagger.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return swagger, nil
}
