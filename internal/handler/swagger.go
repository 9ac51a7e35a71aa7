package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dafibh/bazaar/bazaar-backend/docs"
	"github.com/labstack/echo/v4"
	"github.com/swaggo/swag"
)

// OpenAPI3Spec represents an OpenAPI 3.0 spec structure
type OpenAPI3Spec struct {
	OpenAPI    string                 `json:"openapi"`
	Info       map[string]interface{} `json:"info"`
	Servers    []Server               `json:"servers"`
	Paths      map[string]interface{} `json:"paths"`
	Components map[string]interface{} `json:"components,omitempty"`
}

// Server represents an OpenAPI 3.0 server
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// DefaultServers lists the environments the API is published to
func DefaultServers() []Server {
	return []Server{
		{URL: "http://localhost:8080/api/v1", Description: "Local Development"},
		{URL: "https://bazaarapi.ghadafi.com/api/v1", Description: "Production"},
	}
}

func rewriteRef(ref string) string {
	return strings.Replace(ref, "#/definitions/", "#/components/schemas/", 1)
}

// transformRefs recursively rewrites $ref targets and converts Swagger 2.0
// parameters to OpenAPI 3.0 format
func transformRefs(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		if _, hasIn := v["in"]; hasIn {
			if _, hasName := v["name"]; hasName {
				return transformParameter(v)
			}
		}

		result := make(map[string]interface{}, len(v))
		for key, value := range v {
			if ref, ok := value.(string); ok && key == "$ref" {
				result[key] = rewriteRef(ref)
				continue
			}
			result[key] = transformRefs(value)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = transformRefs(item)
		}
		return result
	default:
		return data
	}
}

// transformParameter moves type fields of a non-body parameter into a schema object
func transformParameter(param map[string]interface{}) map[string]interface{} {
	if param["in"] == "body" {
		return param
	}

	result := make(map[string]interface{})
	for _, field := range []string{"name", "in", "description", "required"} {
		if val, ok := param[field]; ok {
			result[field] = val
		}
	}

	schema := make(map[string]interface{})
	for _, field := range []string{"type", "format", "enum", "default", "minimum", "maximum", "items"} {
		if val, ok := param[field]; ok {
			schema[field] = transformRefs(val)
		}
	}
	if len(schema) > 0 {
		result["schema"] = schema
	}
	return result
}

// liftBodyParameters replaces Swagger 2.0 body parameters with an OpenAPI 3.0 requestBody
func liftBodyParameters(paths map[string]interface{}) {
	for _, item := range paths {
		ops, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		for _, op := range ops {
			operation, ok := op.(map[string]interface{})
			if !ok {
				continue
			}
			params, ok := operation["parameters"].([]interface{})
			if !ok {
				continue
			}

			kept := params[:0]
			for _, p := range params {
				param, ok := p.(map[string]interface{})
				if !ok || param["in"] != "body" {
					kept = append(kept, p)
					continue
				}
				operation["requestBody"] = map[string]interface{}{
					"description": param["description"],
					"required":    param["required"],
					"content": map[string]interface{}{
						"application/json": map[string]interface{}{
							"schema": transformRefs(param["schema"]),
						},
					},
				}
			}
			if len(kept) == 0 {
				delete(operation, "parameters")
			} else {
				operation["parameters"] = kept
			}
		}
	}
}

// NewOpenAPI3Handler serves the swagger spec converted to OpenAPI 3.0 with the given servers
func NewOpenAPI3Handler(servers []Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
		if err != nil {
			return NewInternalError(c, "Failed to read swagger doc")
		}

		var swagger2 map[string]interface{}
		if err := json.Unmarshal([]byte(doc), &swagger2); err != nil {
			return NewInternalError(c, "Failed to parse swagger doc")
		}

		info, _ := swagger2["info"].(map[string]interface{})

		paths, _ := swagger2["paths"].(map[string]interface{})
		transformedPaths := transformRefs(paths).(map[string]interface{})
		liftBodyParameters(transformedPaths)

		components := make(map[string]interface{})
		if secDefs, ok := swagger2["securityDefinitions"].(map[string]interface{}); ok {
			components["securitySchemes"] = secDefs
		}
		if definitions, ok := swagger2["definitions"].(map[string]interface{}); ok {
			components["schemas"] = transformRefs(definitions)
		}

		return c.JSON(http.StatusOK, OpenAPI3Spec{
			OpenAPI:    "3.0.3",
			Info:       info,
			Servers:    servers,
			Paths:      transformedPaths,
			Components: components,
		})
	}
}
