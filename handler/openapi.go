// OpenAPI 3.0 specification for the fetch engine's demo HTTP surface,
// embedded as a Go literal and served at /openapi.json and /docs
// (Swagger UI). Condensed from the gateway's OpenAPISpec/
// OpenAPIHandler/SwaggerUIHandler pattern down to the fetch engine's
// own routes instead of the full LLM-proxy surface.

package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the fetch engine.
func OpenAPISpec() map[string]interface{} {
	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Fetch Engine API",
			"description": "HTTP request scheduler and validating response cache",
			"version":     "1.0.0",
		},
		"servers": []map[string]interface{}{
			{"url": "http://localhost:8080", "description": "Local development"},
		},
		"paths": openAPIPaths(),
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"BearerAuth": map[string]interface{}{
					"type":   "http",
					"scheme": "bearer",
				},
			},
			"schemas": openAPISchemas(),
		},
		"tags": []map[string]interface{}{
			{"name": "Fetch", "description": "Submit operations to the priority scheduler"},
			{"name": "Admin", "description": "Cache invalidation, budget reset, group cancel"},
			{"name": "Health", "description": "Service health checks"},
		},
	}
}

func openAPIPaths() map[string]interface{} {
	return map[string]interface{}{
		"/v1/fetch": map[string]interface{}{
			"post": map[string]interface{}{
				"tags":        []string{"Fetch"},
				"summary":     "Schedule a fetch operation",
				"operationId": "fetch",
				"requestBody": map[string]interface{}{
					"required": true,
					"content": map[string]interface{}{
						"application/json": map[string]interface{}{
							"schema": map[string]interface{}{"$ref": "#/components/schemas/FetchRequest"},
						},
					},
				},
				"responses": map[string]interface{}{
					"200": map[string]interface{}{
						"description": "Terminal fetch result",
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{"$ref": "#/components/schemas/FetchResponse"},
							},
						},
					},
					"429": map[string]interface{}{"description": "Byte budget exhausted or rate limited"},
					"502": map[string]interface{}{"description": "Transport error after retries exhausted"},
				},
			},
		},
		"/v1/cache/invalidate": map[string]interface{}{
			"post": map[string]interface{}{
				"tags":        []string{"Admin"},
				"summary":     "Invalidate a cached entry",
				"security":    []map[string]interface{}{{"BearerAuth": []string{}}},
				"responses":   map[string]interface{}{"200": map[string]interface{}{"description": "Invalidated"}},
			},
		},
		"/v1/cache/stats": map[string]interface{}{
			"get": map[string]interface{}{
				"tags":      []string{"Admin"},
				"summary":   "Analytics pipeline throughput stats",
				"responses": map[string]interface{}{"200": map[string]interface{}{"description": "Stats"}},
			},
		},
		"/v1/budget/reset": map[string]interface{}{
			"post": map[string]interface{}{
				"tags":      []string{"Admin"},
				"summary":   "Reset the scheduler's byte budget",
				"security":  []map[string]interface{}{{"BearerAuth": []string{}}},
				"responses": map[string]interface{}{"200": map[string]interface{}{"description": "Reset"}},
			},
		},
		"/v1/cancel-all": map[string]interface{}{
			"post": map[string]interface{}{
				"tags":      []string{"Admin"},
				"summary":   "Broadcast group cancellation to all in-flight operations",
				"security":  []map[string]interface{}{{"BearerAuth": []string{}}},
				"responses": map[string]interface{}{"200": map[string]interface{}{"description": "Cancelled"}},
			},
		},
		"/healthz": map[string]interface{}{
			"get": map[string]interface{}{"tags": []string{"Health"}, "summary": "Liveness probe"},
		},
		"/ready": map[string]interface{}{
			"get": map[string]interface{}{"tags": []string{"Health"}, "summary": "Readiness probe"},
		},
	}
}

func openAPISchemas() map[string]interface{} {
	return map[string]interface{}{
		"FetchRequest": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"method":       map[string]interface{}{"type": "string", "default": "GET"},
				"url":          map[string]interface{}{"type": "string"},
				"headers":      map[string]interface{}{"type": "object"},
				"priority":     map[string]interface{}{"type": "integer"},
				"headers_only": map[string]interface{}{"type": "boolean"},
			},
			"required": []string{"url"},
		},
		"FetchResponse": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"status_code": map[string]interface{}{"type": "integer"},
				"headers":     map[string]interface{}{"type": "object"},
				"body":        map[string]interface{}{"type": "string"},
				"bytes_read":  map[string]interface{}{"type": "integer"},
			},
		},
		"Error": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"error": map[string]interface{}{"type": "string"},
			},
		},
	}
}

// OpenAPIHandler serves the OpenAPI spec at /openapi.json.
func OpenAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := OpenAPISpec()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

// SwaggerUIHandler serves a minimal Swagger UI page.
func SwaggerUIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Fetch Engine API</title>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
    SwaggerUI({
        url: '/openapi.json',
        dom_id: '#swagger-ui',
        deepLinking: true,
        presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
        layout: "BaseLayout"
    });
    </script>
</body>
</html>`
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}
}
