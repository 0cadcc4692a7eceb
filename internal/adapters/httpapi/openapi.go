package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/Guilhem-Bonnet/series-notifier/internal/httpjson"
)

// handleOpenAPI décrit l'API HTTP (OpenAPI 3, construit à la main).
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	jsonOK := func(schemaRef string) map[string]any {
		return map[string]any{
			"description": "OK",
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": schemaRef},
				},
			},
		}
	}
	jsonErr := map[string]any{
		"description": "Error",
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/Error"},
			},
		},
	}
	formatParam := map[string]any{
		"name":   "format",
		"in":     "query",
		"schema": map[string]any{"type": "string", "enum": []any{"json", "text"}},
	}

	windows := make([]any, 0, len(domain.Windows()))
	for _, w := range domain.Windows() {
		windows = append(windows, string(w))
	}
	entry := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"date": map[string]any{"type": "string", "format": "date-time"},
		},
	}

	spec := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "series-notifier API",
			"version": "v1",
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"Error": map[string]any{
					"type":       "object",
					"properties": map[string]any{"error": map[string]any{"type": "string"}},
					"required":   []any{"error"},
				},
				"Digest": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"window":   map[string]any{"type": "string", "enum": windows},
						"today":    map[string]any{"type": "string", "format": "date-time"},
						"released": map[string]any{"type": "array", "items": entry},
						"upcoming": map[string]any{"type": "array", "items": entry},
						"text":     map[string]any{"type": "string"},
					},
				},
				"Health": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"status":        map[string]any{"type": "string"},
						"deployment":    map[string]any{"type": "string", "enum": []any{string(domain.DeploymentSingleStore), string(domain.DeploymentTwoStore)}},
						"reconciling":   map[string]any{"type": "boolean"},
						"lastReconcile": map[string]any{"type": "string", "format": "date-time"},
						"lastFailures":  map[string]any{"type": "integer"},
					},
				},
				"Wanted": map[string]any{
					"type":       "object",
					"properties": map[string]any{"text": map[string]any{"type": "string"}},
				},
				"ReconcileReport": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"deployment":  map[string]any{"type": "string", "enum": []any{string(domain.DeploymentSingleStore), string(domain.DeploymentTwoStore)}},
						"writeBack":   map[string]any{"type": "string", "enum": []any{string(domain.WriteBackPatch), string(domain.WriteBackReimport)}},
						"startedAt":   map[string]any{"type": "string", "format": "date-time"},
						"finishedAt":  map[string]any{"type": "string", "format": "date-time"},
						"today":       map[string]any{"type": "string", "format": "date"},
						"fetched":     map[string]any{"type": "integer"},
						"merged":      map[string]any{"type": "integer"},
						"inserted":    map[string]any{"type": "integer"},
						"corrected":   map[string]any{"type": "integer"},
						"writtenBack": map[string]any{"type": "integer"},
						"deleted":     map[string]any{"type": "integer"},
						"failures":    map[string]any{"type": "integer"},
					},
				},
			},
		},
		"paths": map[string]any{
			"/api/v1/health": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK("#/components/schemas/Health")}},
			},
			"/api/v1/version": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/events": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "SSE"}}},
			},
			"/api/v1/digest/{window}": map[string]any{
				"get": map[string]any{
					"parameters": []any{
						map[string]any{"name": "window", "in": "path", "required": true, "schema": map[string]any{"type": "string", "enum": windows}},
						formatParam,
					},
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Digest"),
						"400": jsonErr,
						"502": jsonErr,
					},
				},
			},
			"/api/v1/wanted": map[string]any{
				"get": map[string]any{
					"parameters": []any{formatParam},
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Wanted"),
						"502": jsonErr,
					},
				},
			},
			"/api/v1/reconcile": map[string]any{
				"post": map[string]any{
					"parameters": []any{
						map[string]any{"name": "rebuild", "in": "query", "schema": map[string]any{"type": "boolean"}},
					},
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/ReconcileReport"),
						"409": jsonErr,
						"502": jsonErr,
					},
				},
			},
			"/api/v1/reconcile/last": map[string]any{
				"get": map[string]any{
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/ReconcileReport"),
						"404": jsonErr,
					},
				},
			},
		},
	}

	httpjson.Write(w, http.StatusOK, spec)
}
