package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Infodoc API",
        "description": "Document portal with categorized uploads and a server-side PDF flipbook",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {"name": "Documents", "description": "Categorized document uploads and listings"},
        {"name": "Viewer", "description": "Flipbook sessions over rasterized PDF pages"},
        {"name": "System", "description": "Health and runtime metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["System"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "tags": ["System"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/view/{id}": {
            "get": {
                "tags": ["Viewer"],
                "summary": "Open a document in the matching viewer",
                "description": "PDF documents open a flipbook session; office files redirect to the external office viewer.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "widget", "in": "query", "type": "boolean", "description": "Wait for flip confirmations from the page-flip widget"}
                ],
                "responses": {
                    "201": {"description": "Session created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "302": {"description": "Redirect to the office viewer"},
                    "404": {"description": "Document not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/home": {
            "get": {
                "tags": ["Documents"],
                "summary": "Greeting, category counts and recent uploads",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/categories": {
            "get": {
                "tags": ["Documents"],
                "summary": "List document categories",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/categories/{slug}/documents": {
            "get": {
                "tags": ["Documents"],
                "summary": "List documents in a category",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "month", "in": "query", "type": "string", "description": "1-12 or all"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown category", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/categories/{slug}/export": {
            "get": {
                "tags": ["Documents"],
                "summary": "Export a category index",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "Attachment"}}
            }
        },
        "/api/v1/documents": {
            "post": {
                "tags": ["Documents"],
                "summary": "Upload a document",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "title", "in": "formData", "required": true, "type": "string"},
                    {"name": "category", "in": "formData", "required": true, "type": "string"},
                    {"name": "month", "in": "formData", "required": true, "type": "integer"},
                    {"name": "year", "in": "formData", "required": true, "type": "integer"},
                    {"name": "description", "in": "formData", "type": "string"},
                    {"name": "secretKey", "in": "formData", "type": "string"},
                    {"name": "X-Secret-Key", "in": "header", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Wrong secret", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/documents/{id}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Describe a document",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Documents"],
                "summary": "Delete a document and its stored file",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "X-Secret-Key", "in": "header", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Deleted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Wrong secret", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/documents/{id}/download": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download through a signed token",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "File stream"}}
            }
        },
        "/api/v1/viewer/sessions/{sid}": {
            "get": {
                "tags": ["Viewer"],
                "summary": "Viewer state, long-polled when since is given",
                "parameters": [
                    {"name": "sid", "in": "path", "required": true, "type": "string"},
                    {"name": "since", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Viewer"],
                "summary": "Close a viewer session",
                "parameters": [{"name": "sid", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Closed"}}
            }
        },
        "/api/v1/viewer/sessions/{sid}/pages/{n}": {
            "get": {
                "tags": ["Viewer"],
                "summary": "Rendered page image",
                "produces": ["image/png"],
                "parameters": [
                    {"name": "sid", "in": "path", "required": true, "type": "string"},
                    {"name": "n", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "PNG image"},
                    "409": {"description": "Document still loading", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/viewer/sessions/{sid}/{command}": {
            "post": {
                "tags": ["Viewer"],
                "summary": "Navigate: next, prev, retry, jump or flip",
                "parameters": [
                    {"name": "sid", "in": "path", "required": true, "type": "string"},
                    {"name": "command", "in": "path", "required": true, "type": "string", "enum": ["next", "prev", "retry", "jump", "flip"]},
                    {"name": "body", "in": "body", "schema": {"$ref": "#/definitions/ViewerIndexRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/system/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Runtime metrics digest",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "ViewerIndexRequest": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "shown": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
