package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "College CBCS API",
        "description": "Capacity-constrained elective allocation for CBCS cycles",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login and identity"},
        {"name": "CBCS", "description": "Elective cycles, preferences and allocations"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cbcs/cycles": {
            "get": {
                "tags": ["CBCS"],
                "summary": "List allocation cycles",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "batch_id", "in": "query", "type": "string"},
                    {"name": "dept_id", "in": "query", "type": "string"},
                    {"name": "semester_id", "in": "query", "type": "string"},
                    {"name": "complete", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["CBCS"],
                "summary": "Create allocation cycle",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCycleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cbcs/cycles/active": {
            "get": {
                "tags": ["CBCS"],
                "summary": "Get active selection view",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "batch_id", "in": "query", "required": true, "type": "string"},
                    {"name": "dept_id", "in": "query", "required": true, "type": "string"},
                    {"name": "semester_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active cycle", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cbcs/cycles/{id}": {
            "get": {
                "tags": ["CBCS"],
                "summary": "Get cycle detail",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cbcs/cycles/{id}/progress": {
            "get": {
                "tags": ["CBCS"],
                "summary": "Get submission progress",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cbcs/cycles/{id}/finalize": {
            "post": {
                "tags": ["CBCS"],
                "summary": "Finalize a cycle",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Finalized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid configuration", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Run in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cbcs/cycles/{id}/allocations": {
            "get": {
                "tags": ["CBCS"],
                "summary": "Get final allocations",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cbcs/cycles/{id}/allocations/export": {
            "get": {
                "tags": ["CBCS"],
                "summary": "Export final allocations",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cbcs/preferences": {
            "post": {
                "tags": ["CBCS"],
                "summary": "Submit elective preferences",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitPreferencesRequest"}}
                ],
                "responses": {
                    "201": {"description": "Recorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already submitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Submission in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateCycleRequest": {
            "type": "object",
            "required": ["batch_id", "dept_id", "semester_id", "subjects"],
            "properties": {
                "batch_id": {"type": "string"},
                "dept_id": {"type": "string"},
                "semester_id": {"type": "string"},
                "expected_students": {"type": "integer"},
                "allocation_type": {"type": "string"},
                "subjects": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/CreateSubjectRequest"}
                }
            }
        },
        "CreateSubjectRequest": {
            "type": "object",
            "required": ["course_id", "course_code", "course_title", "sections"],
            "properties": {
                "course_id": {"type": "string"},
                "course_code": {"type": "string"},
                "course_title": {"type": "string"},
                "bucket_name": {"type": "string"},
                "credits": {"type": "integer"},
                "expected_students": {"type": "integer"},
                "sections": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/CreateSectionRequest"}
                }
            }
        },
        "CreateSectionRequest": {
            "type": "object",
            "required": ["section_id", "staff_id"],
            "properties": {
                "section_id": {"type": "string"},
                "staff_id": {"type": "string"}
            }
        },
        "SubmitPreferencesRequest": {
            "type": "object",
            "required": ["student_id", "cycle_id", "selections"],
            "properties": {
                "student_id": {"type": "string"},
                "cycle_id": {"type": "string"},
                "selections": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/SelectionRequest"}
                }
            }
        },
        "SelectionRequest": {
            "type": "object",
            "required": ["course_id", "section_id", "staff_id"],
            "properties": {
                "course_id": {"type": "string"},
                "section_id": {"type": "string"},
                "staff_id": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
