package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Facility Maintenance API",
        "description": "Maintenance request lifecycle: drafts, submission, assignment and status transitions",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Maintenance", "description": "Submitted maintenance requests"},
        {"name": "Drafts", "description": "Unsubmitted requests owned by the caller"},
        {"name": "Users", "description": "Assignable technicians"}
    ],
    "paths": {
        "/maintenance": {
            "get": {
                "tags": ["Maintenance"],
                "summary": "List maintenance requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated statuses"},
                    {"name": "priority", "in": "query", "type": "string", "description": "Comma separated priorities"},
                    {"name": "assignedTo", "in": "query", "type": "string"},
                    {"name": "dateFrom", "in": "query", "type": "string"},
                    {"name": "dateTo", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"},
                    {"name": "sortBy", "in": "query", "type": "string", "enum": ["createdAt", "updatedAt", "priority", "status"]},
                    {"name": "sortOrder", "in": "query", "type": "string", "enum": ["asc", "desc"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Maintenance"],
                "summary": "Submit a maintenance request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MaintenanceForm"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing required fields", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/maintenance/mine": {
            "get": {"tags": ["Maintenance"], "summary": "List the caller's submitted requests", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/maintenance/assigned": {
            "get": {"tags": ["Maintenance"], "summary": "List requests assigned to the caller", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/maintenance/summary": {
            "get": {"tags": ["Maintenance"], "summary": "Count requests by status", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/maintenance/export": {
            "get": {
                "tags": ["Maintenance"],
                "summary": "Export filtered requests",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"]}
                ],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/maintenance/my-drafts": {
            "get": {"tags": ["Drafts"], "summary": "List the caller's drafts", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        },
        "/maintenance/draft": {
            "post": {
                "tags": ["Drafts"],
                "summary": "Save a new draft",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/MaintenanceForm"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/maintenance/draft/{id}": {
            "put": {
                "tags": ["Drafts"],
                "summary": "Overwrite a draft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/MaintenanceForm"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Drafts"],
                "summary": "Discard a draft",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/maintenance/draft/{id}/submit": {
            "post": {
                "tags": ["Drafts"],
                "summary": "Submit a draft",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing required fields", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/maintenance/{id}": {
            "get": {
                "tags": ["Maintenance"],
                "summary": "Get a request",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Maintenance"],
                "summary": "Update or transition a request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MaintenancePatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role may not perform this change"},
                    "409": {"description": "Transition not allowed"}
                }
            },
            "delete": {
                "tags": ["Maintenance"],
                "summary": "Delete a draft",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/maintenance/{id}/history": {
            "get": {
                "tags": ["Maintenance"],
                "summary": "Lifecycle history",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/maintenance/{id}/assign": {
            "put": {
                "tags": ["Maintenance"],
                "summary": "Assign or clear the technician",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"technicianId": {"type": "string", "x-nullable": true}}}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/maintenance/{id}/status": {
            "put": {
                "tags": ["Maintenance"],
                "summary": "Move work forward as the assigned technician",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "required": ["status"], "properties": {"status": {"type": "string"}, "notes": {"type": "string"}}}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/maintenance/{id}/cancel": {
            "post": {
                "tags": ["Maintenance"],
                "summary": "Cancel a request that has not started",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"type": "object", "properties": {"reason": {"type": "string"}}}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/users/technicians": {
            "get": {"tags": ["Users"], "summary": "List assignable technicians", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}
        }
    },
    "definitions": {
        "MaintenanceForm": {
            "type": "object",
            "properties": {
                "assetId": {"type": "string"},
                "assetName": {"type": "string"},
                "assetCode": {"type": "string"},
                "title": {"type": "string", "maxLength": 200},
                "description": {"type": "string"},
                "priority": {"type": "string", "enum": ["low", "medium", "high", "urgent"]},
                "expectedCompletionTime": {"type": "string", "format": "date-time"}
            }
        },
        "MaintenancePatch": {
            "allOf": [
                {"$ref": "#/definitions/MaintenanceForm"},
                {
                    "type": "object",
                    "properties": {
                        "assignedTo": {"type": "string", "x-nullable": true},
                        "status": {"type": "string", "enum": ["draft", "pending", "approved", "in_progress", "completed", "cancelled"]},
                        "notes": {"type": "string"}
                    }
                }
            ]
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
                "status": {"type": "integer"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}}
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
