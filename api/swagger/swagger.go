package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus DCV API",
        "description": "Schedule expansion and DCV setpoint synchronization pipeline",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Sync", "description": "Pipeline triggers and run bookkeeping"},
        {"name": "Reporting", "description": "Read-only views over pipeline output"}
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
                    "200": {"description": "Ready"}
                }
            }
        },
        "/sync/runs": {
            "get": {
                "tags": ["Sync"],
                "summary": "List recent sync runs for a building",
                "parameters": [
                    {"name": "buildingId", "in": "query", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Sync"],
                "summary": "Run the setpoint synchronization pipeline for a building",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TriggerSyncRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A run is already in progress for the building"}
                }
            }
        },
        "/sync/exams": {
            "post": {
                "tags": ["Sync"],
                "summary": "Expand exam rows into occurrences",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExamSyncRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sync/occurrences": {
            "get": {
                "tags": ["Reporting"],
                "summary": "List expanded occurrences",
                "parameters": [
                    {"name": "building", "in": "query", "type": "string"},
                    {"name": "term", "in": "query", "type": "integer"},
                    {"name": "facilityId", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sync/commands": {
            "get": {
                "tags": ["Reporting"],
                "summary": "List queued setpoint commands",
                "parameters": [
                    {"name": "point", "in": "query", "type": "string"},
                    {"name": "dispatched", "in": "query", "type": "boolean"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sync/commands/{id}": {
            "get": {
                "tags": ["Reporting"],
                "summary": "Get a queued setpoint command",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sync/audits": {
            "get": {
                "tags": ["Reporting"],
                "summary": "List the setpoint audit trail",
                "parameters": [
                    {"name": "zone", "in": "query", "type": "string"},
                    {"name": "facilityId", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sync/audits/export": {
            "get": {
                "tags": ["Reporting"],
                "summary": "Export the setpoint audit trail as CSV",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "zone", "in": "query", "type": "string"},
                    {"name": "facilityId", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV payload"}
                }
            }
        }
    },
    "definitions": {
        "TriggerSyncRequest": {
            "type": "object",
            "properties": {
                "building_id": {"type": "string"},
                "lookahead_days": {"type": "integer"}
            },
            "required": ["building_id"]
        },
        "ExamSyncRequest": {
            "type": "object",
            "properties": {
                "term": {"type": "integer"},
                "facility_prefix": {"type": "string"}
            },
            "required": ["term", "facility_prefix"]
        },
        "SyncResult": {
            "type": "object",
            "properties": {
                "processed": {"type": "integer"},
                "skipped": {"type": "integer"},
                "errors": {"type": "integer"}
            }
        },
        "SyncRun": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "building_id": {"type": "string"},
                "term": {"type": "integer"},
                "window_start": {"type": "string"},
                "window_end": {"type": "string"},
                "status": {"type": "string"},
                "processed": {"type": "integer"},
                "skipped": {"type": "integer"},
                "errors": {"type": "integer"},
                "started_at": {"type": "string"},
                "finished_at": {"type": "string"}
            }
        },
        "Occurrence": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "external_id": {"type": "string"},
                "term": {"type": "integer"},
                "source": {"type": "string"},
                "facility_id": {"type": "string"},
                "building_code": {"type": "string"},
                "room_number": {"type": "string"},
                "campus": {"type": "string"},
                "course_title": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "enrollment_total": {"type": "integer"},
                "updated_at": {"type": "string"}
            }
        },
        "SetpointCommand": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "point_name": {"type": "string"},
                "effective_time": {"type": "string"},
                "value": {"type": "number"},
                "dispatched": {"type": "boolean"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "SetpointAudit": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "zone_code": {"type": "string"},
                "facility_id": {"type": "string"},
                "course_title": {"type": "string"},
                "enrollment_total": {"type": "integer"},
                "value": {"type": "number"},
                "effective_time": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
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
