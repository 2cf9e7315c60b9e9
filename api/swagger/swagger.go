package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academy Roster API",
        "description": "Roster and schedule consistency engine for group teaching sessions",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Sessions", "description": "Class session catalog and weekly grid"},
        {"name": "Enrollments", "description": "Membership lifecycle"},
        {"name": "Rosters", "description": "Roster aggregation and student schedules"}
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
                    "503": {"description": "Database unavailable"}
                }
            }
        },
        "/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List active class sessions",
                "parameters": [
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Create a class session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate class name"}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get one class session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Deactivate a class session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "cascade", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Deactivated"},
                    "409": {"description": "Session still has current members"}
                }
            }
        },
        "/sessions/{id}/schedule": {
            "put": {
                "tags": ["Sessions"],
                "summary": "Replace a session's weekly grid",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated, with advisory conflicts"}
                }
            }
        },
        "/sessions/{id}/name": {
            "put": {
                "tags": ["Sessions"],
                "summary": "Rename a class session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RenameSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Renamed"},
                    "207": {"description": "Renamed with partial membership fan-out"},
                    "409": {"description": "Duplicate class name"}
                }
            }
        },
        "/conflicts/check": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Detect teacher conflicts for a tentative schedule",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConflictCheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a student into a class session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Student already has a current membership"},
                    "412": {"description": "Session unavailable"}
                }
            }
        },
        "/enrollments/{id}/withdraw": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Close a current membership",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/WithdrawRequest"}}
                ],
                "responses": {
                    "200": {"description": "Closed"},
                    "400": {"description": "Malformed date"}
                }
            }
        },
        "/enrollments/{id}/reinstate": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Reopen an ended membership",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Reinstated"},
                    "412": {"description": "Membership is still current"}
                }
            }
        },
        "/enrollments/{id}/transfer": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Transfer a student to another class of the same subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransferRequest"}}
                ],
                "responses": {
                    "200": {"description": "Transferred"},
                    "207": {"description": "Source closed but target not opened"},
                    "412": {"description": "Target session unavailable"}
                }
            }
        },
        "/periods": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List the period grid for a subject",
                "parameters": [
                    {"name": "subject", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roster": {
            "get": {
                "tags": ["Rosters"],
                "summary": "Get one class roster, or the class catalog when class_name is omitted",
                "parameters": [
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "class_name", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/enrollments": {
            "get": {
                "tags": ["Rosters"],
                "summary": "List a student's memberships with session details",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "current", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateSessionRequest": {
            "type": "object",
            "required": ["subject", "class_name"],
            "properties": {
                "subject": {"type": "string"},
                "class_name": {"type": "string"},
                "teacher": {"type": "string"},
                "room": {"type": "string"},
                "note": {"type": "string"},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/Slot"}},
                "slot_teachers": {"type": "object"},
                "slot_rooms": {"type": "object"}
            }
        },
        "UpdateScheduleRequest": {
            "type": "object",
            "properties": {
                "slots": {"type": "array", "items": {"$ref": "#/definitions/Slot"}},
                "slot_teachers": {"type": "object"},
                "slot_rooms": {"type": "object"}
            }
        },
        "RenameSessionRequest": {
            "type": "object",
            "required": ["new_class_name"],
            "properties": {
                "new_class_name": {"type": "string"}
            }
        },
        "ConflictCheckRequest": {
            "type": "object",
            "required": ["slots"],
            "properties": {
                "session_id": {"type": "string"},
                "teacher": {"type": "string"},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/Slot"}}
            }
        },
        "AssignRequest": {
            "type": "object",
            "required": ["student_id", "subject", "class_name"],
            "properties": {
                "student_id": {"type": "string"},
                "subject": {"type": "string"},
                "class_name": {"type": "string"},
                "start_date": {"type": "string", "format": "date", "description": "Defaults to today when omitted"},
                "attendance_days": {"type": "array", "items": {"type": "string"}},
                "assistant": {"type": "boolean"},
                "highlighted": {"type": "boolean"}
            }
        },
        "WithdrawRequest": {
            "type": "object",
            "properties": {
                "end_date": {"type": "string", "format": "date", "description": "Defaults to today when omitted"}
            }
        },
        "TransferRequest": {
            "type": "object",
            "required": ["target_class_name", "start_date"],
            "properties": {
                "target_class_name": {"type": "string"},
                "start_date": {"type": "string", "format": "date"}
            }
        },
        "Slot": {
            "type": "object",
            "properties": {
                "day": {"type": "string"},
                "period_id": {"type": "string"}
            }
        },
        "PeriodInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "label": {"type": "string"},
                "time": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            }
        },
        "RosterSummary": {
            "type": "object",
            "properties": {
                "subject": {"type": "string"},
                "class_name": {"type": "string"},
                "count": {"type": "integer"}
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
                "requestId": {"type": "string"}
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
