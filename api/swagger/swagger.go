package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SIS Rollover API",
        "description": "Academic-year rollover and enrollment lifecycle engine",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Rollover", "description": "Preview, check and execute the year rollover"},
        {"name": "Enrollments", "description": "Student enrollment lifecycle"},
        {"name": "Grades", "description": "Grade progression graph"},
        {"name": "AcademicYears", "description": "Academic year records and pointers"},
        {"name": "Exports", "description": "Downloadable statistics reports"}
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
        "/api/v1/rollover/preview": {
            "post": {
                "tags": ["Rollover"],
                "summary": "Preview rollover outcomes",
                "description": "Read-only forecast; no rows are created or modified.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RolloverRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown year", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/rollover/check": {
            "post": {
                "tags": ["Rollover"],
                "summary": "Check rollover prerequisites",
                "description": "Warnings never block execution; a non-empty error_message does.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RolloverRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/rollover/execute": {
            "post": {
                "tags": ["Rollover"],
                "summary": "Execute the rollover batch",
                "description": "Re-runs the prerequisite check and applies the batch atomically.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExecuteRolloverRequest"}}
                ],
                "responses": {
                    "200": {"description": "Executed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Prerequisites failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already executed or in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/enrollment": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Create an enrollment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateEnrollmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown enrollment code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate enrollment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/enrollment/{id}": {
            "patch": {
                "tags": ["Enrollments"],
                "summary": "Patch the open enrollment row",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateEnrollmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Row is closed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/enrollment/student/{id}/current": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Get the student's open enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No open enrollment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/enrollment/student/{id}/history": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Get the student's enrollment history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "include_current", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/enrollment/student/{id}/rollover-status": {
            "patch": {
                "tags": ["Enrollments"],
                "summary": "Override the student's rollover status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetStudentRolloverStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/enrollment/bulk-rollover-status": {
            "patch": {
                "tags": ["Enrollments"],
                "summary": "Override the rollover status for a cohort",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkRolloverStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/enrollment/statistics": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Enrollment statistics for one year",
                "parameters": [
                    {"name": "school_id", "in": "query", "required": true, "type": "string"},
                    {"name": "academic_year_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/enrollment/statistics/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the enrollment statistics report",
                "parameters": [
                    {"name": "school_id", "in": "query", "required": true, "type": "string"},
                    {"name": "academic_year_id", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/api/v1/enrollment/by-status": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List open enrollments by rollover status",
                "parameters": [
                    {"name": "school_id", "in": "query", "required": true, "type": "string"},
                    {"name": "academic_year_id", "in": "query", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/grades/progression": {
            "get": {
                "tags": ["Grades"],
                "summary": "Grade progression graph",
                "parameters": [
                    {"name": "school_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Graph misconfigured", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/academic-years": {
            "get": {
                "tags": ["AcademicYears"],
                "summary": "List academic years",
                "parameters": [
                    {"name": "school_id", "in": "query", "required": true, "type": "string"},
                    {"name": "is_current", "in": "query", "type": "boolean"},
                    {"name": "is_next", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["AcademicYears"],
                "summary": "Create an academic year",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAcademicYearRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/academic-years/{id}/set-current": {
            "put": {
                "tags": ["AcademicYears"],
                "summary": "Point the current-year flag at this year",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "school_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/academic-years/{id}/set-next": {
            "put": {
                "tags": ["AcademicYears"],
                "summary": "Point the next-year flag at this year",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "school_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RolloverRequest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "current_year_id": {"type": "string"},
                "next_year_id": {"type": "string"}
            },
            "required": ["school_id", "current_year_id", "next_year_id"]
        },
        "ExecuteRolloverRequest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "current_year_id": {"type": "string"},
                "next_year_id": {"type": "string"},
                "options": {"$ref": "#/definitions/RolloverOptions"}
            },
            "required": ["school_id", "current_year_id", "next_year_id"]
        },
        "RolloverOptions": {
            "type": "object",
            "properties": {
                "marking_periods": {"type": "boolean"},
                "teachers": {"type": "boolean"}
            }
        },
        "RolloverResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"type": "string"},
                "warnings": {"type": "array", "items": {"type": "string"}},
                "processed": {"type": "integer"},
                "promoted": {"type": "integer"},
                "retained": {"type": "integer"},
                "graduated": {"type": "integer"},
                "dropped": {"type": "integer"},
                "transferred": {"type": "integer"},
                "duration_ms": {"type": "integer"}
            }
        },
        "CreateEnrollmentRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "academic_year_id": {"type": "string"},
                "school_id": {"type": "string"},
                "enrollment_code": {"type": "string"},
                "grade_level_id": {"type": "string"},
                "section_id": {"type": "string"},
                "start_date": {"type": "string"}
            },
            "required": ["student_id", "academic_year_id", "school_id", "enrollment_code"]
        },
        "UpdateEnrollmentRequest": {
            "type": "object",
            "properties": {
                "grade_level_id": {"type": "string"},
                "section_id": {"type": "string"},
                "rollover_notes": {"type": "string"}
            }
        },
        "SetStudentRolloverStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "next_grade_id": {"type": "string"},
                "notes": {"type": "string"}
            },
            "required": ["status"]
        },
        "BulkRolloverStatusRequest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "academic_year_id": {"type": "string"},
                "status": {"type": "string"},
                "next_grade_id": {"type": "string"},
                "filters": {"$ref": "#/definitions/BulkRolloverFilter"}
            },
            "required": ["school_id", "academic_year_id", "status"]
        },
        "BulkRolloverFilter": {
            "type": "object",
            "properties": {
                "grade_level_id": {"type": "string"},
                "section_id": {"type": "string"},
                "student_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "CreateAcademicYearRequest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "name": {"type": "string"},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"},
                "is_next": {"type": "boolean"}
            },
            "required": ["school_id", "name", "start_date"]
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
                "pagination": {"type": "object"},
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
