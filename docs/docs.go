// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/api/main.go` after changing handler
// annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Create an account",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/credentialsRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/userResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Exchange credentials for a bearer token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/credentialsRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/loginResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/habits": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["habits"],
                "summary": "List active habits",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Habit"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["habits"],
                "summary": "Create a habit",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/domain.Habit"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Habit"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/habits/sync": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["habits"],
                "summary": "Habits changed since last_sync, soft deletes included",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "RFC3339 timestamp", "name": "last_sync", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/habits/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["habits"],
                "summary": "Partially update a habit (optimistic locking on version)",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/domain.Habit"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Habit"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["habits"],
                "summary": "Soft-delete a habit",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorResponse"}}}
            }
        },
        "/entries": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["entries"],
                "summary": "Entries of one habit in [from, to], last 30 days by default",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "habit_id", "in": "query", "required": true},
                    {"type": "string", "description": "RFC3339 timestamp", "name": "from", "in": "query"},
                    {"type": "string", "description": "RFC3339 timestamp", "name": "to", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.HabitEntry"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["entries"],
                "summary": "Log a completion for a habit",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/domain.HabitEntry"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.HabitEntry"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/entries/sync": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["entries"],
                "summary": "Entries changed since a timestamp, soft deletes included",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "RFC3339 timestamp", "name": "since", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/entries/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["entries"],
                "summary": "Update an entry (optimistic locking on version)",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/domain.HabitEntry"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.HabitEntry"}}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errorResponse"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["entries"],
                "summary": "Soft-delete an entry",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/stats/weekly": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["stats"],
                "summary": "Per-habit progress over a window, the last 7 days by default",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "YYYY-MM-DD", "name": "start_date", "in": "query"},
                    {"type": "string", "description": "YYYY-MM-DD", "name": "end_date", "in": "query"},
                    {"type": "string", "description": "IANA time zone", "name": "tz", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}}}
            }
        },
        "/stats/dashboard": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["stats"],
                "summary": "Daily completion rates, streaks and insights",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "7, 30, 90 or all", "name": "range", "in": "query"},
                    {"type": "string", "description": "YYYY-MM-DD, overrides range", "name": "start_date", "in": "query"},
                    {"type": "string", "description": "YYYY-MM-DD, overrides range", "name": "end_date", "in": "query"},
                    {"type": "string", "description": "IANA time zone", "name": "tz", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}}}
            }
        },
        "/stats/insights": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["stats"],
                "summary": "Insights only, same parameters as the dashboard",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "7, 30, 90 or all", "name": "range", "in": "query"},
                    {"type": "string", "description": "IANA time zone", "name": "tz", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/stats/habits/{id}/streak": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["stats"],
                "summary": "Current and longest streak of one habit",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "IANA time zone", "name": "tz", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorResponse"}}}
            }
        }
    },
    "definitions": {
        "credentialsRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string", "minLength": 8}}
        },
        "userResponse": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "email": {"type": "string"}}
        },
        "loginResponse": {
            "type": "object",
            "properties": {"token": {"type": "string"}, "user": {"$ref": "#/definitions/userResponse"}}
        },
        "errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "message": {"type": "string"}}
        },
        "domain.Habit": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "color": {"type": "string"},
                "icon": {"type": "string"},
                "type": {"type": "string"},
                "reminder_time": {"type": "string"},
                "frequency_type": {"type": "string"},
                "weekdays": {"type": "array", "items": {"type": "integer"}},
                "interval": {"type": "integer"},
                "target_value": {"type": "integer"},
                "unit": {"type": "string"},
                "current_streak": {"type": "integer"},
                "longest_streak": {"type": "integer"},
                "version": {"type": "integer"}
            }
        },
        "domain.HabitEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "habit_id": {"type": "string"},
                "completion_date": {"type": "string"},
                "value": {"type": "integer"},
                "notes": {"type": "string"},
                "version": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Kanso Dashboard API",
	Description:      "Habit tracking with schedule-aware completion stats, streaks and insights.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
