// Package docs holds the OpenAPI document served under /swagger.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Register a user",
                "parameters": [
                    {"description": "Registration data", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.AuthResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ValidationError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.Message"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log in",
                "parameters": [
                    {"description": "Credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.AuthResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ValidationError"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.Message"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.UserResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.Message"}}
                }
            }
        },
        "/api/tasks": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "List tasks",
                "parameters": [
                    {"type": "string", "description": "Exact status match: Pending, In Progress or Completed", "name": "status", "in": "query"},
                    {"type": "string", "description": "Case-insensitive match on title or description", "name": "search", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Task"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Create a task",
                "parameters": [
                    {"description": "Task", "name": "task", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CreateTaskRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.Task"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ValidationError"}}
                }
            }
        },
        "/api/tasks/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Get a task",
                "parameters": [
                    {"type": "string", "description": "Task ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Task"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.Message"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.Message"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Update a task",
                "parameters": [
                    {"type": "string", "description": "Task ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "task", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.UpdateTaskRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Task"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ValidationError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.Message"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Delete a task",
                "parameters": [
                    {"type": "string", "description": "Task ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Message"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.Message"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.Message"}}
                }
            }
        }
    },
    "definitions": {
        "handler.Message": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "handler.ValidationError": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Validation failed"},
                "errors": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {"field": {"type": "string"}, "message": {"type": "string"}}
                    }
                }
            }
        },
        "handler.RegisterRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "name": {"type": "string", "maxLength": 80},
                "email": {"type": "string"},
                "password": {"type": "string", "maxLength": 72, "minLength": 6}
            }
        },
        "handler.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "maxLength": 72, "minLength": 6}
            }
        },
        "handler.UserResponse": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "name": {"type": "string"}, "email": {"type": "string"}}
        },
        "handler.AuthResponse": {
            "type": "object",
            "properties": {"token": {"type": "string"}, "user": {"$ref": "#/definitions/handler.UserResponse"}}
        },
        "handler.CreateTaskRequest": {
            "type": "object",
            "required": ["title", "dueDate"],
            "properties": {
                "title": {"type": "string", "maxLength": 120, "example": "Test Task"},
                "description": {"type": "string", "maxLength": 2000, "example": "Hello"},
                "status": {"type": "string", "enum": ["Pending", "In Progress", "Completed"], "example": "Pending"},
                "dueDate": {"type": "string", "example": "2025-01-01T00:00:00.000Z"}
            }
        },
        "handler.UpdateTaskRequest": {
            "type": "object",
            "minProperties": 1,
            "properties": {
                "title": {"type": "string", "maxLength": 120},
                "description": {"type": "string", "maxLength": 2000},
                "status": {"type": "string", "enum": ["Pending", "In Progress", "Completed"]},
                "dueDate": {"type": "string"}
            }
        },
        "model.Task": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["Pending", "In Progress", "Completed"]},
                "dueDate": {"type": "string", "format": "date-time"},
                "ownerId": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:5051",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Task Manager API",
	Description:      "API for managing tasks with optional JWT ownership.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
