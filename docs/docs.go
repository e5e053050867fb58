// Package docs is generated by swaggo/swag from the annotations in
// cmd/api and internal/api/handler. Regenerate with:
//
//	swag init -g cmd/api/main.go -o docs
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
        "/auth/login": {
            "post": {
                "description": "Authenticates against the users table. Three failures within the lockout window lock the account for the configured duration.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [
                    {
                        "description": "Login credentials",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handler.loginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "423": {"description": "Locked", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.loginResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Logout",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"SessionCookie": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.userMenuResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/auth/permissions/{name}": {
            "get": {
                "security": [{"SessionCookie": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Check a permission",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Permission name (e.g. view_costs)",
                        "name": "name",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.permissionResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/dashboard/sales": {
            "get": {
                "security": [{"SessionCookie": []}],
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Sales dashboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.pageResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/dashboard/costs": {
            "get": {
                "security": [{"SessionCookie": []}],
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Cost dashboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.pageResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "403": {"description": "Forbidden", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/dashboard/team": {
            "get": {
                "security": [{"SessionCookie": []}],
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Team dashboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.pageResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "403": {"description": "Forbidden", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/admin/users": {
            "get": {
                "security": [{"SessionCookie": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "User management",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.pageResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "403": {"description": "Forbidden", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.readinessResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.readinessResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "employee_id": {"type": "integer"},
                "is_active": {"type": "boolean"},
                "last_login": {"type": "string"},
                "created_date": {"type": "string"}
            }
        },
        "handler.dependencyStatus": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "handler.loginRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "handler.loginResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/domain.User"}
            }
        },
        "handler.messageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "handler.pageResponse": {
            "type": "object",
            "properties": {
                "page": {"type": "string"},
                "role": {"type": "string"},
                "scope": {"type": "string"},
                "user": {"type": "string"}
            }
        },
        "handler.permissionResponse": {
            "type": "object",
            "properties": {
                "allowed": {"type": "boolean"},
                "permission": {"type": "string"}
            }
        },
        "handler.readinessResponse": {
            "type": "object",
            "properties": {
                "dependencies": {
                    "type": "object",
                    "additionalProperties": {"$ref": "#/definitions/handler.dependencyStatus"}
                },
                "status": {"type": "string"}
            }
        },
        "handler.userMenuResponse": {
            "type": "object",
            "properties": {
                "can_export_data": {"type": "boolean"},
                "can_view_all_data": {"type": "boolean"},
                "email": {"type": "string"},
                "is_admin": {"type": "boolean"},
                "is_manager": {"type": "boolean"},
                "last_login": {"type": "string"},
                "permissions": {"type": "array", "items": {"type": "string"}},
                "role": {"type": "string"},
                "role_label": {"type": "string"},
                "session_timeout_seconds": {"type": "integer"},
                "username": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "SessionCookie": {
            "type": "apiKey",
            "name": "salesbi_session",
            "in": "cookie"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "SalesBI Auth API",
	Description:      "Login, session and role-based access control for the SalesBI dashboard.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
