// Package docs Swagger описание admin API feed-service.
// Обновляется командой: swag init -g cmd/api/main.go
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/google-products": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["google-products"],
                "summary": "Создать запись для варианта",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ensureRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.response"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/google-products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["google-products"],
                "summary": "Получить запись",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["google-products"],
                "summary": "Обновить локальные свойства",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.updateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.response"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handlers.response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/google-products/{id}/upload": {
            "post": {
                "produces": ["application/json"],
                "tags": ["google-products"],
                "summary": "Отправить товар в Google",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.errorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/google-products/{id}/remote": {
            "get": {
                "produces": ["application/json"],
                "tags": ["google-products"],
                "summary": "Получить товар из Google",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["google-products"],
                "summary": "Удалить товар в Google",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/google-products/{id}/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["google-products"],
                "summary": "История синхронизаций",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/google-products/{id}/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["google-products"],
                "summary": "Статус товара в Google",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "501": {"description": "Not Implemented", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/google/oauth/authorize": {
            "get": {
                "produces": ["application/json"],
                "tags": ["google-oauth"],
                "summary": "Начать авторизацию Google",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.response"}}
                }
            }
        },
        "/google/oauth/callback": {
            "get": {
                "produces": ["application/json"],
                "tags": ["google-oauth"],
                "summary": "Завершить авторизацию Google",
                "security": [],
                "parameters": [
                    {"type": "string", "name": "state", "in": "query", "required": true},
                    {"type": "string", "name": "code", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ensureRequest": {
            "type": "object",
            "properties": {
                "variant_id": {"type": "integer"}
            }
        },
        "handlers.updateRequest": {
            "type": "object",
            "properties": {
                "auto_update": {"type": "boolean"},
                "attribute_overrides": {"type": "object", "additionalProperties": {"type": "string"}},
                "upload": {"type": "boolean"}
            }
        },
        "handlers.response": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "meta": {}
            }
        },
        "handlers.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "integer"},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Feed Service API",
	Description:      "Синхронизация вариантов магазина с Google Merchant Center",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
