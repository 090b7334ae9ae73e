// Package docs registers the OpenAPI description served at /swagger/*.
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
        "/alarms": {
            "get": {
                "description": "List compliance alerts raised on trades of a trade date",
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Get compliance alarms",
                "parameters": [
                    {"type": "string", "description": "Trade date (YYYY-MM-DD)", "name": "date", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.AlarmItem"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/blotter": {
            "get": {
                "description": "List every trade of a trade date with its notional value",
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Get the trade blotter",
                "parameters": [
                    {"type": "string", "description": "Trade date (YYYY-MM-DD)", "name": "date", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.BlotterItem"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Reports service status and database connectivity",
                "produces": ["application/json"],
                "tags": ["operations"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.HealthResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.HealthResponse"}}
                }
            }
        },
        "/positions": {
            "get": {
                "description": "Share of each ticker in each account's notional value for a trade date",
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Get account positions",
                "parameters": [
                    {"type": "string", "description": "Trade date (YYYY-MM-DD)", "name": "date", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.PositionsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.AlarmItem": {
            "type": "object",
            "properties": {
                "account": {"type": "string"},
                "description": {"type": "string"},
                "rule": {"type": "string"},
                "severity": {"type": "string"},
                "ticker": {"type": "string"},
                "triggered": {"type": "boolean"}
            }
        },
        "dto.BlotterItem": {
            "type": "object",
            "properties": {
                "account": {"type": "string"},
                "id": {"type": "integer"},
                "price": {"type": "number"},
                "quantity": {"type": "integer"},
                "ticker": {"type": "string"},
                "total_value": {"type": "number"}
            }
        },
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "dto.HealthResponse": {
            "type": "object",
            "properties": {
                "database": {"type": "string"},
                "error": {"type": "string"},
                "redis": {"type": "string"},
                "service": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "dto.PositionsResponse": {
            "type": "object",
            "additionalProperties": {
                "type": "object",
                "additionalProperties": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Trade Clearinghouse API",
	Description:      "Read-side views over ingested trades and compliance alerts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
