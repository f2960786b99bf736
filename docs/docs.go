// Package docs registers the OpenAPI description served at /swagger.
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
        "/api/webhooks/clerk": {
            "post": {
                "description": "Verifies the svix signature and syncs the user into the remote partner directory",
                "consumes": ["application/json"],
                "produces": ["text/plain"],
                "tags": ["webhooks"],
                "summary": "Receive a Clerk webhook",
                "parameters": [
                    {"type": "string", "description": "Delivery id", "name": "svix-id", "in": "header", "required": true},
                    {"type": "string", "description": "Unix seconds", "name": "svix-timestamp", "in": "header", "required": true},
                    {"type": "string", "description": "Space separated v1 signatures", "name": "svix-signature", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "verification failed", "schema": {"type": "string"}},
                    "500": {"description": "sync failed", "schema": {"type": "string"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Partner Sync Webhook API",
	Description:      "Receives signed identity-provider webhooks and mirrors users into Odoo partners.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
