// Package docs holds the OpenAPI description served at /swagger.
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
        "/api/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/system.HealthReport"}},
                    "503": {"description": "Degraded", "schema": {"$ref": "#/definitions/system.HealthReport"}}
                }
            }
        },
        "/api/templates": {
            "get": {
                "produces": ["application/json"],
                "tags": ["templates"],
                "summary": "List workflow templates",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/template.WorkflowTemplate"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["templates"],
                "summary": "Create a workflow template",
                "parameters": [
                    {"description": "Template definition", "name": "template", "in": "body", "required": true, "schema": {"$ref": "#/definitions/template.CreateTemplateInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/template.WorkflowTemplate"}},
                    "400": {"description": "Invalid template", "schema": {"$ref": "#/definitions/api.Error"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.Error"}},
                    "409": {"description": "Template name already exists", "schema": {"$ref": "#/definitions/api.Error"}}
                }
            }
        },
        "/api/templates/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["templates"],
                "summary": "Get a workflow template",
                "parameters": [{"type": "string", "description": "Template ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/template.WorkflowTemplate"}},
                    "404": {"description": "Template not found", "schema": {"$ref": "#/definitions/api.Error"}}
                }
            }
        },
        "/api/workflows": {
            "get": {
                "produces": ["application/json"],
                "tags": ["workflows"],
                "summary": "List workflows",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/workflow.Workflow"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["workflows"],
                "summary": "Create a workflow",
                "parameters": [
                    {"description": "Workflow", "name": "workflow", "in": "body", "required": true, "schema": {"$ref": "#/definitions/workflow.CreateWorkflowInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/workflow.Workflow"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/api.Error"}},
                    "403": {"description": "Only requesters may create workflows", "schema": {"$ref": "#/definitions/api.Error"}}
                }
            }
        },
        "/api/workflows/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["workflows"],
                "summary": "Get a workflow",
                "parameters": [{"type": "string", "description": "Workflow ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/workflow.Workflow"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.Error"}},
                    "404": {"description": "Workflow not found", "schema": {"$ref": "#/definitions/api.Error"}}
                }
            }
        },
        "/api/workflows/{id}/transition": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["workflows"],
                "summary": "Transition a workflow",
                "description": "Apply SUBMIT, APPROVE, REJECT or EXECUTE. APPROVE and REJECT require a comment.",
                "parameters": [
                    {"type": "string", "description": "Workflow ID", "name": "id", "in": "path", "required": true},
                    {"description": "Action and comment", "name": "transition", "in": "body", "required": true, "schema": {"$ref": "#/definitions/workflow.TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/workflow.Workflow"}},
                    "400": {"description": "Invalid transition or missing comment", "schema": {"$ref": "#/definitions/api.Error"}},
                    "403": {"description": "Actor lacks the required role", "schema": {"$ref": "#/definitions/api.Error"}},
                    "404": {"description": "Workflow not found", "schema": {"$ref": "#/definitions/api.Error"}}
                }
            }
        },
        "/api/workflows/{id}/logs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["workflows"],
                "summary": "System log events of a workflow",
                "parameters": [{"type": "string", "description": "Workflow ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/systemlog.Event"}}}
                }
            }
        },
        "/api/workflows/{id}/audit": {
            "get": {
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Audit trail of a workflow",
                "parameters": [{"type": "string", "description": "Workflow ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/audit.Entry"}}}
                }
            }
        },
        "/api/workflows/{id}/audit/verify": {
            "get": {
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Verify the audit hash chain",
                "parameters": [{"type": "string", "description": "Workflow ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/audit.VerifyResult"}}
                }
            }
        },
        "/api/workflows/{id}/audit/export": {
            "get": {
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["audit"],
                "summary": "Export the audit trail as XLSX",
                "parameters": [{"type": "string", "description": "Workflow ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Spreadsheet"}}
            }
        },
        "/api/admin/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "System statistics",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/admin.Stats"}}}
            }
        },
        "/api/admin/webhooks": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Recent webhook deliveries",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/webhook.DeliveryRecord"}}}}
            }
        },
        "/api/admin/users": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Directory users",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/user.User"}}}}
            }
        },
        "/api/admin/logs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Search system log events",
                "parameters": [
                    {"type": "string", "name": "eventType", "in": "query"},
                    {"type": "string", "name": "workflowId", "in": "query"},
                    {"type": "string", "name": "actorRole", "in": "query"},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/systemlog.Page"}},
                    "400": {"description": "Invalid date", "schema": {"$ref": "#/definitions/api.Error"}}
                }
            }
        },
        "/api/users": {
            "get": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "List directory users",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/user.User"}}}}
            }
        }
    },
    "definitions": {
        "api.Error": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "models.Actor": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "email": {"type": "string"}, "role": {"type": "string"}}
        },
        "template.Step": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "role": {"type": "string"}, "slaHours": {"type": "number"}}
        },
        "template.CreateTemplateInput": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "steps": {"type": "array", "items": {"$ref": "#/definitions/template.Step"}}}
        },
        "template.WorkflowTemplate": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "steps": {"type": "array", "items": {"$ref": "#/definitions/template.Step"}},
                "createdAt": {"type": "string"}
            }
        },
        "workflow.Workflow": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["DRAFT", "SUBMITTED", "APPROVED", "REJECTED", "EXECUTED"]},
                "currentStepIndex": {"type": "integer"},
                "stepStartTime": {"type": "string"},
                "isEscalated": {"type": "boolean"},
                "requesterId": {"type": "string"},
                "templateId": {"type": "string"},
                "callbackUrl": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "workflow.CreateWorkflowInput": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "templateId": {"type": "string"},
                "callbackUrl": {"type": "string"}
            }
        },
        "workflow.TransitionRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["SUBMIT", "APPROVE", "REJECT", "EXECUTE"], "example": "APPROVE"},
                "comment": {"type": "string"}
            }
        },
        "audit.Entry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "seq": {"type": "integer"},
                "workflowId": {"type": "string"},
                "action": {"type": "string"},
                "fromStatus": {"type": "string"},
                "toStatus": {"type": "string"},
                "performedBy": {"$ref": "#/definitions/models.Actor"},
                "comment": {"type": "string"},
                "stepIndex": {"type": "integer"},
                "timestamp": {"type": "string"},
                "prevHash": {"type": "string"},
                "hash": {"type": "string"}
            }
        },
        "audit.VerifyResult": {
            "type": "object",
            "properties": {
                "valid": {"type": "boolean"},
                "entries": {"type": "integer"},
                "error": {"type": "string"},
                "brokenAt": {"type": "integer"},
                "brokenId": {"type": "string"},
                "workflowId": {"type": "string"}
            }
        },
        "webhook.DeliveryRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "workflowId": {"type": "string"},
                "workflowTitle": {"type": "string"},
                "url": {"type": "string"},
                "event": {"type": "string"},
                "payload": {"type": "object"},
                "status": {"type": "string", "enum": ["PENDING", "FAILED", "SUCCESS", "ABORTED"]},
                "attempt": {"type": "integer"},
                "nextRetryAt": {"type": "string"},
                "lastError": {"type": "string"},
                "lastStatusCode": {"type": "integer"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "webhook.Stats": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "pending": {"type": "integer"},
                "succeeded": {"type": "integer"},
                "failures": {"type": "integer"},
                "aborted": {"type": "integer"},
                "rate": {"type": "string"}
            }
        },
        "admin.Stats": {
            "type": "object",
            "properties": {
                "users": {"type": "integer"},
                "workflows": {"type": "integer"},
                "slaBreaches": {"type": "integer"},
                "webhooks": {"$ref": "#/definitions/webhook.Stats"}
            }
        },
        "systemlog.Event": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "eventType": {"type": "string"},
                "actorEmail": {"type": "string"},
                "actorRole": {"type": "string"},
                "workflowId": {"type": "string"},
                "status": {"type": "string", "enum": ["SUCCESS", "FAILURE", "INFO"]},
                "message": {"type": "string"},
                "metadata": {"type": "object"},
                "timestamp": {"type": "string"}
            }
        },
        "systemlog.Page": {
            "type": "object",
            "properties": {
                "logs": {"type": "array", "items": {"$ref": "#/definitions/systemlog.Event"}},
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "totalPages": {"type": "integer"}
            }
        },
        "system.HealthReport": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "database": {"type": "string"},
                "schedulerActive": {"type": "boolean"},
                "droppedLogs": {"type": "integer"},
                "droppedNotifications": {"type": "integer"},
                "failedNotifications": {"type": "integer"},
                "liveSubscribers": {"type": "integer"}
            }
        },
        "user.User": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "email": {"type": "string"}, "role": {"type": "string"}, "createdAt": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Regula API",
	Description:      "Multi-party approval engine: role-gated workflows, audit trail, callbacks and SLA escalation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
