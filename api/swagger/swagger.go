package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Gettogather API",
        "description": "Campus event discovery: sessions, natural-language search, events and admin reporting.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": ["http", "https"],
    "tags": [
        {"name": "Health", "description": "Health checks and metrics"},
        {"name": "Session", "description": "Browser session state"},
        {"name": "Authentication", "description": "Sign-in and sign-out"},
        {"name": "Events", "description": "Event discovery, search and writes"},
        {"name": "Admin", "description": "Dashboard statistics and exports"}
    ],
    "paths": {
        "/health": {
            "get": {"tags": ["Health"], "summary": "Liveness check", "responses": {"200": {"description": "OK"}}}
        },
        "/ready": {
            "get": {
                "tags": ["Health"],
                "summary": "Readiness check",
                "description": "backend is configured or mock",
                "responses": {"200": {"description": "Ready"}}
            }
        },
        "/metrics": {
            "get": {"tags": ["Health"], "summary": "Prometheus metrics", "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/session": {
            "get": {
                "tags": ["Session"],
                "summary": "Current session",
                "parameters": [{"name": "wait", "in": "query", "type": "boolean", "description": "Block until the session settles"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionEnvelope"}}}
            }
        },
        "/api/v1/session/stream": {
            "get": {
                "tags": ["Session"],
                "summary": "Session change stream (websocket)",
                "description": "Frames are {\"type\":\"session\",\"data\":Session}, starting with the current state.",
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Sign in with email and password",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/SessionEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/oauth": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Start an OAuth sign-in",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OAuthRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Backend not configured", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/callback": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Complete an OAuth sign-in",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OAuthCallbackRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Sign out",
                "description": "Always leaves the session anonymous. meta.remoteSignOut is failed when the remote call failed.",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionEnvelope"}}}
            }
        },
        "/api/v1/events": {
            "get": {
                "tags": ["Events"],
                "summary": "List events",
                "parameters": [
                    {"name": "q", "in": "query", "type": "string", "description": "Free-text query"},
                    {"name": "category", "in": "query", "type": "string", "enum": ["all", "Technology", "Cultural", "Sports", "Academic", "Professional"]},
                    {"name": "status", "in": "query", "type": "string", "enum": ["upcoming", "ongoing", "completed"]},
                    {"name": "dateRange", "in": "query", "type": "string", "enum": ["today", "this_week", "next_week", "this_month"]}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Events"],
                "summary": "Create event",
                "consumes": ["application/json", "multipart/form-data"],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateEventRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Image too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Backend not configured", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/events/search/stream": {
            "get": {
                "tags": ["Events"],
                "summary": "Live event search (websocket)",
                "description": "Client frames {\"query\":\"...\",\"category\":\"...\"}. Server frames {\"type\":\"results\",\"data\":...} for the newest settled input only.",
                "parameters": [
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "category", "in": "query", "type": "string"}
                ],
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        },
        "/api/v1/events/calendar.ics": {
            "get": {
                "tags": ["Events"],
                "summary": "iCalendar feed",
                "produces": ["text/calendar"],
                "parameters": [
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "category", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/events/{id}": {
            "get": {
                "tags": ["Events"],
                "summary": "Get event",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Events"],
                "summary": "Update event",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateEventRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Events"],
                "summary": "Delete event",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}, "403": {"description": "Forbidden"}}
            }
        },
        "/api/v1/events/{id}/image": {
            "post": {
                "tags": ["Events"],
                "summary": "Replace event image",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "image", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {"200": {"description": "OK"}, "413": {"description": "Image too large"}}
            }
        },
        "/api/v1/events/{id}/attendees": {
            "post": {
                "tags": ["Events"],
                "summary": "Attend event",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}, "409": {"description": "Already attending"}}
            },
            "delete": {
                "tags": ["Events"],
                "summary": "Stop attending event",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/api/v1/admin/stats": {
            "get": {
                "tags": ["Admin"],
                "summary": "Platform statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/events/export": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export events",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Unsupported format"}}
            }
        }
    },
    "definitions": {
        "User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "avatar": {"type": "string"},
                "role": {"type": "string", "enum": ["user", "admin"]},
                "department": {"type": "string"},
                "year": {"type": "string"}
            }
        },
        "Session": {
            "type": "object",
            "properties": {
                "state": {"type": "string", "enum": ["loading", "authenticated", "anonymous"]},
                "seq": {"type": "integer"},
                "user": {"$ref": "#/definitions/User"},
                "mock": {"type": "boolean"}
            }
        },
        "SessionEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/Session"},
                "meta": {"type": "object"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "OAuthRequest": {
            "type": "object",
            "required": ["provider"],
            "properties": {
                "provider": {"type": "string", "enum": ["google", "github", "azure"]},
                "redirect_to": {"type": "string"}
            }
        },
        "OAuthCallbackRequest": {
            "type": "object",
            "required": ["access_token"],
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"}
            }
        },
        "CreateEventRequest": {
            "type": "object",
            "required": ["title", "description", "date", "time", "location", "category"],
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "date": {"type": "string", "example": "2024-03-20"},
                "time": {"type": "string", "example": "10:00 AM - 4:00 PM"},
                "location": {"type": "string"},
                "category": {"type": "string"},
                "maxAttendees": {"type": "integer"},
                "tags": {"type": "array", "items": {"type": "string"}}
            }
        },
        "UpdateEventRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "date": {"type": "string"},
                "time": {"type": "string"},
                "location": {"type": "string"},
                "category": {"type": "string"},
                "maxAttendees": {"type": "integer"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string", "enum": ["upcoming", "ongoing", "completed"]}
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
