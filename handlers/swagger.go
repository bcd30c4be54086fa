package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the docshare API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>docshare API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document listing the public routes.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "docshare", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Credentials": { "type": "object", "properties": { "username": {"type":"string"}, "password": {"type":"string"} } },
      "Document": { "type": "object", "properties": { "id": {"type":"string"}, "title": {"type":"string"}, "content": {"type":"string"}, "author": {"type":"string"}, "editors": {"type":"array","items":{"type":"string"}}, "public": {"type":"boolean"}, "creation_date": {"type":"string","format":"date-time"} } },
      "DocumentPage": { "type": "object", "properties": { "current_page": {"type":"integer"}, "total_pages": {"type":"integer"}, "page_size": {"type":"integer"}, "documents": {"type":"array","items":{"$ref":"#/components/schemas/Document"}} } }
    },
    "parameters": {
      "id": { "name": "id", "in": "path", "required": true, "schema": {"type":"string"} },
      "page": { "name": "page", "in": "query", "schema": {"type":"integer","minimum":1} },
      "page_size": { "name": "page_size", "in": "query", "description": "Items per page. Values above the configured maximum are reduced to it; the response page_size reports the size used.", "schema": {"type":"integer","minimum":1} }
    }
  },
  "paths": {
    "/users": { "post": { "summary": "Register a user", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Credentials"} } } }, "responses": { "201": { "description": "created" }, "400": { "description": "invalid credentials" }, "409": { "description": "username taken" } } } },
    "/auth/token": { "post": { "summary": "Password login (JSON or form)", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Credentials"} }, "application/x-www-form-urlencoded": { "schema": {"$ref":"#/components/schemas/Credentials"} } } }, "responses": { "200": { "description": "access and refresh tokens" }, "401": { "description": "incorrect username or password" } } } },
    "/auth/refresh": { "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } } },
    "/auth/logout": { "post": { "summary": "Revoke the bearer token and refresh token", "responses": { "200": { "description": "logged out" } } } },
    "/users/me": {
      "get": { "summary": "Own profile", "security": [{"bearer":[]}], "responses": { "200": { "description": "user" } } },
      "delete": { "summary": "Delete own account and documents", "security": [{"bearer":[]}], "responses": { "200": { "description": "deletion report" }, "500": { "description": "partial deletion with report" } } }
    },
    "/users/me/documents": { "get": { "summary": "Own documents", "security": [{"bearer":[]}], "parameters": [{"$ref":"#/components/parameters/page"},{"$ref":"#/components/parameters/page_size"}], "responses": { "200": { "description": "page", "content": { "application/json": { "schema": {"$ref":"#/components/schemas/DocumentPage"} } } } } } },
    "/users/me/favorites": { "get": { "summary": "Own favorites", "security": [{"bearer":[]}], "parameters": [{"$ref":"#/components/parameters/page"},{"$ref":"#/components/parameters/page_size"}], "responses": { "200": { "description": "page" } } } },
    "/users/{username}": { "get": { "summary": "User by username (self only)", "security": [{"bearer":[]}], "responses": { "200": { "description": "user" }, "403": { "description": "other user" } } } },
    "/documents": {
      "get": { "summary": "Search public documents", "parameters": [{"name":"q","in":"query","schema":{"type":"string"}},{"$ref":"#/components/parameters/page"},{"$ref":"#/components/parameters/page_size"}], "responses": { "200": { "description": "page", "content": { "application/json": { "schema": {"$ref":"#/components/schemas/DocumentPage"} } } } } },
      "post": { "summary": "Create a document", "security": [{"bearer":[]}], "responses": { "201": { "description": "created", "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Document"} } } } } }
    },
    "/documents/{id}": {
      "get": { "summary": "Get a document", "parameters": [{"$ref":"#/components/parameters/id"}], "responses": { "200": { "description": "document" }, "403": { "description": "forbidden" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Edit a document", "security": [{"bearer":[]}], "parameters": [{"$ref":"#/components/parameters/id"}], "responses": { "200": { "description": "document" } } },
      "delete": { "summary": "Delete a document", "security": [{"bearer":[]}], "parameters": [{"$ref":"#/components/parameters/id"}], "responses": { "204": { "description": "deleted" } } }
    },
    "/documents/{id}/visibility": { "put": { "summary": "Change visibility", "security": [{"bearer":[]}], "parameters": [{"$ref":"#/components/parameters/id"}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"public":{"type":"boolean"}}}}}}, "responses": { "200": { "description": "document" } } } },
    "/documents/{id}/editors": { "get": { "summary": "List editors", "parameters": [{"$ref":"#/components/parameters/id"},{"$ref":"#/components/parameters/page"},{"$ref":"#/components/parameters/page_size"}], "responses": { "200": { "description": "page of users" } } } },
    "/documents/{id}/editors/{username}": { "post": { "summary": "Add or remove an editor", "security": [{"bearer":[]}], "parameters": [{"$ref":"#/components/parameters/id"},{"name":"username","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "document" } } } },
    "/documents/{id}/favorite": { "post": { "summary": "Toggle favorite", "security": [{"bearer":[]}], "parameters": [{"$ref":"#/components/parameters/id"}], "responses": { "200": { "description": "favorite state" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
