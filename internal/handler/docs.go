package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/decisionxray/xray/docs"
)

const docsTitle = "Decision X-Ray API"

// DocsHandler serves the embedded OpenAPI document and viewers for it
type DocsHandler struct{}

// NewDocsHandler creates a new docs handler
func NewDocsHandler() *DocsHandler {
	return &DocsHandler{}
}

// RegisterRoutes registers documentation routes
func (h *DocsHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/openapi.yaml", h.ServeOpenAPISpec)
	app.Get("/docs", h.ServeSwaggerUI)
	app.Get("/redoc", h.ServeReDoc)
}

// ServeOpenAPISpec serves the OpenAPI YAML specification
func (h *DocsHandler) ServeOpenAPISpec(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(docs.OpenAPISpec)
}

// ServeSwaggerUI serves the Swagger UI page
func (h *DocsHandler) ServeSwaggerUI(c *fiber.Ctx) error {
	body := `<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
<script>
  window.onload = function () {
    window.ui = SwaggerUIBundle({
      url: "/openapi.yaml",
      dom_id: "#swagger-ui",
      deepLinking: true,
      displayRequestDuration: true
    });
  };
</script>`
	head := `<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">`
	return sendHTML(c, docsTitle, head, body)
}

// ServeReDoc serves the ReDoc page
func (h *DocsHandler) ServeReDoc(c *fiber.Ctx) error {
	body := `<redoc spec-url="/openapi.yaml"></redoc>
<script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>`
	return sendHTML(c, docsTitle+" - ReDoc", "", body)
}

func sendHTML(c *fiber.Ctx, title, head, body string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
%s
<style>body { margin: 0; }</style>
</head>
<body>
%s
</body>
</html>`, title, head, body))
}
