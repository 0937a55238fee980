package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes registers all HTTP routes
func registerRoutes(app *fiber.App, deps *Dependencies) {
	h := deps.Handlers

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Decision X-Ray API")
	})

	h.Health.RegisterRoutes(app)
	h.Docs.RegisterRoutes(app)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	var runLimiters []fiber.Handler
	if deps.RunLimiter != nil {
		runLimiters = append(runLimiters, deps.RunLimiter.Handler())
	}

	api := app.Group("/api")
	h.Executions.RegisterRoutes(api, runLimiters...)
}
