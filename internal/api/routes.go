package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes wires the spec §6 endpoints onto app.
func SetupRoutes(app *fiber.App, h *Handlers) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/query", h.Query)
	app.Post("/scrape", h.Scrape)
	app.Get("/scrape/:job_id", h.ScrapeStatus)
}
