// Command apiserver serves the spec §6 HTTP surface: POST /query,
// POST /scrape, GET /scrape/{job_id}, GET /health, GET /ready, and GET
// /metrics. It mirrors the teacher's cmd/server/main.go shutdown
// pattern: Fiber with cors/logger/recover middleware, SIGINT/SIGTERM
// triggering app.Shutdown.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/geofacts/venues/internal/api"
	"github.com/geofacts/venues/internal/app"
	"github.com/geofacts/venues/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	svc, err := app.New(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}
	defer svc.Close()

	fiberApp := fiber.New(fiber.Config{
		AppName: "geofacts venues API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(api.ErrorResponse{Detail: err.Error()})
		},
	})

	fiberApp.Use(recover.New(recover.Config{EnableStackTrace: true}))
	fiberApp.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "UTC",
	}))
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST",
	}))

	h := api.NewHandlers(svc.DB, svc.Log)
	api.SetupRoutes(fiberApp, h)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		svc.Log.Info().Msg("shutting down api server")
		if err := fiberApp.Shutdown(); err != nil {
			svc.Log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	svc.Log.Info().Str("port", cfg.Port).Msg("starting api server")
	if err := fiberApp.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
