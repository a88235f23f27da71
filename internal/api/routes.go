package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Checker-Finance/mt5-adapter/pkg/config"
)

// NewApp builds the Fiber app serving ops endpoints and Prometheus metrics.
func NewApp(cfg *config.Config, h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.ServiceName,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	app.Get("/livez", h.getLiveness)
	app.Get("/health", h.getHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")
	v1.Post("/sync", h.postSync)
	v1.Get("/sync/last", h.getLastSync)
	v1.Get("/deliveries/:ticket", h.getDelivery)

	return app
}
