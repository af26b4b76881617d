package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker is satisfied by store.HybridStore.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RegisterRoutes mounts metrics, health and the v1 catalog API. st may be
// nil when the service runs without a store.
func RegisterRoutes(app *fiber.App, st HealthChecker, h *CatalogHandler) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"store":   "ok",
			"catalog": "ok",
		}
		status := "ok"
		code := fiber.StatusOK

		if st == nil {
			checks["store"] = "disabled"
		} else {
			healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := st.HealthCheck(healthCtx); err != nil {
				checks["store"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		if h.holder.Current() == nil {
			checks["catalog"] = "empty"
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	// API routes
	v1 := app.Group("/api/v1")
	v1.Get("/products", h.ListProducts)
	v1.Get("/products/:id", h.GetProduct)
	v1.Get("/stats", h.GetStats)
	v1.Get("/report", h.GetReport)
	v1.Post("/runs", h.TriggerRun)
}
