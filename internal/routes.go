package internal

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"pharmetrics/internal/http"
)

// readOnlyCORSConfig is the standard CORS configuration for the metrics
// API. The API is read-only, so only GET crosses the origin boundary.
var readOnlyCORSConfig = cors.Config{
	AllowOrigins: "*",
	AllowMethods: "GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization",
}

// MountAppRoutes mounts all application routes on the fiber app.
func MountAppRoutes(app *fiber.App, h *http.Handler) {
	app.Get("/health", h.HealthAction)

	api := app.Group("/api/v1", cors.New(readOnlyCORSConfig))
	api.Get("/metrics", h.GetMetricsAction)
	api.Get("/metrics/timeseries", h.GetTimeSeriesAction)
}
