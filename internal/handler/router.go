package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahmednasr/firstcommit/internal/middleware"
	"github.com/ahmednasr/firstcommit/internal/service"
)

// RegisterRoutes mounts the API under /api/v1 and the operational
// endpoints (/health, /metrics) at the root.
func RegisterRoutes(app *fiber.App,
	imports service.ImportService,
	integrity service.IntegrityService,
	search service.SearchService,
	health *HealthHandler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	health.Register(app)

	v1 := app.Group("/api/v1", middleware.CurrentUser())
	NewRepoHandler(imports, integrity).Register(v1)
	NewSearchHandler(search).Register(v1)
	health.Register(v1)
}
