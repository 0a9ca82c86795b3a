package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"specsum/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Static paths under /analyses must be registered before the :id route.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.AnalysisService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/analyses", CreateAnalysis(svc))
	app.Post("/analyses/batch", CreateAnalysisBatch(svc))
	app.Get("/analyses", ListHistory(svc))
	app.Get("/analyses/latest", GetLatestAnalysis(svc))
	app.Get("/analyses/search", SearchAnalyses(svc))
	app.Get("/analyses/stats", GetStats(svc))
	app.Get("/analyses/:id", GetAnalysis(svc))
	app.Delete("/analyses/:id", DeleteAnalysis(svc))
}
