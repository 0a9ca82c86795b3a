package main

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"specsum/docs"
	"specsum/internal/config"
	"specsum/internal/database"
	"specsum/internal/database/migration"
	"specsum/internal/extraction"
	handlers "specsum/internal/http/handler"
	"specsum/internal/http/middleware"
	"specsum/internal/otel"
	"specsum/internal/repository/postgres"
	"specsum/internal/service"
	"specsum/internal/summarize"
)

// @title PDF Analysis API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx := context.Background()
	loc := time.UTC

	// Initialize tracing (no-op when OTEL_SDK_DISABLED=true)
	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Extraction pipeline: direct text extraction with OCR fallback for
	// image-only or sparse documents.
	var ocr extraction.Recognizer
	if cfg.Extraction.OCREnabled {
		ocr = extraction.NewTesseractRecognizer()
	}
	pipeline := extraction.NewPipeline(
		extraction.NewPDFTextExtractor(),
		extraction.NewFitzRasterizer(),
		ocr,
		extraction.Config{
			Threshold:        cfg.Extraction.OCRThreshold,
			DPI:              cfg.Extraction.OCRDPI,
			Languages:        cfg.Extraction.OCRLanguages,
			FallbackLanguage: cfg.Extraction.OCRFallbackLang,
		},
		extraction.WithProgress(logOCRProgress(loc)),
	)

	summarizer := summarize.NewOpenAISummarizer(cfg.OpenAI)

	analysisRepo := postgres.NewAnalysisPostgres(db)
	analysisSvc := service.NewAnalysisService(analysisRepo, pipeline, summarizer)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    50 * 1024 * 1024,
	})

	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to initialize metrics: %v", err)
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, analysisSvc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// logOCRProgress emits one JSON line per processed page so long OCR runs
// are observable from the service logs.
func logOCRProgress(loc *time.Location) extraction.Progress {
	return func(page, total int) {
		b, err := json.Marshal(map[string]any{
			"ts":        time.Now().In(loc).Format(time.RFC3339Nano),
			"level":     "info",
			"component": "extraction",
			"event":     "ocr_page_done",
			"page":      page,
			"total":     total,
		})
		if err != nil {
			return
		}
		log.SetFlags(0)
		log.Println(string(b))
	}
}
