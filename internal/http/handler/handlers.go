package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"specsum/internal/service"
)

// HealthCheck verifies database connectivity.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness check with no dependencies.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// CreateAnalysis analyzes one uploaded PDF (multipart field: file).
// Returns 200 when the result came from the cache, 201 when freshly computed.
func CreateAnalysis(svc service.AnalysisService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		data, err := readUpload(fh)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}

		sess := sessionFromForm(c)
		opts := service.AnalyzeOptions{Regenerate: c.FormValue("regenerate") == "true"}

		res, err := svc.Analyze(c.UserContext(), sess, data, fh.Filename, opts)
		if err != nil {
			return writeAnalyzeError(c, err)
		}

		status := fiber.StatusCreated
		if res.FromCache {
			status = fiber.StatusOK
		}
		return c.Status(status).JSON(res)
	}
}

// CreateAnalysisBatch analyzes several uploaded PDFs (multipart field: files).
// Individual failures are reported per item; the batch itself returns 200.
func CreateAnalysisBatch(svc service.AnalysisService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "files are required")
		}
		headers := form.File["files"]
		if len(headers) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "files are required")
		}

		files := make([]service.UploadedFile, 0, len(headers))
		for _, fh := range headers {
			data, err := readUpload(fh)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			files = append(files, service.UploadedFile{Name: fh.Filename, Data: data})
		}

		sess := sessionFromForm(c)
		opts := service.AnalyzeOptions{Regenerate: c.FormValue("regenerate") == "true"}

		items := svc.AnalyzeBatch(c.UserContext(), sess, files, opts)

		out := make([]fiber.Map, 0, len(items))
		for _, it := range items {
			m := fiber.Map{"filename": it.Filename}
			if it.Err != nil {
				m["error"] = analyzeErrorCode(it.Err)
			} else {
				m["result"] = it.Result
			}
			out = append(out, m)
		}
		return c.JSON(fiber.Map{"items": out, "total": len(out)})
	}
}

// GetLatestAnalysis returns the most recent analysis for a filename.
func GetLatestAnalysis(svc service.AnalysisService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filename := c.Query("filename")
		if filename == "" {
			return writeError(c, fiber.StatusBadRequest, "FILENAME_REQUIRED", "filename is required")
		}
		rec, err := svc.FindLatest(c.UserContext(), filename)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "analysis not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(rec)
	}
}

// ListHistory lists past analyses, newest first, optionally filtered by user.
func ListHistory(svc service.AnalysisService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limitStr := c.Query("limit", "0")
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		recs, err := svc.History(c.UserContext(), c.Query("username"), limit)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"items": recs, "total": len(recs)})
	}
}

// SearchAnalyses finds analyses whose filename or summary matches a term.
func SearchAnalyses(svc service.AnalysisService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		term := c.Query("q")
		if term == "" {
			return writeError(c, fiber.StatusBadRequest, "QUERY_REQUIRED", "search term is required")
		}
		recs, err := svc.Search(c.UserContext(), term)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"items": recs, "total": len(recs)})
	}
}

// GetAnalysis returns one analysis by ID.
func GetAnalysis(svc service.AnalysisService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rec, err := svc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "analysis not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(rec)
	}
}

// DeleteAnalysis removes one analysis by ID.
func DeleteAnalysis(svc service.AnalysisService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "analysis not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GetStats returns aggregate usage statistics.
func GetStats(svc service.AnalysisService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := svc.Stats(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(stats)
	}
}

func writeAnalyzeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrFilenameRequired):
		return writeError(c, fiber.StatusBadRequest, "FILENAME_REQUIRED", "filename is required")
	case errors.Is(err, service.ErrNoContent):
		return writeError(c, fiber.StatusUnprocessableEntity, "NO_CONTENT", "no text could be extracted from the document")
	case errors.Is(err, service.ErrSummarization):
		return writeError(c, fiber.StatusBadGateway, "SUMMARIZATION_FAILED", "summary could not be generated")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

func analyzeErrorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrNoContent):
		return "NO_CONTENT"
	case errors.Is(err, service.ErrSummarization):
		return "SUMMARIZATION_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}

func sessionFromForm(c *fiber.Ctx) *service.Session {
	return &service.Session{Username: c.FormValue("username")}
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
