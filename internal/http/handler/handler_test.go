package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"specsum/internal/model"
	"specsum/internal/repository"
	"specsum/internal/service"
	serviceMocks "specsum/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	part.Write(content)
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateAnalysis(t *testing.T) {
	mockSvc := new(serviceMocks.MockAnalysisService)
	app := fiber.New()
	app.Post("/analyses", CreateAnalysis(mockSvc))

	t.Run("fresh analysis", func(t *testing.T) {
		body, ct := multipartBody(t, "file", "relay.pdf", []byte("%PDF-1.4"))

		res := &service.AnalysisResult{
			Filename:   "relay.pdf",
			Summary:    "a summary",
			FromCache:  false,
			CacheWrite: service.CacheWrite{Saved: true},
		}
		mockSvc.On("Analyze", mock.Anything, mock.Anything, mock.Anything, "relay.pdf", service.AnalyzeOptions{}).Return(res, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/analyses", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req, -1)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result service.AnalysisResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, "a summary", result.Summary)
		mockSvc.AssertExpectations(t)
	})

	t.Run("cached analysis", func(t *testing.T) {
		body, ct := multipartBody(t, "file", "relay.pdf", []byte("%PDF-1.4"))

		res := &service.AnalysisResult{Filename: "relay.pdf", Summary: "cached", FromCache: true}
		mockSvc.On("Analyze", mock.Anything, mock.Anything, mock.Anything, "relay.pdf", service.AnalyzeOptions{}).Return(res, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/analyses", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req, -1)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("regenerate flag", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, _ := writer.CreateFormFile("file", "relay.pdf")
		part.Write([]byte("%PDF-1.4"))
		writer.WriteField("regenerate", "true")
		writer.WriteField("username", "maria")
		writer.Close()

		res := &service.AnalysisResult{Filename: "relay.pdf", Summary: "fresh"}
		mockSvc.On("Analyze", mock.Anything, mock.MatchedBy(func(sess *service.Session) bool {
			return sess.Username == "maria"
		}), mock.Anything, "relay.pdf", service.AnalyzeOptions{Regenerate: true}).Return(res, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/analyses", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp, _ := app.Test(req, -1)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/analyses", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_REQUIRED", res.Error.Code)
	})

	t.Run("no content", func(t *testing.T) {
		body, ct := multipartBody(t, "file", "blank.pdf", []byte("%PDF-1.4"))

		mockSvc.On("Analyze", mock.Anything, mock.Anything, mock.Anything, "blank.pdf", mock.Anything).Return(nil, service.ErrNoContent).Once()

		req := httptest.NewRequest(http.MethodPost, "/analyses", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req, -1)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NO_CONTENT", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("summarization failure", func(t *testing.T) {
		body, ct := multipartBody(t, "file", "relay.pdf", []byte("%PDF-1.4"))

		mockSvc.On("Analyze", mock.Anything, mock.Anything, mock.Anything, "relay.pdf", mock.Anything).Return(nil, service.ErrSummarization).Once()

		req := httptest.NewRequest(http.MethodPost, "/analyses", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req, -1)

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "SUMMARIZATION_FAILED", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestCreateAnalysisBatch(t *testing.T) {
	mockSvc := new(serviceMocks.MockAnalysisService)
	app := fiber.New()
	app.Post("/analyses/batch", CreateAnalysisBatch(mockSvc))

	t.Run("mixed outcomes", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		p1, _ := writer.CreateFormFile("files", "a.pdf")
		p1.Write([]byte("%PDF-1.4 a"))
		p2, _ := writer.CreateFormFile("files", "b.pdf")
		p2.Write([]byte("%PDF-1.4 b"))
		writer.Close()

		items := []service.BatchItem{
			{Filename: "a.pdf", Result: &service.AnalysisResult{Filename: "a.pdf", Summary: "ok"}},
			{Filename: "b.pdf", Err: service.ErrNoContent},
		}
		mockSvc.On("AnalyzeBatch", mock.Anything, mock.Anything, mock.MatchedBy(func(files []service.UploadedFile) bool {
			return len(files) == 2 && files[0].Name == "a.pdf" && files[1].Name == "b.pdf"
		}), mock.Anything).Return(items).Once()

		req := httptest.NewRequest(http.MethodPost, "/analyses/batch", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp, _ := app.Test(req, -1)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Items []map[string]any `json:"items"`
			Total int              `json:"total"`
		}
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, 2, result.Total)
		assert.Equal(t, "a.pdf", result.Items[0]["filename"])
		assert.Equal(t, "NO_CONTENT", result.Items[1]["error"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("no files", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		writer.Close()

		req := httptest.NewRequest(http.MethodPost, "/analyses/batch", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILES_REQUIRED", res.Error.Code)
	})
}

func TestGetLatestAnalysis(t *testing.T) {
	mockSvc := new(serviceMocks.MockAnalysisService)
	app := fiber.New()
	app.Get("/analyses/latest", GetLatestAnalysis(mockSvc))

	t.Run("found", func(t *testing.T) {
		rec := &model.AnalysisRecord{ID: uuid.New().String(), Filename: "relay.pdf", Summary: "cached"}
		mockSvc.On("FindLatest", mock.Anything, "relay.pdf").Return(rec, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/analyses/latest?filename=relay.pdf", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.AnalysisRecord
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, rec.ID, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("FindLatest", mock.Anything, "missing.pdf").Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/analyses/latest?filename=missing.pdf", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing filename", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/analyses/latest", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILENAME_REQUIRED", res.Error.Code)
	})
}

func TestListHistory(t *testing.T) {
	mockSvc := new(serviceMocks.MockAnalysisService)
	app := fiber.New()
	app.Get("/analyses", ListHistory(mockSvc))

	t.Run("success", func(t *testing.T) {
		recs := []model.AnalysisRecord{{ID: uuid.New().String(), Filename: "relay.pdf"}}
		mockSvc.On("History", mock.Anything, "maria", 10).Return(recs, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/analyses?username=maria&limit=10", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Items []model.AnalysisRecord `json:"items"`
			Total int                    `json:"total"`
		}
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/analyses?limit=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_LIMIT", res.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("History", mock.Anything, "", 0).Return(nil, errors.New("db down")).Once()

		req := httptest.NewRequest(http.MethodGet, "/analyses", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestSearchAnalyses(t *testing.T) {
	mockSvc := new(serviceMocks.MockAnalysisService)
	app := fiber.New()
	app.Get("/analyses/search", SearchAnalyses(mockSvc))

	t.Run("success", func(t *testing.T) {
		recs := []model.AnalysisRecord{{ID: uuid.New().String(), Filename: "relay.pdf"}}
		mockSvc.On("Search", mock.Anything, "relay").Return(recs, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/analyses/search?q=relay", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing term", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/analyses/search", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "QUERY_REQUIRED", res.Error.Code)
	})
}

func TestGetAnalysis(t *testing.T) {
	mockSvc := new(serviceMocks.MockAnalysisService)
	app := fiber.New()
	app.Get("/analyses/:id", GetAnalysis(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		rec := &model.AnalysisRecord{ID: id, Filename: "relay.pdf"}
		mockSvc.On("Get", mock.Anything, id).Return(rec, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/analyses/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.AnalysisRecord
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/analyses/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/analyses/invalid-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_ID", res.Error.Code)
	})
}

func TestDeleteAnalysis(t *testing.T) {
	mockSvc := new(serviceMocks.MockAnalysisService)
	app := fiber.New()
	app.Delete("/analyses/:id", DeleteAnalysis(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/analyses/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/analyses/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetStats(t *testing.T) {
	mockSvc := new(serviceMocks.MockAnalysisService)
	app := fiber.New()
	app.Get("/analyses/stats", GetStats(mockSvc))

	stats := &repository.Stats{
		TotalAnalyses: 12,
		TotalUsers:    3,
		TopUsers:      []repository.UserCount{{Username: "maria", Count: 7}},
	}
	mockSvc.On("Stats", mock.Anything).Return(stats, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/analyses/stats", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result repository.Stats
	json.NewDecoder(resp.Body).Decode(&result)
	assert.Equal(t, 12, result.TotalAnalyses)
	assert.Len(t, result.TopUsers, 1)
	mockSvc.AssertExpectations(t)
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockAnalysisService)
	RegisterRoutes(app, nil, mockSvc)

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})

	t.Run("static path resolves before id", func(t *testing.T) {
		mockSvc.On("FindLatest", mock.Anything, "relay.pdf").Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/analyses/latest?filename=relay.pdf", nil)
		resp, _ := app.Test(req)

		// Must hit the latest handler, not balk at an invalid UUID.
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}
