package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"specsum/internal/extraction"
	"specsum/internal/model"
	"specsum/internal/repository"
	"specsum/internal/summarize"
)

var (
	ErrIDRequired       = errors.New("id is required")
	ErrFilenameRequired = errors.New("filename is required")
	ErrNotFound         = errors.New("analysis not found")
	// ErrNoContent means the document yielded no usable text: either the PDF
	// could not be parsed or every extraction path came back empty.
	ErrNoContent = errors.New("no content extracted")
	// ErrSummarization is the one hard failure of the analysis flow: the
	// summary could not be generated.
	ErrSummarization = errors.New("summary could not be generated")
)

// Session is the explicit per-user, per-session state of the analysis
// workflow. It replaces ambient "current summary / current filename" state:
// every operation that reads or writes session state takes it as a value.
type Session struct {
	Username     string `json:"username"`
	LastFilename string `json:"last_filename,omitempty"`
	LastSummary  string `json:"last_summary,omitempty"`
	LastTables   string `json:"last_tables,omitempty"`
}

func (s *Session) remember(filename, summary, tables string) {
	if s == nil {
		return
	}
	s.LastFilename = filename
	s.LastSummary = summary
	s.LastTables = tables
}

// CacheWrite is the explicit outcome of the best-effort persistence step.
// A failed write is reported, never raised: the computed summary is worth
// more than the row.
type CacheWrite struct {
	Saved  bool   `json:"saved"`
	Reason string `json:"reason,omitempty"`
	Err    error  `json:"-"`
}

// AnalyzeOptions carries per-request flags.
type AnalyzeOptions struct {
	// Regenerate forces recomputation even when a cached record exists.
	Regenerate bool
}

// AnalysisResult is what one analysis run hands back to the caller.
// Record is nil when the write to storage failed.
type AnalysisResult struct {
	Filename   string                `json:"filename"`
	Summary    string                `json:"summary"`
	Tables     string                `json:"tables,omitempty"`
	FromCache  bool                  `json:"from_cache"`
	Record     *model.AnalysisRecord `json:"record,omitempty"`
	CacheWrite CacheWrite            `json:"cache_write"`
}

// UploadedFile is one PDF of a batch request.
type UploadedFile struct {
	Name string
	Data []byte
}

// BatchItem is the per-file outcome of a batch analysis. Failed files carry
// an error and do not abort the rest of the batch.
type BatchItem struct {
	Filename string
	Result   *AnalysisResult
	Err      error
}

// AnalysisService defines the use cases of the analysis workflow.
type AnalysisService interface {
	// Analyze runs the cache-or-recompute workflow for one document.
	Analyze(ctx context.Context, sess *Session, data []byte, filename string, opts AnalyzeOptions) (*AnalysisResult, error)

	// AnalyzeBatch analyzes several documents; a failure of one document is
	// recorded in its BatchItem and does not stop the others.
	AnalyzeBatch(ctx context.Context, sess *Session, files []UploadedFile, opts AnalyzeOptions) []BatchItem

	// FindLatest returns the most recent analysis for a filename, or nil.
	FindLatest(ctx context.Context, filename string) (*model.AnalysisRecord, error)

	// History lists past analyses, newest first, optionally per user.
	History(ctx context.Context, username string, limit int) ([]model.AnalysisRecord, error)

	// Get returns one analysis by ID.
	Get(ctx context.Context, id string) (*model.AnalysisRecord, error)

	// Delete removes one analysis by ID.
	Delete(ctx context.Context, id string) error

	// Search finds analyses by a term in filename or summary.
	Search(ctx context.Context, term string) ([]model.AnalysisRecord, error)

	// Stats returns aggregate usage numbers.
	Stats(ctx context.Context) (*repository.Stats, error)
}

// DecideRegenerate is the entire cache policy: recompute when nothing is
// cached or when the caller explicitly forces it. Age and authorship of the
// existing record are deliberately irrelevant — there is no TTL and no
// content check, so a record stays authoritative until regenerated.
func DecideRegenerate(existing *model.AnalysisRecord, forced bool) bool {
	return existing == nil || forced
}

// analysisService is the concrete AnalysisService.
type analysisService struct {
	repo       repository.AnalysisRepository
	extractor  extraction.Extractor
	summarizer summarize.Summarizer
	now        func() time.Time
}

// NewAnalysisService constructs the analysis workflow service.
func NewAnalysisService(repo repository.AnalysisRepository, ext extraction.Extractor, sum summarize.Summarizer) AnalysisService {
	return &analysisService{
		repo:       repo,
		extractor:  ext,
		summarizer: sum,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *analysisService) Analyze(ctx context.Context, sess *Session, data []byte, filename string, opts AnalyzeOptions) (*AnalysisResult, error) {
	if filename == "" {
		return nil, ErrFilenameRequired
	}

	existing := s.lookup(ctx, filename)
	if !DecideRegenerate(existing, opts.Regenerate) {
		sess.remember(filename, existing.Summary, existing.Tables)
		return &AnalysisResult{
			Filename:  filename,
			Summary:   existing.Summary,
			Tables:    existing.Tables,
			FromCache: true,
			Record:    existing,
		}, nil
	}

	doc, err := s.extractor.Extract(ctx, data, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoContent, err)
	}
	if doc.TotalChars() == 0 {
		return nil, ErrNoContent
	}

	summary, err := s.summarizer.Summarize(ctx, doc.Text())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSummarization, err)
	}

	// Tables are derived from the summary and are best-effort: losing them
	// must not lose the summary.
	tables, err := s.summarizer.GenerateTables(ctx, summary)
	if err != nil {
		logWarn("tables_generation_failed", map[string]any{"filename": filename, "error_message": err.Error()})
		tables = ""
	}

	result := &AnalysisResult{
		Filename: filename,
		Summary:  summary,
		Tables:   tables,
	}

	rec := &model.AnalysisRecord{
		ID:        uuid.New().String(),
		Username:  username(sess),
		Filename:  filename,
		Summary:   summary,
		Tables:    tables,
		CreatedAt: s.now(),
	}
	stored, err := s.repo.Create(ctx, rec)
	if err != nil {
		// Best-effort persistence: the summary is already computed and is
		// returned regardless; the failure is reported in the result.
		logWarn("analysis_save_failed", map[string]any{"filename": filename, "error_message": err.Error()})
		result.CacheWrite = CacheWrite{Saved: false, Reason: err.Error(), Err: err}
	} else {
		result.Record = stored
		result.CacheWrite = CacheWrite{Saved: true}
	}

	sess.remember(filename, summary, tables)
	return result, nil
}

func (s *analysisService) AnalyzeBatch(ctx context.Context, sess *Session, files []UploadedFile, opts AnalyzeOptions) []BatchItem {
	items := make([]BatchItem, 0, len(files))
	for _, f := range files {
		res, err := s.Analyze(ctx, sess, f.Data, f.Name, opts)
		items = append(items, BatchItem{Filename: f.Name, Result: res, Err: err})
	}
	return items
}

// lookup resolves the cached record for a filename. Storage read errors are
// deliberately swallowed into a cache miss: an unreachable store triggers
// recomputation instead of blocking the workflow.
func (s *analysisService) lookup(ctx context.Context, filename string) *model.AnalysisRecord {
	rec, err := s.repo.FindLatestByFilename(ctx, filename)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logWarn("cache_lookup_failed", map[string]any{"filename": filename, "error_message": err.Error()})
		}
		return nil
	}
	return rec
}

func (s *analysisService) FindLatest(ctx context.Context, filename string) (*model.AnalysisRecord, error) {
	if filename == "" {
		return nil, ErrFilenameRequired
	}
	rec, err := s.repo.FindLatestByFilename(ctx, filename)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *analysisService) History(ctx context.Context, username string, limit int) ([]model.AnalysisRecord, error) {
	return s.repo.List(ctx, repository.HistoryQuery{Username: username, Limit: limit})
}

func (s *analysisService) Get(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *analysisService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *analysisService) Search(ctx context.Context, term string) ([]model.AnalysisRecord, error) {
	return s.repo.Search(ctx, term)
}

func (s *analysisService) Stats(ctx context.Context) (*repository.Stats, error) {
	return s.repo.Stats(ctx)
}

func username(sess *Session) string {
	if sess == nil || sess.Username == "" {
		return "anonymous"
	}
	return sess.Username
}

func logWarn(event string, fields map[string]any) {
	entry := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     "warn",
		"component": "service",
		"event":     event,
	}
	for k, v := range fields {
		entry[k] = v
	}
	b, err := json.Marshal(entry)
	if err != nil {
		log.Printf("failed to marshal service log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
