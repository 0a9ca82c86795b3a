package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"specsum/internal/model"
	"specsum/internal/repository"
	"specsum/internal/service"
)

type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) Analyze(ctx context.Context, sess *service.Session, data []byte, filename string, opts service.AnalyzeOptions) (*service.AnalysisResult, error) {
	args := m.Called(ctx, sess, data, filename, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AnalysisResult), args.Error(1)
}

func (m *MockAnalysisService) AnalyzeBatch(ctx context.Context, sess *service.Session, files []service.UploadedFile, opts service.AnalyzeOptions) []service.BatchItem {
	args := m.Called(ctx, sess, files, opts)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]service.BatchItem)
}

func (m *MockAnalysisService) FindLatest(ctx context.Context, filename string) (*model.AnalysisRecord, error) {
	args := m.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisRecord), args.Error(1)
}

func (m *MockAnalysisService) History(ctx context.Context, username string, limit int) ([]model.AnalysisRecord, error) {
	args := m.Called(ctx, username, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AnalysisRecord), args.Error(1)
}

func (m *MockAnalysisService) Get(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisRecord), args.Error(1)
}

func (m *MockAnalysisService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAnalysisService) Search(ctx context.Context, term string) ([]model.AnalysisRecord, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AnalysisRecord), args.Error(1)
}

func (m *MockAnalysisService) Stats(ctx context.Context) (*repository.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Stats), args.Error(1)
}
