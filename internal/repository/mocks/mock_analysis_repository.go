package mocks

import (
	"context"

	"specsum/internal/model"
	"specsum/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockAnalysisRepository struct {
	mock.Mock
}

func (m *MockAnalysisRepository) Create(ctx context.Context, rec *model.AnalysisRecord) (*model.AnalysisRecord, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisRecord), args.Error(1)
}

func (m *MockAnalysisRepository) FindByID(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisRecord), args.Error(1)
}

func (m *MockAnalysisRepository) FindLatestByFilename(ctx context.Context, filename string) (*model.AnalysisRecord, error) {
	args := m.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisRecord), args.Error(1)
}

func (m *MockAnalysisRepository) List(ctx context.Context, q repository.HistoryQuery) ([]model.AnalysisRecord, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AnalysisRecord), args.Error(1)
}

func (m *MockAnalysisRepository) Search(ctx context.Context, term string) ([]model.AnalysisRecord, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AnalysisRecord), args.Error(1)
}

func (m *MockAnalysisRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAnalysisRepository) Stats(ctx context.Context) (*repository.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Stats), args.Error(1)
}
