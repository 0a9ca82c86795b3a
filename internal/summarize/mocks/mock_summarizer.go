package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

func (m *MockSummarizer) GenerateTables(ctx context.Context, summary string) (string, error) {
	args := m.Called(ctx, summary)
	return args.String(0), args.Error(1)
}
