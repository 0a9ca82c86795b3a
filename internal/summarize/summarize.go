package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"specsum/internal/config"
)

// ErrEmptyCompletion indicates the model answered but produced no usable text.
var ErrEmptyCompletion = errors.New("empty completion response")

// Summarizer produces an executive summary from extracted document text and,
// as a second pass, technical tables derived from that summary. The caller
// treats both as opaque text -> text functions with a possible error outcome.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
	GenerateTables(ctx context.Context, summary string) (string, error)
}

// OpenAISummarizer calls the OpenAI chat-completion API.
type OpenAISummarizer struct {
	client         *openai.Client
	model          string
	temperature    float32
	maxTokens      int
	maxPromptChars int
}

// NewOpenAISummarizer builds a summarizer from configuration. A non-empty
// BaseURL redirects all calls, which is how tests point the client at a
// local fake server.
func NewOpenAISummarizer(cfg config.OpenAIConfig) *OpenAISummarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAISummarizer{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          cfg.Model,
		temperature:    float32(cfg.Temperature),
		maxTokens:      cfg.MaxTokens,
		maxPromptChars: cfg.MaxPromptChars,
	}
}

var _ Summarizer = (*OpenAISummarizer)(nil)

// Summarize sends the document text, bounded to the configured character
// limit, through the summary prompt template.
func (s *OpenAISummarizer) Summarize(ctx context.Context, text string) (string, error) {
	bounded := truncate(text, s.maxPromptChars)
	return s.complete(ctx, summarySystemPrompt, fmt.Sprintf(summaryUserPrompt, bounded))
}

// GenerateTables derives the technical tables from an already-generated
// summary. It runs as a separate completion so table generation failing
// never costs the summary.
func (s *OpenAISummarizer) GenerateTables(ctx context.Context, summary string) (string, error) {
	return s.complete(ctx, tablesSystemPrompt, fmt.Sprintf(tablesUserPrompt, summary))
}

func (s *OpenAISummarizer) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}

// truncate bounds s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
