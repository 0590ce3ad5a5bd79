package llmservice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"transcript-rag/internal/config"
	"transcript-rag/internal/models"
)

var (
	ErrNoModel    = errors.New("inference model is not configured")
	ErrNoResponse = errors.New("model returned no choices")
)

var thinkTag = regexp.MustCompile(models.ThinkTag)

// NewModel builds the chat model for llmConfig. Anything other than ollama is
// treated as an OpenAI-compatible endpoint.
func NewModel(llmConfig *config.LLMConfig) (llms.Model, error) {
	if llmConfig == nil || llmConfig.Model == "" {
		return nil, ErrNoModel
	}
	log.Debug().Str("provider", llmConfig.Provider).Str("model", llmConfig.Model).Msg("Creating inference model")

	if strings.EqualFold(llmConfig.Provider, config.ProviderOllama) {
		llm, err := ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		return llm, nil
	}
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	return llm, nil
}

// call llm
func GenerateContent(ctx context.Context, llm llms.Model, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return llm.GenerateContent(ctx, messages, options...)
}

// Complete sends prompt as a single human message and returns the first
// choice with any <think> block removed.
func Complete(ctx context.Context, llm llms.Model, prompt string, options ...llms.CallOption) (string, error) {
	msgContent := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}
	res, err := GenerateContent(ctx, llm, msgContent, options...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if res == nil || len(res.Choices) == 0 {
		return "", ErrNoResponse
	}
	return StripThinking(res.Choices[0].Content), nil
}

func StripThinking(s string) string {
	return strings.TrimSpace(thinkTag.ReplaceAllString(s, ""))
}
