package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"transcript-rag/internal/helper"
	"transcript-rag/internal/llmservice"
	"transcript-rag/internal/models"
)

// BuildContext renders results as timestamped transcript lines, best first.
func BuildContext(results []models.SearchResult) string {
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "[%s - %s] %s\n",
			helper.FormatTimestamp(r.Segment.Start),
			helper.FormatTimestamp(r.Segment.End),
			strings.TrimSpace(r.Segment.Text))
	}
	return sb.String()
}

// Answer asks llm to answer query from the retrieved segments only.
func Answer(ctx context.Context, llm llms.Model, query string, results []models.SearchResult) (*models.PromptResponse, error) {
	if len(results) == 0 {
		return nil, ErrNoPassages
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Segment.ID
	}
	prompt := fmt.Sprintf(models.AnswerPromptTemplate, BuildContext(results), query)
	log.Debug().Int("passages", len(results)).Msg("Generating answer")

	content, err := llmservice.Complete(ctx, llm, prompt)
	if err != nil {
		return nil, err
	}
	return &models.PromptResponse{
		Query:   query,
		Source:  strings.Join(ids, ","),
		Content: content,
	}, nil
}
