package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"transcript-rag/internal/models"
)

type recordingModel struct {
	prompt string
	reply  string
}

func (m *recordingModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		for _, p := range msg.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				m.prompt += tc.Text
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *recordingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

var answerResults = []models.SearchResult{
	{Segment: models.SegmentRef{ID: "s1", Text: "Trust the hunch.", Start: 65, End: 70.5}, Score: 0.9},
	{Segment: models.SegmentRef{ID: "s2", Text: " Practice helps. ", Start: 3, End: 9}, Score: 0.5},
}

func TestBuildContext(t *testing.T) {
	assert.Equal(t,
		"[1:05 - 1:10] Trust the hunch.\n[0:03 - 0:09] Practice helps.\n",
		BuildContext(answerResults))
	assert.Empty(t, BuildContext(nil))
}

func TestAnswer(t *testing.T) {
	m := &recordingModel{reply: "<think>scan passages</think>Trust your hunch [1:05]."}
	resp, err := Answer(context.Background(), m, "how do I use intuition?", answerResults)
	require.NoError(t, err)

	assert.Equal(t, "how do I use intuition?", resp.Query)
	assert.Equal(t, "s1,s2", resp.Source)
	assert.Equal(t, "Trust your hunch [1:05].", resp.Content)
	assert.Contains(t, m.prompt, "[1:05 - 1:10] Trust the hunch.")
	assert.Contains(t, m.prompt, "how do I use intuition?")
}

func TestAnswerWithoutPassages(t *testing.T) {
	m := &recordingModel{}
	_, err := Answer(context.Background(), m, "anything", nil)
	assert.ErrorIs(t, err, ErrNoPassages)
	assert.Empty(t, m.prompt)
}
