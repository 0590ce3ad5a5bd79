// Package chunker re-chunks transcript segments into overlapping sentence
// windows sized for embedding.
package chunker

import (
	"regexp"
	"strings"

	"transcript-rag/internal/models"
)

const (
	WindowSize = 3 // sentences per chunk
	Stride     = 1 // sentences advanced per step
)

var boundaryRe = regexp.MustCompile(models.SentenceBoundaryRegex)

// SplitSentences splits text at end-of-sentence punctuation. Text without any
// boundary comes back as a single sentence; blank text yields nil.
func SplitSentences(text string) []string {
	var sentences []string
	prev := 0
	for _, loc := range boundaryRe.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[prev:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		prev = loc[1]
	}
	if s := strings.TrimSpace(text[prev:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// Split slides a WindowSize window over the sentences of text, advancing by
// Stride, and stops at the first window that reaches the last sentence.
func Split(text string) []models.Chunk {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}
	if len(sentences) < WindowSize {
		return []models.Chunk{{
			Text:       strings.Join(sentences, " "),
			StartRatio: 0,
			EndRatio:   1,
		}}
	}

	total := float64(len(text))
	chunks := make([]models.Chunk, 0, len(sentences)-WindowSize+1)
	for i := 0; i < len(sentences); i += Stride {
		end := min(i+WindowSize, len(sentences))
		chunkText := strings.Join(sentences[i:end], " ")

		// first occurrence, even when a sentence repeats later in the text
		offset := strings.Index(text, sentences[i])
		if offset < 0 {
			offset = 0
		}
		chunks = append(chunks, models.Chunk{
			Text:       chunkText,
			StartRatio: clamp(float64(offset) / total),
			EndRatio:   clamp(float64(offset+len(chunkText)) / total),
		})

		if end == len(sentences) {
			break
		}
	}
	return chunks
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
