package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"transcript-rag/internal/config"
	"transcript-rag/internal/models"
)

const defaultSpeakingRate = 2.5 // words per second

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// ParseTranscript loads a transcript file into ordered segments. Formats
// without timing get start and end estimated from word count at
// cfg.RAG.SpeakingRate. Segments with blank text are dropped and segments
// without an ID are named seg-<n>.
func ParseTranscript(filePath string, cfg *config.Config) ([]models.TranscriptSegment, error) {
	rate := defaultSpeakingRate
	if cfg != nil && cfg.RAG.SpeakingRate > 0 {
		rate = cfg.RAG.SpeakingRate
	}

	var (
		segments []models.TranscriptSegment
		err      error
	)
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".json":
		segments, err = parseJSONFile(filePath)
	case ".srt":
		segments, err = parseSRTFile(filePath)
	case ".txt":
		segments, err = parseText(filePath, rate)
	case ".md":
		segments, err = parseMarkdown(filePath, rate)
	case ".docx":
		segments, err = parseDOCX(filePath, rate)
	case ".pdf":
		segments, err = parsePDF(filePath, rate)
	case ".xlsx":
		segments, err = parseXLSX(filePath, rate)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	segments = finalize(segments)
	log.Info().Str("file", filePath).Int("segments", len(segments)).Msg("Parsed transcript")
	return segments, nil
}

func parseText(filePath string, rate float64) ([]models.TranscriptSegment, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return estimateTimes(splitParagraphs(string(data)), rate), nil
}

// splitParagraphs splits on blank lines and collapses whitespace inside each
// paragraph.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = collapseSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// estimateTimes lays paragraphs end to end, each lasting words/rate seconds.
func estimateTimes(paragraphs []string, rate float64) []models.TranscriptSegment {
	segments := make([]models.TranscriptSegment, 0, len(paragraphs))
	clock := 0.0
	for _, p := range paragraphs {
		d := float64(len(strings.Fields(p))) / rate
		segments = append(segments, models.TranscriptSegment{
			Start: clock,
			End:   clock + d,
			Text:  p,
		})
		clock += d
	}
	return segments
}

func finalize(segments []models.TranscriptSegment) []models.TranscriptSegment {
	out := make([]models.TranscriptSegment, 0, len(segments))
	dropped := 0
	for _, s := range segments {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			dropped++
			continue
		}
		if s.ID == "" {
			s.ID = fmt.Sprintf("seg-%d", len(out)+1)
		}
		if s.End < s.Start {
			s.End = s.Start
		}
		out = append(out, s)
	}
	if dropped > 0 {
		log.Debug().Int("dropped", dropped).Msg("Dropped empty segments")
	}
	return out
}
