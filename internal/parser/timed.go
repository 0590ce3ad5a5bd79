package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"transcript-rag/internal/models"
)

type jsonSegment struct {
	ID    json.RawMessage `json:"id"`
	Start float64         `json:"start"`
	End   float64         `json:"end"`
	Text  string          `json:"text"`
}

func parseJSONFile(filePath string) ([]models.TranscriptSegment, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return parseJSON(data)
}

// parseJSON accepts either a bare array of segments or an object with a
// "segments" array. IDs may be strings or numbers.
func parseJSON(data []byte) ([]models.TranscriptSegment, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var raw []jsonSegment
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	} else {
		var wrapper struct {
			Segments []jsonSegment `json:"segments"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, err
		}
		raw = wrapper.Segments
	}

	segments := make([]models.TranscriptSegment, 0, len(raw))
	for _, r := range raw {
		segments = append(segments, models.TranscriptSegment{
			ID:    rawID(r.ID),
			Start: r.Start,
			End:   r.End,
			Text:  r.Text,
		})
	}
	return segments, nil
}

func rawID(id json.RawMessage) string {
	if len(id) == 0 || string(id) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(id, &s); err == nil {
		return s
	}
	return string(id)
}

// frame is one SRT cue line with its cue's time range.
type frame struct {
	text       string
	start, end float64
}

func parseSRTFile(filePath string) ([]models.TranscriptSegment, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	frames, err := parseSRT(string(data))
	if err != nil {
		return nil, err
	}
	return mergeFrames(frames), nil
}

// parseSRT reads cues of the form
//
//	1
//	00:00:00,000 --> 00:00:01,830
//	I'm happy to
//	have you here today.
func parseSRT(transcript string) ([]frame, error) {
	var (
		frames     []frame
		start, end float64
	)
	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if line == "" || isDigitOnly(line) {
			continue
		}
		if strings.Contains(line, "-->") {
			parts := strings.SplitN(line, "-->", 2)
			var err error
			if start, err = parseSRTTime(parts[0]); err != nil {
				return nil, err
			}
			// cue settings may follow the end time
			endField := strings.Fields(parts[1])
			if len(endField) == 0 {
				return nil, fmt.Errorf("missing end time in %q", line)
			}
			if end, err = parseSRTTime(endField[0]); err != nil {
				return nil, err
			}
			continue
		}
		frames = append(frames, frame{text: line, start: start, end: end})
	}
	return frames, nil
}

// parseSRTTime parses HH:MM:SS,mmm (a dot is accepted for the comma).
func parseSRTTime(ts string) (float64, error) {
	ts = strings.ReplaceAll(strings.TrimSpace(ts), ",", ".")
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	s, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	return float64(h*3600+m*60) + s, nil
}

const (
	// srtSegmentSentences is how many sentences a merged SRT segment holds
	// before it is closed.
	srtSegmentSentences = 5
	// srtPause closes a segment early when the next cue starts this many
	// seconds after a sentence ends.
	srtPause = 2.0
)

// mergeFrames joins consecutive frames into segments of up to
// srtSegmentSentences sentences. A segment only closes at a sentence end,
// either when it is full or before a pause of srtPause seconds, so it spans
// from its first frame's start to its last frame's end.
func mergeFrames(frames []frame) []models.TranscriptSegment {
	var (
		segments  []models.TranscriptSegment
		current   strings.Builder
		start     float64
		end       float64
		sentences int
	)
	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, models.TranscriptSegment{Start: start, End: end, Text: current.String()})
			current.Reset()
		}
		sentences = 0
	}
	for i, f := range frames {
		if current.Len() == 0 {
			start = f.start
		} else {
			current.WriteString(" ")
		}
		current.WriteString(f.text)
		end = f.end

		if !endsSentence(f.text) {
			continue
		}
		sentences++
		pause := i+1 < len(frames) && frames[i+1].start-f.end >= srtPause
		if sentences >= srtSegmentSentences || pause {
			flush()
		}
	}
	flush()
	return segments
}

func endsSentence(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

func isDigitOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
