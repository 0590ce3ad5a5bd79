package models

// TranscriptSegment is one contiguous speech span produced by speech-to-text.
type TranscriptSegment struct {
	ID    string  `json:"id"`
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
	Text  string  `json:"text"`
}

// Chunk is an overlapping window of sentences taken from one segment.
// StartRatio and EndRatio locate the window within the segment's text.
type Chunk struct {
	Text       string  `json:"text"`
	StartRatio float64 `json:"start_ratio"`
	EndRatio   float64 `json:"end_ratio"`
}

// IndexedPassage is what gets stored in the hybrid index, one per chunk.
type IndexedPassage struct {
	PassageID   string
	SegmentID   string
	ChunkText   string
	SegmentText string // full parent text, for display
	Start       float64
	End         float64
	Embedding   []float32
}

// SegmentRef is the display view of a segment inside a search result.
type SegmentRef struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type SearchResult struct {
	Segment SegmentRef `json:"segment"`
	Score   float64    `json:"score"`
}

// ProgressEvent is emitted while an operation runs. Err is set only on the
// terminal event of a failed operation.
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

type PromptResponse struct {
	Query   string
	Source  string
	Content string
}
