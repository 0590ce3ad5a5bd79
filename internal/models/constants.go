package models

const (
	// SentenceBoundaryRegex matches terminal punctuation, an optional closing
	// quote, and the whitespace (or end of text) after it.
	SentenceBoundaryRegex = `[.!?]+["'\x{201D}\x{2019}]?(?:\s+|$)`

	DefinitionRegex = `(?i)\b(what\s+is|what\s+are|what's|define|definition|meaning\s+of|what\s+does\s+.+\s+mean)\b`
	OriginRegex     = `(?i)\b(where\s+does|where\s+do|where\s+did|comes?\s+from|came\s+from|origins?|originated?)\b`
	HowToRegex      = `(?i)\b(how\s+can|how\s+to|how\s+do|how\s+should|improve|get\s+better)\b`
	ExampleRegex    = `(?i)\b(examples?|such\s+as|show\s+me|for\s+instance|illustrate)\b`
	AuthorRegex     = `(?i)\b(who|author|says|said|believes?|thinks?|according\s+to)\b`

	ThinkTag = `(?s)<think>.*?</think>`
)

var (
	AnswerPromptTemplate = `<transcript>
%s
</transcript>
Answer the question using only the transcript passages above. Cite the timestamps in brackets for every claim. If the passages do not answer the question, say so.
<question>
%s
</question>
`
)
