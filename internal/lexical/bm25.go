// Package lexical is a small in-memory BM25 index over passage text.
package lexical

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

const (
	k1 = 1.2
	b  = 0.75
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "can": {},
	"do": {}, "does": {}, "for": {}, "from": {}, "how": {}, "i": {}, "if": {}, "in": {}, "is": {},
	"it": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "so": {}, "that": {}, "the": {},
	"this": {}, "to": {}, "was": {}, "what": {}, "when": {}, "where": {}, "who": {}, "why": {},
	"with": {}, "you": {}, "your": {},
}

type Match struct {
	ID    string
	Score float64
}

type document struct {
	length int
	tf     map[string]int
}

type Index struct {
	mu       sync.RWMutex
	docs     map[string]*document
	df       map[string]int
	totalLen int
}

func New() *Index {
	return &Index{
		docs: make(map[string]*document),
		df:   make(map[string]int),
	}
}

// Tokenize lowercases text, splits on anything that is not a letter or digit
// and drops stop words.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Add indexes text under id, replacing any previous text for that id.
func (ix *Index) Add(id, text string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.docs[id]; ok {
		ix.removeLocked(id, old)
	}

	tokens := Tokenize(text)
	doc := &document{length: len(tokens), tf: make(map[string]int, len(tokens))}
	for _, tok := range tokens {
		doc.tf[tok]++
	}
	for tok := range doc.tf {
		ix.df[tok]++
	}
	ix.docs[id] = doc
	ix.totalLen += doc.length
}

func (ix *Index) removeLocked(id string, doc *document) {
	for tok := range doc.tf {
		if ix.df[tok]--; ix.df[tok] <= 0 {
			delete(ix.df, tok)
		}
	}
	ix.totalLen -= doc.length
	delete(ix.docs, id)
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Search scores every document sharing at least one query term and returns
// the best limit matches, highest score first. Ties are broken by ID.
func (ix *Index) Search(query string, limit int) []Match {
	terms := unique(Tokenize(query))
	if len(terms) == 0 || limit <= 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := float64(len(ix.docs))
	if n == 0 {
		return nil
	}
	avgLen := float64(ix.totalLen) / n
	if avgLen == 0 {
		avgLen = 1
	}

	scores := make(map[string]float64)
	for _, term := range terms {
		df := ix.df[term]
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
		for id, doc := range ix.docs {
			tf := float64(doc.tf[term])
			if tf == 0 {
				continue
			}
			norm := k1 * (1 - b + b*float64(doc.length)/avgLen)
			scores[id] += idf * tf * (k1 + 1) / (tf + norm)
		}
	}

	matches := make([]Match, 0, len(scores))
	for id, s := range scores {
		matches = append(matches, Match{ID: id, Score: s})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func unique(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
