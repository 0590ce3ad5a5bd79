package intent

import (
	"regexp"
	"strings"

	"transcript-rag/internal/models"
)

type Label string

const (
	Definition Label = "definition"
	Origin     Label = "origin"
	HowTo      Label = "howTo"
	Example    Label = "example"
	Author     Label = "author"
	General    Label = "general"
)

const (
	PhraseBoost = 0.1
	MaxBoost    = 0.3
)

// Rule ties an intent to the query pattern that triggers it and the phrases
// whose presence in a passage suggests the passage answers that intent.
type Rule struct {
	Label   Label
	Pattern *regexp.Regexp
	Phrases []string
}

// Rules is evaluated in order; Classify returns labels in this order.
var Rules = []Rule{
	{
		Label:   Definition,
		Pattern: regexp.MustCompile(models.DefinitionRegex),
		Phrases: []string{"is a", "is the", "refers to", "means", "defined as", "is when"},
	},
	{
		Label:   Origin,
		Pattern: regexp.MustCompile(models.OriginRegex),
		Phrases: []string{"comes from", "come from", "originates", "rooted in", "evolved", "began", "because"},
	},
	{
		Label:   HowTo,
		Pattern: regexp.MustCompile(models.HowToRegex),
		Phrases: []string{"by", "through", "learn to", "practice", "trust"},
	},
	{
		Label:   Example,
		Pattern: regexp.MustCompile(models.ExampleRegex),
		Phrases: []string{"like when", "for example", "for instance", "such as", "imagine", "let's say"},
	},
	{
		Label:   Author,
		Pattern: regexp.MustCompile(models.AuthorRegex),
		Phrases: []string{"i think", "i believe", "says", "said", "according to", "in my view"},
	},
}

var phrasePatterns = compilePhrases(Rules)

func compilePhrases(rules []Rule) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp)
	for _, r := range rules {
		for _, p := range r.Phrases {
			if _, ok := patterns[p]; !ok {
				patterns[p] = regexp.MustCompile(`\b` + phrasePattern(p) + `\b`)
			}
		}
	}
	return patterns
}

// phrasePattern lets a single-word phrase match its inflected forms
// ("trust" matches "trusts", "trusted" and "trusting"; "practice" matches
// "practicing"). Multi-word phrases match literally.
func phrasePattern(phrase string) string {
	if strings.Contains(phrase, " ") {
		return regexp.QuoteMeta(phrase)
	}
	if stem, ok := strings.CutSuffix(phrase, "e"); ok {
		return regexp.QuoteMeta(stem) + `(?:e|es|ed|ing)`
	}
	return regexp.QuoteMeta(phrase) + `(?:s|es|ed|ing)?`
}
