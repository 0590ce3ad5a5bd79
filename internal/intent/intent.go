// Package intent tags queries with coarse rhetorical intents and scores how
// well a passage's wording fits them.
package intent

import (
	"strings"
)

// Classify returns every label whose pattern matches the query, or General.
func Classify(query string) []Label {
	var labels []Label
	for _, r := range Rules {
		if r.Pattern.MatchString(query) {
			labels = append(labels, r.Label)
		}
	}
	if len(labels) == 0 {
		return []Label{General}
	}
	return labels
}

// Boost adds PhraseBoost for each indicator phrase of each intent found as a
// whole word or phrase in the passage, capped at MaxBoost. Single words also
// match their inflections.
func Boost(labels []Label, passage string) float64 {
	text := strings.ToLower(passage)
	boost := 0.0
	for _, label := range labels {
		rule, ok := ruleFor(label)
		if !ok {
			continue
		}
		for _, phrase := range rule.Phrases {
			if phrasePatterns[phrase].MatchString(text) {
				boost += PhraseBoost
			}
		}
	}
	return min(boost, MaxBoost)
}

func ruleFor(label Label) (Rule, bool) {
	for _, r := range Rules {
		if r.Label == label {
			return r, true
		}
	}
	return Rule{}, false
}

func Strings(labels []Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}
