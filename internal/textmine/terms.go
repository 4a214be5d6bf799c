package textmine

import (
	"math"
	"sort"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// ZScoreThreshold is the z-score a term's frequency must exceed to count as a
// predominant term of the documents.
const ZScoreThreshold = 2.0

// TermCounts counts occurrences of every term across all documents, including
// occurrences that overlap another match. Terms that never occur are omitted.
func TermCounts(documents []string, terms map[string]string) map[string]int {
	counts := make(map[string]int)

	patterns := make([]string, 0, len(terms))
	for term := range terms {
		if term != "" {
			patterns = append(patterns, term)
		}
	}
	if len(patterns) == 0 {
		return counts
	}
	sort.Strings(patterns)

	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		MatchKind: ahocorasick.StandardMatch,
		DFA:       true,
	})
	ac := builder.Build(patterns)

	for _, doc := range documents {
		if doc == "" {
			continue
		}
		iter := ac.IterOverlapping(doc)
		for m := iter.Next(); m != nil; m = iter.Next() {
			counts[patterns[m.Pattern()]]++
		}
	}
	return counts
}

// LinkableTerms returns the terms whose occurrence count across documents is
// an outlier (z-score above ZScoreThreshold) among all terms that occur,
// mapped to their identifiers. Matching is case-sensitive; lower-case both
// sides for case-insensitive matching.
func LinkableTerms(documents []string, terms map[string]string) map[string]string {
	counts := TermCounts(documents, terms)
	result := make(map[string]string)
	if len(counts) == 0 {
		return result
	}

	var sum float64
	for _, c := range counts {
		sum += float64(c)
	}
	mean := sum / float64(len(counts))

	var sq float64
	for _, c := range counts {
		d := float64(c) - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(counts)))
	if std == 0 {
		return result
	}

	for term, c := range counts {
		if (float64(c)-mean)/std > ZScoreThreshold {
			result[term] = terms[term]
		}
	}
	return result
}
