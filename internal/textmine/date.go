package textmine

import (
	"regexp"
	"time"

	"github.com/araddon/dateparse"
)

// ISOLayout is the layout ExtractDate formats its result with.
const ISOLayout = "2006-01-02T15:04:05"

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),                  // YYYY-MM-DD
	regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`),                  // MM/DD/YYYY
	regexp.MustCompile(`\b\d{2}-\d{2}-\d{4}\b`),                  // DD-MM-YYYY
	regexp.MustCompile(`\b\d{1,2} \w+ \d{4}\b`),                  // D Month YYYY
	regexp.MustCompile(`\b\w+ \d{1,2}, \d{4}\b`),                 // Month D, YYYY
	regexp.MustCompile(`\b\d{1,2}(?:st|nd|rd|th)? \w+ \d{4}\b`),  // Dth Month YYYY
	regexp.MustCompile(`\b\w+ \d{1,2}(?:st|nd|rd|th)?, \d{4}\b`), // Month Dth, YYYY
}

var ordinalSuffix = regexp.MustCompile(`(\d)(?:st|nd|rd|th)\b`)

// DateCandidates returns the distinct date-like strings found in text.
func DateCandidates(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range datePatterns {
		for _, m := range p.FindAllString(text, -1) {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// ExtractDate returns the latest parseable date in text formatted with
// ISOLayout, or "" if no candidate parses. Report front pages often carry
// several dates; the most recent is usually the effective date.
func ExtractDate(text string) string {
	var latest time.Time
	for _, candidate := range DateCandidates(text) {
		t, err := dateparse.ParseIn(ordinalSuffix.ReplaceAllString(candidate, "$1"), time.UTC)
		if err != nil {
			continue
		}
		if t.After(latest) {
			latest = t
		}
	}
	if latest.IsZero() {
		return ""
	}
	return latest.Format(ISOLayout)
}
