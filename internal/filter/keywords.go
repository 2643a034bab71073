package filter

import (
	"strings"
	"unicode"

	"go-job-feed-watcher/internal/feed"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s and strips diacritics, so "Développeur" matches "developpeur".
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.ToLower(result)
}

// IsJobPost reports whether the text reads like a job offer for an engineering role.
func IsJobPost(text string) bool {
	normalized := Normalize(text)
	return jobKeywordRegex.MatchString(normalized) && roleKeywordRegex.MatchString(normalized)
}

// Prefilter keeps the candidates that look like engineering job posts, in order.
func Prefilter(candidates []feed.CandidatePosting) []feed.CandidatePosting {
	var kept []feed.CandidatePosting
	for _, c := range candidates {
		if IsJobPost(c.Text) {
			kept = append(kept, c)
		}
	}
	return kept
}
