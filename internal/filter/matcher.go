package filter

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go-job-feed-watcher/internal/feed"
	"go-job-feed-watcher/internal/models"
)

var (
	jobKeywordRegex  = regexp.MustCompile(`\b(hiring|recrute|recrutement|recrutons|job|jobs|poste|cdi|cdd|freelance|opportunity|opening|position|apply|postuler|candidature|cv|resume|join our team|we'?re hiring)\b`)
	roleKeywordRegex = regexp.MustCompile(`\b(developer|developers|engineer|engineers|developpeur|developpeuse|ingenieur|backend|back-end|full-stack|fullstack|software|devops)\b`)
	stackRegex       = regexp.MustCompile(`\b(python|django|fastapi|spring boot|angular|next\.js|docker|kubernetes|ci/cd)\b|\.net\b`)
	locationRegex    = regexp.MustCompile(`\b(remote|teletravail|morocco|maroc|tanger|tangier)\b`)
	levelRegex       = regexp.MustCompile(`\b(junior|entry[\s-]?level|graduate|stage|stagiaire|intern|mid[\s-]?level)\b`)
	experienceRegex  = regexp.MustCompile(`\b([4-9]|\d{2,})\s*(\+|plus)?\s*(ans|years?|yoe)\b|\b(senior|lead|principal|staff|architect|manager)\b`)
)

const DefaultMinScore = 5

// CalculateMatchScore rates a candidate from 0 to 10 against the operator's profile.
func CalculateMatchScore(c feed.CandidatePosting) int {
	text := Normalize(c.Text)
	score := 0

	//job offer wording (+3)
	if jobKeywordRegex.MatchString(text) {
		score += 3
	}

	//engineering role (+3)
	if roleKeywordRegex.MatchString(text) {
		score += 3
	}

	//preferred stack (+2)
	if stackRegex.MatchString(text) {
		score += 2
	}

	//remote or local (+1)
	if locationRegex.MatchString(text) {
		score += 1
	}

	//junior to mid level (+1)
	if levelRegex.MatchString(text) {
		score += 1
	}

	//penalty: senior roles or long experience => -5
	if experienceRegex.MatchString(text) {
		score -= 5
	}

	if score > 10 {
		return 10
	}
	if score < 0 {
		return 0
	}
	return score
}

// KeywordMatcher matches candidates with keyword heuristics only. It is used
// when no language model is configured.
type KeywordMatcher struct {
	MinScore int
}

func NewKeywordMatcher(minScore int) *KeywordMatcher {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &KeywordMatcher{MinScore: minScore}
}

func (m *KeywordMatcher) Name() string {
	return "keywords"
}

func (m *KeywordMatcher) Match(_ context.Context, candidates []feed.CandidatePosting) ([]models.Match, error) {
	var matches []models.Match
	for _, c := range candidates {
		if !IsJobPost(c.Text) {
			continue
		}
		score := CalculateMatchScore(c)
		if score < m.MinScore {
			continue
		}
		matches = append(matches, models.Match{
			Link: c.Link,
			Text: FormatMatch(c, score),
		})
	}
	return matches, nil
}

const maxExcerptRunes = 600

// FormatMatch renders the operator-facing text for a keyword match.
func FormatMatch(c feed.CandidatePosting, score int) string {
	var b strings.Builder
	b.WriteString("🎯 JOB MATCH FOUND\n\n")
	fmt.Fprintf(&b, "Author: %s\n", c.Author)
	fmt.Fprintf(&b, "Match Score: %d/10\n", score)
	if c.Likes != nil && c.Comments != nil {
		fmt.Fprintf(&b, "👍 %d  💬 %d\n", *c.Likes, *c.Comments)
	}
	b.WriteString("\n")
	b.WriteString(excerpt(c.Text, maxExcerptRunes))
	if c.Link != "" {
		fmt.Fprintf(&b, "\n\nLink: %s", c.Link)
	}
	return b.String()
}

func excerpt(text string, max int) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max]) + "…"
}
