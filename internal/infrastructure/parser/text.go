package parser

import (
	"html"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const emptySummary = "요약 가능한 콘텐츠가 제공되지 않았습니다."

var whitespaceExpr = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceExpr.ReplaceAllString(s, " "))
}

// snippet turns a feed description into plain text.
func snippet(policy *bluemonday.Policy, raw string) string {
	if raw == "" {
		return ""
	}
	return collapseWhitespace(html.UnescapeString(policy.Sanitize(raw)))
}

// buildSummary collapses whitespace and truncates to maxLength characters,
// marking truncation with an ellipsis.
func buildSummary(raw string, maxLength int) string {
	clean := collapseWhitespace(raw)
	if clean == "" {
		return emptySummary
	}
	if maxLength <= 0 || utf8.RuneCountInString(clean) <= maxLength {
		return clean
	}
	runes := []rune(clean)
	return string(runes[:maxLength]) + "…"
}

// keywordPattern matches the literal keyword case-insensitively.
func keywordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(keyword))
}

// scoreArticle favours fresh articles and explicit keyword mentions:
// 1/max(1, hours since publication) + 1 when the keyword appears.
func scoreArticle(headline, summary string, pattern *regexp.Regexp, publishedAt, now time.Time) float64 {
	hours := math.Max(1, now.Sub(publishedAt).Hours())
	score := 1 / hours
	if pattern.MatchString(headline + " " + summary) {
		score++
	}
	return round3(score)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
