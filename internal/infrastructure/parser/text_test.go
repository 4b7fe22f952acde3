package parser

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
)

func TestSnippetStripsMarkup(t *testing.T) {
	t.Parallel()

	policy := bluemonday.StrictPolicy()
	assert.Equal(t, "A & B 요약", snippet(policy, "<p>A &amp; B</p>\n\n <i>요약</i>"))
	assert.Equal(t, "", snippet(policy, ""))
}

func TestBuildSummary(t *testing.T) {
	t.Parallel()

	assert.Equal(t, emptySummary, buildSummary("   \n ", 80))
	assert.Equal(t, "짧은 요약", buildSummary("짧은   요약", 80))

	long := strings.Repeat("가", 120)
	got := buildSummary(long, 80)
	assert.Equal(t, 81, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestScoreArticle(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	pattern := keywordPattern("c++")

	assert.InDelta(t, 2.0, scoreArticle("New C++ release", "", pattern, now.Add(-10*time.Minute), now), 0.0001)
	assert.InDelta(t, 0.25, scoreArticle("Rust release", "", pattern, now.Add(-4*time.Hour), now), 0.0001)
	assert.InDelta(t, 0.333, scoreArticle("Go", "", pattern, now.Add(-3*time.Hour), now), 0.0001)
}
