package usecase

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"MorningDigest/internal/domain"
)

func TestPickTopArticlesStableAndCapped(t *testing.T) {
	t.Parallel()

	var candidates []domain.CandidateArticle
	for i := 0; i < 12; i++ {
		score := 1.0
		if i%3 == 0 {
			score = 2.0
		}
		candidates = append(candidates, candidate(fmt.Sprintf("h%d", i), "S", fmt.Sprintf("https://e.com/%d", i), score))
	}

	top := PickTopArticles(candidates, DefaultDigestSize)
	assert.Len(t, top, 8)

	var headlines []string
	for _, article := range top {
		headlines = append(headlines, article.Headline)
	}
	assert.Equal(t, []string{"h0", "h3", "h6", "h9", "h1", "h2", "h4", "h5"}, headlines)

	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].RelevanceScore, top[i].RelevanceScore)
	}
	assert.Equal(t, "h0", candidates[0].Headline, "input must not be reordered")
}

func TestPickTopArticlesFewCandidates(t *testing.T) {
	t.Parallel()

	assert.Empty(t, PickTopArticles(nil, 8))
	assert.Len(t, PickTopArticles([]domain.CandidateArticle{candidate("a", "S", "u", 1)}, 0), 1)
}

func TestBuildHighlights(t *testing.T) {
	t.Parallel()

	articles := []domain.CandidateArticle{
		candidate("첫째", "한국경제", "u1", 3),
		candidate("둘째", "연합뉴스", "u2", 2),
		candidate("셋째", "SBS 뉴스", "u3", 1),
		candidate("넷째", "조선일보", "u4", 0.5),
	}
	assert.Equal(t, []string{"첫째 · 한국경제", "둘째 · 연합뉴스", "셋째 · SBS 뉴스"}, BuildHighlights(articles, 3))
	assert.Equal(t, []string{"첫째 · 한국경제"}, BuildHighlights(articles[:1], 3))
}

func TestMissingSourcesHighlight(t *testing.T) {
	t.Parallel()

	articles := []domain.CandidateArticle{candidate("a", "한국경제", "u1", 1)}

	note, ok := missingSourcesHighlight(articles, []string{"한국경제", "연합뉴스", "매일경제"})
	assert.True(t, ok)
	assert.Equal(t, "이번 키워드 기준으로 기사 없음: 연합뉴스, 매일경제", note)

	_, ok = missingSourcesHighlight(articles, []string{"한국경제"})
	assert.False(t, ok)
}

func TestRankedScore(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.5, rankedScore(1.5, 0), 1e-9)
	assert.InDelta(t, 1.4, rankedScore(1.5, 2), 1e-9)
	assert.InDelta(t, 0.983, rankedScore(1.3333, 7), 1e-9)
}
