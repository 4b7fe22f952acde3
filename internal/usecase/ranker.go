package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"MorningDigest/internal/domain"
)

const (
	// DefaultDigestSize is how many articles a digest carries.
	DefaultDigestSize = 8
	// DefaultHighlightCount is how many headlines are summarised at the top.
	DefaultHighlightCount = 3

	rankDecrement = 0.05
)

// PickTopArticles returns at most limit candidates ordered by descending
// relevance. Equal scores keep retrieval order.
func PickTopArticles(candidates []domain.CandidateArticle, limit int) []domain.CandidateArticle {
	if limit <= 0 {
		limit = DefaultDigestSize
	}
	sorted := make([]domain.CandidateArticle, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RelevanceScore > sorted[j].RelevanceScore
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// BuildHighlights formats the first count articles as "headline · source".
func BuildHighlights(articles []domain.CandidateArticle, count int) []string {
	if count <= 0 {
		count = DefaultHighlightCount
	}
	highlights := make([]string, 0, count)
	for _, article := range articles {
		if len(highlights) == count {
			break
		}
		highlights = append(highlights, fmt.Sprintf("%s · %s", article.Headline, article.SourceName))
	}
	return highlights
}

// missingSourcesHighlight names configured sources absent from articles.
func missingSourcesHighlight(articles []domain.CandidateArticle, sourceNames []string) (string, bool) {
	covered := make(map[string]struct{}, len(articles))
	for _, article := range articles {
		covered[article.SourceName] = struct{}{}
	}
	var missing []string
	for _, name := range sourceNames {
		if _, ok := covered[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return "", false
	}
	return "이번 키워드 기준으로 기사 없음: " + strings.Join(missing, ", "), true
}

// rankedScore is the stored score of the article at position idx.
func rankedScore(score float64, idx int) float64 {
	return math.Round((score-float64(idx)*rankDecrement)*1000) / 1000
}
