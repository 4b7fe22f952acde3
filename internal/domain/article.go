package domain

import "time"

// CandidateArticle is a feed item that matched a keyword before ranking.
type CandidateArticle struct {
	Headline       string
	Summary        string
	SourceName     string
	SourceURL      string
	PublishedAt    time.Time
	RelevanceScore float64
}

// DedupKey identifies a candidate across sources: the canonical URL, or the
// headline when the feed item carried no link.
func (c CandidateArticle) DedupKey() string {
	if c.SourceURL != "" {
		return c.SourceURL
	}
	return c.Headline
}

// DigestArticle is a ranked article persisted as part of a digest issue.
type DigestArticle struct {
	ID             string    `json:"id"`
	IssueID        string    `json:"issueId"`
	Headline       string    `json:"headline"`
	Summary        string    `json:"summary"`
	SourceName     string    `json:"sourceName"`
	SourceURL      string    `json:"sourceUrl"`
	PublishedAt    time.Time `json:"publishedAt"`
	RelevanceScore float64   `json:"relevanceScore"`
}

// DeduplicateArticles keeps the first candidate per DedupKey, preserving order.
func DeduplicateArticles(articles []CandidateArticle) []CandidateArticle {
	seen := make(map[string]struct{}, len(articles))
	out := make([]CandidateArticle, 0, len(articles))
	for _, article := range articles {
		key := article.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, article)
	}
	return out
}
