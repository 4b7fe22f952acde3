package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"MorningDigest/internal/domain"
	"MorningDigest/internal/metrics"
	"MorningDigest/internal/ports"
	"MorningDigest/internal/scanner"
	"MorningDigest/internal/schedule"
)

const (
	defaultMaxPerSource    = 4
	defaultScrapeThreshold = 200
	defaultUserAgent       = "MorningDigestBot/0.1 (+https://example.com)"
)

// RetrieverOptions tunes a FeedRetriever; zero values select defaults.
type RetrieverOptions struct {
	Client          *http.Client
	UserAgent       string
	MaxPerSource    int
	ScrapeThreshold int
	Body            *BodyFetcher
	Clock           schedule.Clock
}

// FeedRetriever fetches every registered source for a keyword and turns
// matching items into scored candidates.
type FeedRetriever struct {
	client          *http.Client
	registry        *scanner.Registry
	body            *BodyFetcher
	clock           schedule.Clock
	policy          *bluemonday.Policy
	userAgent       string
	maxPerSource    int
	scrapeThreshold int
	logger          *slog.Logger
}

var _ ports.ArticleRetriever = (*FeedRetriever)(nil)

// NewFeedRetriever wires the source registry with an HTTP client.
func NewFeedRetriever(reg *scanner.Registry, opts RetrieverOptions, log *slog.Logger) *FeedRetriever {
	r := &FeedRetriever{
		client:          opts.Client,
		registry:        reg,
		body:            opts.Body,
		clock:           opts.Clock,
		policy:          bluemonday.StrictPolicy(),
		userAgent:       opts.UserAgent,
		maxPerSource:    opts.MaxPerSource,
		scrapeThreshold: opts.ScrapeThreshold,
		logger:          log,
	}
	if r.client == nil {
		r.client = &http.Client{Timeout: 15 * time.Second}
	}
	if r.clock == nil {
		r.clock = schedule.SystemClock{}
	}
	if r.userAgent == "" {
		r.userAgent = defaultUserAgent
	}
	if r.maxPerSource <= 0 {
		r.maxPerSource = defaultMaxPerSource
	}
	if r.scrapeThreshold <= 0 {
		r.scrapeThreshold = defaultScrapeThreshold
	}
	return r
}

// SourceNames lists the configured source names in retrieval order.
func (r *FeedRetriever) SourceNames() []string {
	if r.registry == nil {
		return nil
	}
	return r.registry.Names()
}

// FetchArticlesForKeyword queries all sources concurrently. A failing source
// is logged and skipped; the result is deduplicated by source URL and keeps
// source order, then item order.
func (r *FeedRetriever) FetchArticlesForKeyword(ctx context.Context, keyword string, maxSummaryLength int) ([]domain.CandidateArticle, error) {
	if r.registry == nil {
		return nil, fmt.Errorf("source registry is not configured")
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, nil
	}

	sources := r.registry.All()
	batches := make([][]domain.CandidateArticle, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			articles, err := r.fetchSource(ctx, src, keyword, maxSummaryLength)
			if err != nil {
				metrics.FeedFetchTotal.WithLabelValues(src.ID, "error").Inc()
				r.warn("feed source failed", "source", src.ID, "keyword", keyword, "error", err)
				return nil
			}
			metrics.FeedFetchTotal.WithLabelValues(src.ID, "ok").Inc()
			batches[i] = articles
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var flattened []domain.CandidateArticle
	for _, batch := range batches {
		flattened = append(flattened, batch...)
	}

	deduped := domain.DeduplicateArticles(flattened)
	r.debug("keyword retrieval done", "keyword", keyword, "candidates", len(flattened), "unique", len(deduped))
	return deduped, nil
}

func (r *FeedRetriever) fetchSource(ctx context.Context, src scanner.Source, keyword string, maxSummaryLength int) ([]domain.CandidateArticle, error) {
	feedURL := src.FeedURL(keyword)
	feed, err := r.fetchFeed(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	lowerKeyword := strings.ToLower(keyword)
	var matched []*gofeed.Item
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		haystack := strings.ToLower(item.Title + " " + r.itemSnippet(item))
		if !strings.Contains(haystack, lowerKeyword) {
			continue
		}
		matched = append(matched, item)
		if len(matched) == r.maxPerSource {
			break
		}
	}

	pattern := keywordPattern(keyword)
	now := r.clock.Now()
	articles := make([]domain.CandidateArticle, len(matched))

	var g errgroup.Group
	for i, item := range matched {
		g.Go(func() error {
			articles[i] = r.buildCandidate(ctx, src, feedURL, keyword, item, maxSummaryLength, pattern, now)
			return nil
		})
	}
	_ = g.Wait()

	return articles, nil
}

func (r *FeedRetriever) buildCandidate(ctx context.Context, src scanner.Source, feedURL, keyword string, item *gofeed.Item, maxSummaryLength int, pattern *regexp.Regexp, now time.Time) domain.CandidateArticle {
	headline := strings.TrimSpace(item.Title)
	if headline == "" {
		headline = keyword + " 업데이트"
	}
	sourceURL := strings.TrimSpace(item.Link)
	if sourceURL == "" {
		sourceURL = feedURL
	}

	summarySource := r.itemSnippet(item)
	if maxSummaryLength >= r.scrapeThreshold && r.body != nil {
		if body, ok := r.body.Fetch(ctx, sourceURL); ok {
			summarySource = body
		}
	}
	summary := buildSummary(summarySource, maxSummaryLength)

	publishedAt := now
	switch {
	case item.PublishedParsed != nil:
		publishedAt = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		publishedAt = *item.UpdatedParsed
	}

	return domain.CandidateArticle{
		Headline:       headline,
		Summary:        summary,
		SourceName:     src.Name,
		SourceURL:      sourceURL,
		PublishedAt:    publishedAt,
		RelevanceScore: scoreArticle(headline, summary, pattern, publishedAt, now),
	}
}

func (r *FeedRetriever) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to load feed %s: %s", feedURL, resp.Status)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func (r *FeedRetriever) itemSnippet(item *gofeed.Item) string {
	if text := snippet(r.policy, item.Description); text != "" {
		return text
	}
	return snippet(r.policy, item.Content)
}

func (r *FeedRetriever) debug(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *FeedRetriever) warn(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
