package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"MorningDigest/internal/domain"
	"MorningDigest/internal/ports"
	"MorningDigest/internal/schedule"
)

// BuilderOptions sizes digests and fixes the timezone used when a group has none.
type BuilderOptions struct {
	MaxArticles     int
	HighlightCount  int
	DefaultLocation *time.Location
	Clock           schedule.Clock
}

// DigestBuilder turns a keyword group into a persisted digest issue.
type DigestBuilder struct {
	store          ports.DigestStore
	retriever      ports.ArticleRetriever
	clock          schedule.Clock
	location       *time.Location
	maxArticles    int
	highlightCount int
	logger         *slog.Logger
}

// NewDigestBuilder wires the store and the article retriever.
func NewDigestBuilder(store ports.DigestStore, retriever ports.ArticleRetriever, opts BuilderOptions, log *slog.Logger) *DigestBuilder {
	b := &DigestBuilder{
		store:          store,
		retriever:      retriever,
		clock:          opts.Clock,
		location:       opts.DefaultLocation,
		maxArticles:    opts.MaxArticles,
		highlightCount: opts.HighlightCount,
		logger:         log,
	}
	if b.clock == nil {
		b.clock = schedule.SystemClock{}
	}
	if b.location == nil {
		b.location = schedule.LoadLocation(schedule.DefaultTimezone, time.UTC)
	}
	if b.maxArticles <= 0 {
		b.maxArticles = DefaultDigestSize
	}
	if b.highlightCount <= 0 {
		b.highlightCount = DefaultHighlightCount
	}
	if b.logger == nil {
		b.logger = slog.New(slog.DiscardHandler)
	}
	return b
}

// IssueDate is the idempotency date of group at ref: the calendar date in the
// group's timezone.
func (b *DigestBuilder) IssueDate(group domain.KeywordGroup, ref time.Time) string {
	return schedule.LocalDate(ref, schedule.LoadLocation(group.Timezone, b.location))
}

// GenerateDigestForGroup loads the group and builds today's issue for it.
func (b *DigestBuilder) GenerateDigestForGroup(ctx context.Context, groupID string) (*domain.DigestIssue, error) {
	group, err := b.store.GetKeywordGroupByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load group %s: %w", groupID, err)
	}
	if group == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, groupID)
	}
	return b.generate(ctx, *group, b.clock.Now())
}

func (b *DigestBuilder) generate(ctx context.Context, group domain.KeywordGroup, ref time.Time) (*domain.DigestIssue, error) {
	words := group.Words()
	if len(words) == 0 {
		return nil, domain.ErrNoKeywords
	}
	if len(group.Recipients) == 0 {
		return nil, domain.ErrNoRecipients
	}

	maxSummary, err := b.summaryLength(ctx, group)
	if err != nil {
		return nil, err
	}

	candidates, err := b.collect(ctx, words, maxSummary)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w for group %s", domain.ErrNoArticles, group.Name)
	}

	top := PickTopArticles(candidates, b.maxArticles)
	highlights := BuildHighlights(top, b.highlightCount)
	if b.retriever != nil {
		if note, ok := missingSourcesHighlight(top, b.retriever.SourceNames()); ok && len(highlights) < domain.MaxHighlights {
			highlights = append(highlights, note)
		}
	}

	date := b.IssueDate(group, ref)
	articles := make([]domain.DigestArticle, len(top))
	for i, article := range top {
		articles[i] = domain.DigestArticle{
			Headline:       article.Headline,
			Summary:        article.Summary,
			SourceName:     article.SourceName,
			SourceURL:      article.SourceURL,
			PublishedAt:    article.PublishedAt,
			RelevanceScore: rankedScore(article.RelevanceScore, i),
		}
	}

	issue, err := b.store.CreateDigestIssue(ctx, domain.NewDigestIssue{
		GroupID:    group.ID,
		GroupName:  group.Name,
		Date:       date,
		Subject:    fmt.Sprintf("%s 주요 이슈 - %s", group.Name, date),
		Highlights: highlights,
		Articles:   articles,
	})
	if err != nil {
		return nil, fmt.Errorf("create digest issue: %w", err)
	}

	b.logger.Info("digest issue created",
		"group_id", group.ID,
		"issue_id", issue.ID,
		"date", date,
		"articles", len(articles),
		"candidates", len(candidates))
	return issue, nil
}

func (b *DigestBuilder) summaryLength(ctx context.Context, group domain.KeywordGroup) (int, error) {
	setting, err := b.store.GetDeliverySettingForGroup(ctx, group.ID)
	if err != nil {
		return 0, fmt.Errorf("load delivery setting: %w", err)
	}
	if setting == nil {
		fallback := domain.DefaultDeliverySetting(group.ID)
		if group.SummaryLength != "" {
			fallback.SummaryLength = group.SummaryLength
		}
		setting = &fallback
	}
	return setting.SummaryLength.MaxChars(), nil
}

// collect fetches every keyword concurrently. A keyword whose retrieval fails
// contributes nothing; the others still count.
func (b *DigestBuilder) collect(ctx context.Context, words []string, maxSummary int) ([]domain.CandidateArticle, error) {
	if b.retriever == nil {
		return nil, nil
	}

	batches := make([][]domain.CandidateArticle, len(words))
	var g errgroup.Group
	for i, word := range words {
		g.Go(func() error {
			articles, err := b.retriever.FetchArticlesForKeyword(ctx, word, maxSummary)
			if err != nil {
				b.logger.Warn("keyword retrieval failed", "keyword", word, "error", err)
				return nil
			}
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
	return domain.DeduplicateArticles(flattened), nil
}
