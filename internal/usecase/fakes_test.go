package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MorningDigest/internal/domain"
	"MorningDigest/internal/infrastructure/storage"
	"MorningDigest/internal/schedule"
)

// 2025-03-10 08:30 in Asia/Seoul, a Monday.
var mondayMorning = time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC)

type fakeRetriever struct {
	mu       sync.Mutex
	articles map[string][]domain.CandidateArticle
	errs     map[string]error
	sources  []string
	lengths  []int
}

func (f *fakeRetriever) FetchArticlesForKeyword(_ context.Context, keyword string, maxSummaryLength int) ([]domain.CandidateArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lengths = append(f.lengths, maxSummaryLength)
	if err := f.errs[keyword]; err != nil {
		return nil, err
	}
	return f.articles[keyword], nil
}

func (f *fakeRetriever) SourceNames() []string { return f.sources }

type fakeMailer struct {
	mu          sync.Mutex
	failFor     map[string]error
	rateLimited map[string]int
	calls       []string
}

func (f *fakeMailer) SendDigestEmail(_ context.Context, issue domain.DigestIssue, recipient string) (domain.SendReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recipient)
	if remaining := f.rateLimited[recipient]; remaining > 0 {
		f.rateLimited[recipient] = remaining - 1
		return domain.SendReceipt{}, fmt.Errorf("resend-1: %w", domain.ErrRateLimited)
	}
	if err := f.failFor[recipient]; err != nil {
		return domain.SendReceipt{}, err
	}
	return domain.SendReceipt{ProviderLabel: "resend-1", MessageID: "msg-" + recipient + "-" + issue.ID}, nil
}

type fakeNotifier struct {
	alerts []string
	err    error
}

func (f *fakeNotifier) PublishAlert(_ context.Context, text string) error {
	f.alerts = append(f.alerts, text)
	return f.err
}

type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleep) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

func candidate(headline, source, url string, score float64) domain.CandidateArticle {
	return domain.CandidateArticle{
		Headline:       headline,
		Summary:        headline + " 요약",
		SourceName:     source,
		SourceURL:      url,
		PublishedAt:    mondayMorning.Add(-time.Hour),
		RelevanceScore: score,
	}
}

func keywordGroup(id, name string, words ...string) domain.KeywordGroup {
	group := domain.KeywordGroup{
		ID:         id,
		Name:       name,
		Timezone:   "Asia/Seoul",
		SendTime:   "08:00",
		Days:       []string{"mon", "wed", "fri"},
		Status:     domain.GroupActive,
		Recipients: []string{id + "@example.com"},
	}
	for i, word := range words {
		group.Keywords = append(group.Keywords, domain.Keyword{ID: fmt.Sprintf("%s-%d", id, i), Word: word})
	}
	return group
}

type fixture struct {
	store     *storage.MemoryStore
	retriever *fakeRetriever
	builder   *DigestBuilder
	coord     *Coordinator
	clock     schedule.Clock
}

func newFixture(groups ...domain.KeywordGroup) *fixture {
	store := storage.NewMemoryStore()
	for _, g := range groups {
		store.SaveKeywordGroup(g)
	}
	retriever := &fakeRetriever{
		articles: map[string][]domain.CandidateArticle{},
		errs:     map[string]error{},
		sources:  []string{"한국경제", "연합뉴스"},
	}
	clock := schedule.FixedClock(mondayMorning)
	builder := NewDigestBuilder(store, retriever, BuilderOptions{Clock: clock}, nil)
	return &fixture{
		store:     store,
		retriever: retriever,
		builder:   builder,
		coord:     NewCoordinator(store, builder, clock, 0, nil),
		clock:     clock,
	}
}

var errFeedDown = errors.New("feed down")
