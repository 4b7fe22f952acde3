package mailer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MorningDigest/internal/domain"
)

type stubProvider struct {
	label string
	err   error
	calls int
	last  Message
}

func (s *stubProvider) Label() string { return s.label }

func (s *stubProvider) Send(_ context.Context, msg Message) (string, error) {
	s.calls++
	s.last = msg
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("%s-msg-%d", s.label, s.calls), nil
}

func sampleIssue() domain.DigestIssue {
	return domain.DigestIssue{
		ID:         "issue-1",
		GroupName:  "반도체",
		Date:       "2025-03-10",
		Subject:    "반도체 주요 이슈 - 2025-03-10",
		Highlights: []string{"삼성 투자 · 한국경제"},
		Articles: []domain.DigestArticle{
			{Headline: "삼성 투자", Summary: "삼성이 대규모 투자를 발표했다.", SourceName: "한국경제", SourceURL: "https://www.hankyung.com/1"},
		},
	}
}

func TestMailerRotationSkipsFailingProvider(t *testing.T) {
	t.Parallel()

	failing := &stubProvider{label: "resend-1", err: errors.New("invalid api key")}
	healthy := &stubProvider{label: "resend-2"}
	m := New([]Provider{failing, healthy}, nil)

	wantNext := []int{1, 0, 1, 0}
	for i, want := range wantNext {
		receipt, err := m.SendDigestEmail(context.Background(), sampleIssue(), "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, "resend-2", receipt.ProviderLabel)
		assert.Equal(t, want, m.nextIndex(), "call %d", i)
	}

	// provider 1 is only tried first on every other call
	assert.Equal(t, 2, failing.calls)
	assert.Equal(t, 4, healthy.calls)
	assert.Equal(t, "user@example.com", healthy.last.To)
	assert.Equal(t, "issue-1", healthy.last.IssueID)
}

func TestMailerResumesFromLastSuccess(t *testing.T) {
	t.Parallel()

	a := &stubProvider{label: "a"}
	b := &stubProvider{label: "b"}
	c := &stubProvider{label: "c"}
	m := New([]Provider{a, b, c}, nil)

	var labels []string
	for i := 0; i < 4; i++ {
		receipt, err := m.SendDigestEmail(context.Background(), sampleIssue(), "x@example.com")
		require.NoError(t, err)
		labels = append(labels, receipt.ProviderLabel)
	}
	assert.Equal(t, []string{"a", "b", "c", "a"}, labels)

	b.err = errors.New("boom")
	receipt, err := m.SendDigestEmail(context.Background(), sampleIssue(), "x@example.com")
	require.NoError(t, err)
	assert.Equal(t, "c", receipt.ProviderLabel)
	assert.Equal(t, 2, m.nextIndex())
}

func TestMailerAllProvidersFailed(t *testing.T) {
	t.Parallel()

	m := New([]Provider{
		&stubProvider{label: "a", err: errors.New("429 Too Many Requests")},
		&stubProvider{label: "b", err: fmt.Errorf("b: %w", ErrRateLimited)},
	}, nil)

	_, err := m.SendDigestEmail(context.Background(), sampleIssue(), "x@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, 0, m.nextIndex())
}

func TestMailerDefaultsToConsole(t *testing.T) {
	t.Parallel()

	m := New(nil, nil)
	assert.Equal(t, []string{"console"}, m.Labels())

	receipt, err := m.SendDigestEmail(context.Background(), sampleIssue(), "x@example.com")
	require.NoError(t, err)
	assert.Equal(t, "console", receipt.ProviderLabel)
	assert.Contains(t, receipt.MessageID, "local-")
}

func TestProvidersFromKeys(t *testing.T) {
	t.Parallel()

	providers := ProvidersFromKeys([]string{"re_a", " ", "re_b"}, "from@example.com", 0, nil)
	require.Len(t, providers, 2)
	assert.Equal(t, "resend-1", providers[0].Label())
	assert.Equal(t, "resend-2", providers[1].Label())

	fallback := ProvidersFromKeys(nil, "", 0, nil)
	require.Len(t, fallback, 1)
	assert.Equal(t, "console", fallback[0].Label())
}

func TestIsRateLimited(t *testing.T) {
	t.Parallel()

	assert.False(t, IsRateLimited(nil))
	assert.False(t, IsRateLimited(errors.New("invalid recipient")))
	assert.True(t, IsRateLimited(errors.New("Rate limit exceeded")))
	assert.True(t, IsRateLimited(errors.New("[ERROR]: 429 Too Many Requests")))
	assert.False(t, IsRateLimited(errors.New("[ERROR]: invalid `to` field: user429@x.com")))
	assert.True(t, IsRateLimited(fmt.Errorf("wrap: %w", ErrRateLimited)))
}
