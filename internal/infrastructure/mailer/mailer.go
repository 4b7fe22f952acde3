package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"MorningDigest/internal/domain"
	"MorningDigest/internal/metrics"
	"MorningDigest/internal/ports"
)

var (
	// ErrRateLimited marks provider errors caused by throttling.
	ErrRateLimited = domain.ErrRateLimited
	// ErrAllProvidersFailed is returned when every provider in the pool failed.
	ErrAllProvidersFailed = errors.New("all mail providers failed")
)

// IsRateLimited reports whether err signals provider throttling.
func IsRateLimited(err error) bool {
	return domain.IsRateLimited(err)
}

// Mailer renders digests and sends them through a rotating provider pool.
type Mailer struct {
	providers []Provider
	logger    *slog.Logger

	mu   sync.Mutex
	next int
}

var _ ports.Mailer = (*Mailer)(nil)

// New constructs a Mailer. An empty pool falls back to the console provider.
func New(providers []Provider, log *slog.Logger) *Mailer {
	if len(providers) == 0 {
		providers = []Provider{NewConsoleProvider(log)}
	}
	return &Mailer{providers: providers, logger: log}
}

// Labels lists provider labels in pool order.
func (m *Mailer) Labels() []string {
	labels := make([]string, len(m.providers))
	for i, p := range m.providers {
		labels[i] = p.Label()
	}
	return labels
}

// nextIndex is the pool position the next send starts from.
func (m *Mailer) nextIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next
}

// SendDigestEmail renders issue and delivers it to recipient.
func (m *Mailer) SendDigestEmail(ctx context.Context, issue domain.DigestIssue, recipient string) (domain.SendReceipt, error) {
	content, err := RenderDigestEmail(issue)
	if err != nil {
		return domain.SendReceipt{}, fmt.Errorf("render digest: %w", err)
	}
	return m.send(ctx, Message{
		To:      recipient,
		Subject: content.Subject,
		HTML:    content.HTML,
		Text:    content.Text,
		IssueID: issue.ID,
	})
}

// send starts at the round-robin pointer and walks the pool once. A first-try
// success advances the pointer past the provider; after a failover the pointer
// stays on the provider that accepted the message so the next send does not
// start with the one that just failed.
func (m *Mailer) send(ctx context.Context, msg Message) (domain.SendReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for attempt := 0; attempt < len(m.providers); attempt++ {
		idx := (m.next + attempt) % len(m.providers)
		provider := m.providers[idx]

		id, err := provider.Send(ctx, msg)
		if err == nil {
			metrics.ProviderAttemptTotal.WithLabelValues(provider.Label(), "ok").Inc()
			if attempt == 0 {
				m.next = (idx + 1) % len(m.providers)
			} else {
				m.next = idx
			}
			return domain.SendReceipt{ProviderLabel: provider.Label(), MessageID: id}, nil
		}

		metrics.ProviderAttemptTotal.WithLabelValues(provider.Label(), "error").Inc()
		if m.logger != nil {
			m.logger.Warn("mail provider failed", "provider", provider.Label(), "recipient", msg.To, "error", err)
		}
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}

	return domain.SendReceipt{}, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}
