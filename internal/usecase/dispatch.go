package usecase

import (
	"context"
	"log/slog"
	"time"

	"MorningDigest/internal/domain"
	"MorningDigest/internal/metrics"
	"MorningDigest/internal/ports"
)

// DefaultFallbackRecipient receives digests when nobody else is configured.
const DefaultFallbackRecipient = "dev@example.com"

const failedProviderLabel = "mailer"

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// DispatcherOptions configures recipients and pacing.
type DispatcherOptions struct {
	TestRecipients    []string
	FallbackRecipient string
	SendDelay         time.Duration
	RetryBackoff      time.Duration
	MaxRetries        int
	Sleep             SleepFunc
}

// Dispatcher sends an issue to its recipients one at a time and records the
// outcome of every recipient.
type Dispatcher struct {
	mailer ports.Mailer
	store  ports.DigestStore
	opts   DispatcherOptions
	sleep  SleepFunc
	logger *slog.Logger
}

// NewDispatcher wires the mailer with the delivery log store.
func NewDispatcher(mailer ports.Mailer, store ports.DigestStore, opts DispatcherOptions, log *slog.Logger) *Dispatcher {
	if opts.FallbackRecipient == "" {
		opts.FallbackRecipient = DefaultFallbackRecipient
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{mailer: mailer, store: store, opts: opts, sleep: sleep, logger: log}
}

// ResolveRecipients picks explicit recipients, then the configured test list,
// then the fallback address.
func (d *Dispatcher) ResolveRecipients(explicit []string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	if len(d.opts.TestRecipients) > 0 {
		return d.opts.TestRecipients
	}
	return []string{d.opts.FallbackRecipient}
}

// HasTestRecipients reports whether a test list replaces real recipients.
func (d *Dispatcher) HasTestRecipients() bool {
	return len(d.opts.TestRecipients) > 0
}

// DispatchDigestIssue sends issue to every recipient in order. One recipient's
// failure never stops the others; results follow recipient order.
func (d *Dispatcher) DispatchDigestIssue(ctx context.Context, issue domain.DigestIssue, recipients []string) []domain.DispatchResult {
	targets := d.ResolveRecipients(recipients)
	results := make([]domain.DispatchResult, 0, len(targets))

	for i, recipient := range targets {
		if i > 0 && d.opts.SendDelay > 0 {
			if err := d.sleep(ctx, d.opts.SendDelay); err != nil {
				d.logger.Warn("dispatch interrupted", "issue_id", issue.ID, "error", err)
			}
		}

		receipt, err := d.sendWithRetry(ctx, issue, recipient)
		if err != nil {
			d.record(ctx, issue, domain.DeliveryLog{
				Recipient: recipient,
				Provider:  failedProviderLabel,
				Status:    domain.DeliveryFailed,
				Error:     err.Error(),
			})
			results = append(results, domain.DispatchResult{
				Recipient: recipient,
				Status:    domain.DeliveryFailed,
				Error:     err.Error(),
			})
			continue
		}

		d.record(ctx, issue, domain.DeliveryLog{
			Recipient:         recipient,
			Provider:          receipt.ProviderLabel,
			Status:            domain.DeliverySent,
			ProviderMessageID: receipt.MessageID,
		})
		results = append(results, domain.DispatchResult{
			Recipient:     recipient,
			Status:        domain.DeliverySent,
			ProviderLabel: receipt.ProviderLabel,
			MessageID:     receipt.MessageID,
		})
	}

	return results
}

// sendWithRetry retries rate-limited sends with linear backoff.
func (d *Dispatcher) sendWithRetry(ctx context.Context, issue domain.DigestIssue, recipient string) (domain.SendReceipt, error) {
	for attempt := 0; ; attempt++ {
		receipt, err := d.mailer.SendDigestEmail(ctx, issue, recipient)
		if err == nil {
			return receipt, nil
		}
		if !domain.IsRateLimited(err) || attempt >= d.opts.MaxRetries {
			return domain.SendReceipt{}, err
		}

		backoff := d.opts.RetryBackoff * time.Duration(attempt+1)
		d.logger.Warn("rate limited, retrying",
			"recipient", recipient,
			"attempt", attempt+1,
			"backoff", backoff)
		if sleepErr := d.sleep(ctx, backoff); sleepErr != nil {
			return domain.SendReceipt{}, err
		}
	}
}

func (d *Dispatcher) record(ctx context.Context, issue domain.DigestIssue, entry domain.DeliveryLog) {
	entry.IssueID = issue.ID
	entry.GroupName = issue.GroupName
	entry.Subject = issue.Subject

	metrics.DeliveryTotal.WithLabelValues(entry.Provider, string(entry.Status)).Inc()
	if entry.Status == domain.DeliveryFailed {
		d.logger.Error("delivery failed", "issue_id", issue.ID, "recipient", entry.Recipient, "error", entry.Error)
	} else {
		d.logger.Info("delivery sent", "issue_id", issue.ID, "recipient", entry.Recipient, "provider", entry.Provider)
	}

	if d.store == nil {
		return
	}
	if _, err := d.store.RecordDeliveryLog(ctx, entry); err != nil {
		d.logger.Error("record delivery log failed", "issue_id", issue.ID, "recipient", entry.Recipient, "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
