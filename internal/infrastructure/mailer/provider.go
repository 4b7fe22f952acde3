package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/resend/resend-go/v2"
)

// Message is a rendered digest addressed to one recipient.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	IssueID string
}

// Provider is one credentialed outbound mail service.
type Provider interface {
	Label() string
	Send(ctx context.Context, msg Message) (messageID string, err error)
}

// ConsoleProvider logs messages instead of sending them. It is used when no
// API keys are configured.
type ConsoleProvider struct {
	logger *slog.Logger
	seq    atomic.Int64
	now    func() time.Time
}

// NewConsoleProvider returns a provider that always succeeds locally.
func NewConsoleProvider(log *slog.Logger) *ConsoleProvider {
	return &ConsoleProvider{logger: log, now: time.Now}
}

func (c *ConsoleProvider) Label() string { return "console" }

func (c *ConsoleProvider) Send(_ context.Context, msg Message) (string, error) {
	if c.logger != nil {
		c.logger.Info("mail", "subject", msg.Subject, "recipient", msg.To, "issue_id", msg.IssueID)
	}
	return fmt.Sprintf("local-%d-%d", c.now().UnixMilli(), c.seq.Add(1)), nil
}

// ResendProvider sends through the Resend API with a single key.
type ResendProvider struct {
	label   string
	from    string
	client  *resend.Client
	timeout time.Duration
}

// NewResendProvider builds a provider for one API key.
func NewResendProvider(label, apiKey, from string, timeout time.Duration) *ResendProvider {
	httpClient := &http.Client{Timeout: timeout, Transport: throttleTransport{next: http.DefaultTransport}}
	return &ResendProvider{
		label:   label,
		from:    from,
		client:  resend.NewCustomClient(httpClient, strings.Trim(strings.TrimSpace(apiKey), "'")),
		timeout: timeout,
	}
}

// throttleTransport turns HTTP 429 responses into ErrRateLimited before the
// SDK flattens them into plain error text.
type throttleTransport struct {
	next http.RoundTripper
}

func (t throttleTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		if retry := resp.Header.Get("Retry-After"); retry != "" {
			return nil, fmt.Errorf("%w (retry after %s)", ErrRateLimited, retry)
		}
		return nil, ErrRateLimited
	}
	return resp, nil
}

func (r *ResendProvider) Label() string { return r.label }

func (r *ResendProvider) Send(ctx context.Context, msg Message) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		if IsRateLimited(err) && !errors.Is(err, ErrRateLimited) {
			return "", fmt.Errorf("%s: %w: %v", r.label, ErrRateLimited, err)
		}
		return "", fmt.Errorf("%s: %w", r.label, err)
	}
	if resp == nil || resp.Id == "" {
		return "resend", nil
	}
	return resp.Id, nil
}

// ProvidersFromKeys creates one Resend provider per key, labelled resend-1,
// resend-2 and so on. With no keys the console provider is returned.
func ProvidersFromKeys(keys []string, from string, timeout time.Duration, log *slog.Logger) []Provider {
	var providers []Provider
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		label := fmt.Sprintf("resend-%d", len(providers)+1)
		providers = append(providers, NewResendProvider(label, key, from, timeout))
	}
	if len(providers) == 0 {
		return []Provider{NewConsoleProvider(log)}
	}
	return providers
}
