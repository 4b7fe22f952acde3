package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"MorningDigest/internal/metrics"
)

// maxPageBytes caps how much of an article page is read.
const maxPageBytes = 2 << 20

// BodyFetcher scrapes plain article text from allowlisted news sites. Every
// failure is reported as "no body" so callers keep the feed snippet.
type BodyFetcher struct {
	client    *http.Client
	hosts     map[string]struct{}
	limiter   *HostRateLimiter
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
}

// NewBodyFetcher wires an HTTP client and the host allowlist.
func NewBodyFetcher(client *http.Client, hosts []string, limiter *HostRateLimiter, userAgent string, log *slog.Logger) *BodyFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	allowed := make(map[string]struct{}, len(hosts))
	for _, host := range hosts {
		if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
			allowed[host] = struct{}{}
		}
	}
	return &BodyFetcher{
		client:    client,
		hosts:     allowed,
		limiter:   limiter,
		userAgent: userAgent,
		maxBytes:  maxPageBytes,
		logger:    log,
	}
}

// Allowed reports whether rawURL points at an allowlisted host.
func (b *BodyFetcher) Allowed(rawURL string) bool {
	if b == nil || len(b.hosts) == 0 {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := b.hosts[strings.ToLower(parsed.Host)]
	return ok
}

// Fetch returns the page text, or false when the page is not allowlisted or
// could not be read.
func (b *BodyFetcher) Fetch(ctx context.Context, rawURL string) (string, bool) {
	if !b.Allowed(rawURL) {
		return "", false
	}

	text, err := b.fetch(ctx, rawURL)
	if err != nil {
		metrics.ArticleScrapeTotal.WithLabelValues("error").Inc()
		b.debug("article body fetch failed", "url", rawURL, "error", err)
		return "", false
	}
	if text == "" {
		metrics.ArticleScrapeTotal.WithLabelValues("empty").Inc()
		return "", false
	}
	metrics.ArticleScrapeTotal.WithLabelValues("ok").Inc()
	return text, true
}

func (b *BodyFetcher) fetch(ctx context.Context, rawURL string) (string, error) {
	if err := b.limiter.WaitForHost(ctx, rawURL); err != nil {
		return "", fmt.Errorf("wait for host: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", b.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, b.maxBytes))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	return extractText(doc), nil
}

// extractText drops script and style blocks and returns the remaining text
// with whitespace collapsed.
func extractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()

	root := doc.Find("body").First()
	if root.Length() == 0 {
		return collapseWhitespace(doc.Text())
	}
	return collapseWhitespace(root.Text())
}

func (b *BodyFetcher) debug(msg string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}
