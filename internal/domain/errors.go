package domain

import (
	"errors"
	"strings"
)

var (
	ErrGroupNotFound = errors.New("keyword group not found")
	ErrNoKeywords    = errors.New("keyword group has no keywords")
	ErrNoRecipients  = errors.New("keyword group has no recipients")
	ErrNoArticles    = errors.New("no articles found")
	// ErrDigestExists reports that an issue for the same group and date is already stored.
	ErrDigestExists = errors.New("digest already exists for date")
	// ErrRateLimited marks mail provider errors caused by throttling.
	ErrRateLimited = errors.New("mail provider rate limited")
)

// IsRateLimited reports whether err signals provider throttling. Adapters
// wrap ErrRateLimited when they see the status code; the phrases cover
// providers that only report throttling in their message text.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}
