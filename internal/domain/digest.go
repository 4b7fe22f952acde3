package domain

import "time"

// DigestStatus tracks an issue through delivery.
type DigestStatus string

const (
	DigestScheduled DigestStatus = "scheduled"
	DigestSending   DigestStatus = "sending"
	DigestSent      DigestStatus = "sent"
)

// MaxHighlights caps DigestIssue.Highlights.
const MaxHighlights = 4

// DigestIssue is one dated curation result for a keyword group. At most one
// issue exists per (GroupID, Date).
type DigestIssue struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"groupId"`
	GroupName   string          `json:"groupName"`
	Date        string          `json:"date"`
	Subject     string          `json:"subject"`
	Highlights  []string        `json:"highlights"`
	Status      DigestStatus    `json:"status"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Articles    []DigestArticle `json:"articles"`
}

// NewDigestIssue is the store input for creating an issue together with its articles.
type NewDigestIssue struct {
	GroupID    string
	GroupName  string
	Date       string
	Subject    string
	Highlights []string
	Articles   []DigestArticle
}
