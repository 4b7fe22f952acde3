package domain

import "time"

// KeywordPriority ranks keywords for display; it does not influence scoring.
type KeywordPriority string

const (
	PriorityHigh   KeywordPriority = "high"
	PriorityMedium KeywordPriority = "medium"
	PriorityLow    KeywordPriority = "low"
)

// MaxKeywordLength bounds Keyword.Word.
const MaxKeywordLength = 80

// Keyword is a search term shared between groups.
type Keyword struct {
	ID        string          `json:"id" yaml:"id"`
	Word      string          `json:"word" yaml:"word"`
	Priority  KeywordPriority `json:"priority" yaml:"priority"`
	CreatedAt time.Time       `json:"createdAt" yaml:"-"`
	Volume    string          `json:"volume" yaml:"volume"`
}

// GroupStatus toggles whether the scheduler picks a group up.
type GroupStatus string

const (
	GroupActive GroupStatus = "active"
	GroupPaused GroupStatus = "paused"
)

// KeywordGroup bundles keywords, recipients and a delivery schedule.
type KeywordGroup struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Timezone      string        `json:"timezone"`
	SendTime      string        `json:"sendTime"`
	Days          []string      `json:"days"`
	Status        GroupStatus   `json:"status"`
	Keywords      []Keyword     `json:"keywords"`
	Recipients    []string      `json:"recipients"`
	OwnerID       *string       `json:"ownerId,omitempty"`
	SummaryLength SummaryLength `json:"summaryLength,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// IsActive reports whether the group participates in scheduled runs.
func (g KeywordGroup) IsActive() bool {
	return g.Status != GroupPaused
}

// Words returns the keyword strings in stored order.
func (g KeywordGroup) Words() []string {
	words := make([]string, 0, len(g.Keywords))
	for _, kw := range g.Keywords {
		if kw.Word != "" {
			words = append(words, kw.Word)
		}
	}
	return words
}
