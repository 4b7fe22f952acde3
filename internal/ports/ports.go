package ports

import (
	"context"
	"time"

	"MorningDigest/internal/domain"
)

// DigestStore is the persistence boundary for groups, issues and delivery logs.
type DigestStore interface {
	ListKeywordGroups(ctx context.Context) ([]domain.KeywordGroup, error)
	// GetKeywordGroupByID returns nil without error when the group does not exist.
	GetKeywordGroupByID(ctx context.Context, id string) (*domain.KeywordGroup, error)
	// CreateDigestIssue stores the issue and its articles together. It returns
	// domain.ErrDigestExists when an issue for the same group and date exists.
	CreateDigestIssue(ctx context.Context, input domain.NewDigestIssue) (*domain.DigestIssue, error)
	DigestIssueExists(ctx context.Context, groupID, date string) (bool, error)
	DeleteDigestIssuesForDate(ctx context.Context, groupID, date string) (int64, error)
	// GetDeliverySettingForGroup returns nil without error when no setting is stored.
	GetDeliverySettingForGroup(ctx context.Context, groupID string) (*domain.DeliverySetting, error)
	RecordDeliveryLog(ctx context.Context, entry domain.DeliveryLog) (domain.DeliveryLog, error)
	GetNotificationSetting(ctx context.Context) (domain.NotificationSetting, error)
}

// ArticleRetriever pulls keyword-matching candidates from the configured feeds.
type ArticleRetriever interface {
	FetchArticlesForKeyword(ctx context.Context, keyword string, maxSummaryLength int) ([]domain.CandidateArticle, error)
	SourceNames() []string
}

// Mailer renders and sends a digest to one recipient.
type Mailer interface {
	SendDigestEmail(ctx context.Context, issue domain.DigestIssue, recipient string) (domain.SendReceipt, error)
}

// Notifier pushes operator alerts to a chat channel.
type Notifier interface {
	PublishAlert(ctx context.Context, text string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
