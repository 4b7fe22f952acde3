package domain

import "time"

// SummaryLength selects how much article text a digest carries.
type SummaryLength string

const (
	SummaryShort    SummaryLength = "short"
	SummaryStandard SummaryLength = "standard"
	SummaryLong     SummaryLength = "long"
)

// MaxChars maps the preset to a summary length in characters; unknown presets
// behave like standard.
func (s SummaryLength) MaxChars() int {
	switch s {
	case SummaryShort:
		return 80
	case SummaryLong:
		return 400
	default:
		return 200
	}
}

// DeliveryTemplate is the layout hint stored with a group's delivery setting.
type DeliveryTemplate string

const (
	TemplateCompact DeliveryTemplate = "compact"
	TemplateInsight DeliveryTemplate = "insight"
	TemplateFull    DeliveryTemplate = "full"
)

// ChannelEmail is always part of a delivery setting's channels.
const ChannelEmail = "email"

// DeliverySetting is the per-group delivery preference (1:1 with KeywordGroup).
type DeliverySetting struct {
	GroupID       string           `json:"groupId"`
	SummaryLength SummaryLength    `json:"summaryLength"`
	Template      DeliveryTemplate `json:"template"`
	Channels      []string         `json:"channels"`
}

// DefaultDeliverySetting is applied when a group has no stored setting.
func DefaultDeliverySetting(groupID string) DeliverySetting {
	return DeliverySetting{
		GroupID:       groupID,
		SummaryLength: SummaryStandard,
		Template:      TemplateInsight,
		Channels:      []string{ChannelEmail},
	}
}

// DeliveryStatus is the outcome recorded for one recipient.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// DeliveryLog is an append-only audit record of a send attempt outcome.
type DeliveryLog struct {
	ID                string         `json:"id"`
	IssueID           string         `json:"issueId"`
	GroupName         string         `json:"groupName"`
	Subject           string         `json:"subject"`
	Recipient         string         `json:"recipient"`
	Provider          string         `json:"provider"`
	Status            DeliveryStatus `json:"status"`
	ProviderMessageID string         `json:"providerMessageId,omitempty"`
	SentAt            time.Time      `json:"sentAt"`
	Error             string         `json:"error,omitempty"`
}

// SendReceipt identifies which provider accepted a message.
type SendReceipt struct {
	ProviderLabel string
	MessageID     string
}

// DispatchResult is the per-recipient outcome of dispatching an issue.
type DispatchResult struct {
	Recipient     string         `json:"recipient"`
	Status        DeliveryStatus `json:"status"`
	ProviderLabel string         `json:"providerLabel,omitempty"`
	MessageID     string         `json:"messageId,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// NotificationSetting holds operator alert preferences.
type NotificationSetting struct {
	SendFailureAlert bool `json:"sendFailureAlert"`
	SendSMSBackup    bool `json:"sendSmsBackup"`
	SendWeeklyReport bool `json:"sendWeeklyReport"`
}

// DefaultNotificationSetting mirrors the column defaults of the settings table.
func DefaultNotificationSetting() NotificationSetting {
	return NotificationSetting{SendFailureAlert: true, SendWeeklyReport: true}
}
