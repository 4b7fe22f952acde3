package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"MorningDigest/internal/domain"
	"MorningDigest/internal/ports"
)

// MemoryStore keeps everything in process memory. It enforces the same
// one-issue-per-group-and-date rule as the Postgres schema.
type MemoryStore struct {
	mu           sync.RWMutex
	groups       map[string]domain.KeywordGroup
	order        []string
	issues       map[string]domain.DigestIssue
	issueByDate  map[string]string
	settings     map[string]domain.DeliverySetting
	logs         []domain.DeliveryLog
	notification domain.NotificationSetting
	now          func() time.Time
}

var _ ports.DigestStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store with default notification settings.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		groups:       map[string]domain.KeywordGroup{},
		issues:       map[string]domain.DigestIssue{},
		issueByDate:  map[string]string{},
		settings:     map[string]domain.DeliverySetting{},
		notification: domain.DefaultNotificationSetting(),
		now:          time.Now,
	}
}

// SaveKeywordGroup inserts or replaces a group.
func (m *MemoryStore) SaveKeywordGroup(group domain.KeywordGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[group.ID]; !ok {
		m.order = append(m.order, group.ID)
	}
	m.groups[group.ID] = cloneGroup(group)
}

// SaveDeliverySetting stores the delivery preference of a group.
func (m *MemoryStore) SaveDeliverySetting(setting domain.DeliverySetting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[setting.GroupID] = setting
}

// SetNotificationSetting replaces the operator alert preferences.
func (m *MemoryStore) SetNotificationSetting(setting domain.NotificationSetting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notification = setting
}

func (m *MemoryStore) ListKeywordGroups(_ context.Context) ([]domain.KeywordGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.KeywordGroup, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, cloneGroup(m.groups[id]))
	}
	return out, nil
}

func (m *MemoryStore) GetKeywordGroupByID(_ context.Context, id string) (*domain.KeywordGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	group, ok := m.groups[id]
	if !ok {
		return nil, nil
	}
	g := cloneGroup(group)
	return &g, nil
}

func (m *MemoryStore) CreateDigestIssue(_ context.Context, input domain.NewDigestIssue) (*domain.DigestIssue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := dateKey(input.GroupID, input.Date)
	if _, ok := m.issueByDate[key]; ok {
		return nil, domain.ErrDigestExists
	}

	issue := domain.DigestIssue{
		ID:          uuid.NewString(),
		GroupID:     input.GroupID,
		GroupName:   input.GroupName,
		Date:        input.Date,
		Subject:     input.Subject,
		Highlights:  append([]string{}, input.Highlights...),
		Status:      domain.DigestScheduled,
		GeneratedAt: m.now().UTC(),
		Articles:    make([]domain.DigestArticle, len(input.Articles)),
	}
	for i, article := range input.Articles {
		article.ID = uuid.NewString()
		article.IssueID = issue.ID
		issue.Articles[i] = article
	}

	m.issues[issue.ID] = issue
	m.issueByDate[key] = issue.ID
	out := cloneIssue(issue)
	return &out, nil
}

func (m *MemoryStore) DigestIssueExists(_ context.Context, groupID, date string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.issueByDate[dateKey(groupID, date)]
	return ok, nil
}

func (m *MemoryStore) DeleteDigestIssuesForDate(_ context.Context, groupID, date string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := dateKey(groupID, date)
	id, ok := m.issueByDate[key]
	if !ok {
		return 0, nil
	}
	delete(m.issueByDate, key)
	delete(m.issues, id)
	return 1, nil
}

func (m *MemoryStore) GetDeliverySettingForGroup(_ context.Context, groupID string) (*domain.DeliverySetting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	setting, ok := m.settings[groupID]
	if !ok {
		return nil, nil
	}
	return &setting, nil
}

func (m *MemoryStore) RecordDeliveryLog(_ context.Context, entry domain.DeliveryLog) (domain.DeliveryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = m.now().UTC()
	}
	m.logs = append(m.logs, entry)
	return entry, nil
}

func (m *MemoryStore) GetNotificationSetting(_ context.Context) (domain.NotificationSetting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notification, nil
}

// DeliveryLogs returns recorded logs in insertion order.
func (m *MemoryStore) DeliveryLogs() []domain.DeliveryLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.DeliveryLog(nil), m.logs...)
}

// Issues returns stored issues sorted by date, then group.
func (m *MemoryStore) Issues() []domain.DigestIssue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.DigestIssue, 0, len(m.issues))
	for _, issue := range m.issues {
		out = append(out, cloneIssue(issue))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].GroupID < out[j].GroupID
	})
	return out
}

func dateKey(groupID, date string) string {
	return groupID + "|" + date
}

func cloneGroup(g domain.KeywordGroup) domain.KeywordGroup {
	g.Days = append([]string(nil), g.Days...)
	g.Keywords = append([]domain.Keyword(nil), g.Keywords...)
	g.Recipients = append([]string(nil), g.Recipients...)
	return g
}

func cloneIssue(issue domain.DigestIssue) domain.DigestIssue {
	issue.Highlights = append([]string{}, issue.Highlights...)
	issue.Articles = append([]domain.DigestArticle(nil), issue.Articles...)
	return issue
}
