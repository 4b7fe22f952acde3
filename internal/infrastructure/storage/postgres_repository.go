package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"MorningDigest/internal/domain"
	"MorningDigest/internal/ports"
)

const uniqueViolation = "23505"

// DB is the subset of pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Open connects a pool and verifies the connection.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// PostgresRepository persists groups, digest issues and delivery logs in Postgres.
type PostgresRepository struct {
	db  DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

var _ ports.DigestStore = (*PostgresRepository)(nil)

// NewPostgresRepository wires a pgx pool (or any compatible DB).
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now: time.Now,
	}
}

var groupColumns = []string{
	"id", "name", "description", "timezone", "send_time", "days", "status", "recipients", "owner_id", "created_at",
}

// ListKeywordGroups returns every group with its keywords, oldest first.
func (r *PostgresRepository) ListKeywordGroups(ctx context.Context) ([]domain.KeywordGroup, error) {
	query, args, err := r.sb.Select(groupColumns...).
		From("keyword_groups").
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build groups query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	groups, err := pgx.CollectRows(rows, scanGroup)
	if err != nil {
		return nil, fmt.Errorf("scan groups: %w", err)
	}
	if len(groups) == 0 {
		return groups, nil
	}

	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	keywords, err := r.keywordsForGroups(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		groups[i].Keywords = keywords[groups[i].ID]
	}
	return groups, nil
}

// GetKeywordGroupByID returns nil, nil when the group is unknown.
func (r *PostgresRepository) GetKeywordGroupByID(ctx context.Context, id string) (*domain.KeywordGroup, error) {
	query, args, err := r.sb.Select(groupColumns...).
		From("keyword_groups").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build group query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query group %s: %w", id, err)
	}
	group, err := pgx.CollectOneRow(rows, scanGroup)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan group %s: %w", id, err)
	}

	keywords, err := r.keywordsForGroups(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	group.Keywords = keywords[id]
	return &group, nil
}

func scanGroup(row pgx.CollectableRow) (domain.KeywordGroup, error) {
	var (
		g      domain.KeywordGroup
		status string
	)
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.Timezone, &g.SendTime, &g.Days, &status, &g.Recipients, &g.OwnerID, &g.CreatedAt)
	g.Status = domain.GroupStatus(status)
	return g, err
}

func (r *PostgresRepository) keywordsForGroups(ctx context.Context, groupIDs []string) (map[string][]domain.Keyword, error) {
	query, args, err := r.sb.Select("gk.group_id", "k.id", "k.word", "k.priority", "k.volume", "k.created_at").
		From("keyword_group_keywords gk").
		Join("keywords k ON k.id = gk.keyword_id").
		Where(sq.Eq{"gk.group_id": groupIDs}).
		OrderBy("gk.group_id", "gk.position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build keywords query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]domain.Keyword, len(groupIDs))
	for rows.Next() {
		var (
			groupID  string
			kw       domain.Keyword
			priority string
		)
		if err := rows.Scan(&groupID, &kw.ID, &kw.Word, &priority, &kw.Volume, &kw.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		kw.Priority = domain.KeywordPriority(priority)
		result[groupID] = append(result[groupID], kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("keyword rows: %w", err)
	}
	return result, nil
}

// CreateDigestIssue inserts the issue and its articles in one transaction.
// A unique violation on (group_id, send_date) yields domain.ErrDigestExists.
func (r *PostgresRepository) CreateDigestIssue(ctx context.Context, input domain.NewDigestIssue) (*domain.DigestIssue, error) {
	issue := &domain.DigestIssue{
		ID:          uuid.NewString(),
		GroupID:     input.GroupID,
		GroupName:   input.GroupName,
		Date:        input.Date,
		Subject:     input.Subject,
		Highlights:  append([]string(nil), input.Highlights...),
		Status:      domain.DigestScheduled,
		GeneratedAt: r.now().UTC(),
	}
	if issue.Highlights == nil {
		issue.Highlights = []string{}
	}

	issueSQL, issueArgs, err := r.sb.Insert("digest_issues").
		Columns("id", "group_id", "group_name", "send_date", "subject", "highlights", "status", "generated_at").
		Values(issue.ID, issue.GroupID, issue.GroupName, issue.Date, issue.Subject, issue.Highlights, string(issue.Status), issue.GeneratedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build issue insert: %w", err)
	}

	issue.Articles = make([]domain.DigestArticle, len(input.Articles))
	articleInsert := r.sb.Insert("digest_articles").
		Columns("id", "issue_id", "position", "headline", "summary", "source_name", "source_url", "published_at", "relevance_score")
	for i, article := range input.Articles {
		article.ID = uuid.NewString()
		article.IssueID = issue.ID
		issue.Articles[i] = article
		articleInsert = articleInsert.Values(article.ID, article.IssueID, i, article.Headline, article.Summary,
			article.SourceName, article.SourceURL, article.PublishedAt, article.RelevanceScore)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, issueSQL, issueArgs...); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDigestExists
		}
		return nil, fmt.Errorf("insert issue: %w", err)
	}

	if len(input.Articles) > 0 {
		articleSQL, articleArgs, err := articleInsert.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build article insert: %w", err)
		}
		if _, err := tx.Exec(ctx, articleSQL, articleArgs...); err != nil {
			return nil, fmt.Errorf("insert articles: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDigestExists
		}
		return nil, fmt.Errorf("commit issue: %w", err)
	}

	return issue, nil
}

// DigestIssueExists checks the (group, date) idempotency key.
func (r *PostgresRepository) DigestIssueExists(ctx context.Context, groupID, date string) (bool, error) {
	query, args, err := r.sb.Select("COUNT(*) > 0").
		From("digest_issues").
		Where(sq.Eq{"group_id": groupID, "send_date": date}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check issue exists: %w", err)
	}
	return exists, nil
}

// DeleteDigestIssuesForDate removes a group's issues for date; articles go
// with them through the foreign key cascade.
func (r *PostgresRepository) DeleteDigestIssuesForDate(ctx context.Context, groupID, date string) (int64, error) {
	query, args, err := r.sb.Delete("digest_issues").
		Where(sq.Eq{"group_id": groupID, "send_date": date}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete issues: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetDeliverySettingForGroup returns nil, nil when the group has no setting row.
func (r *PostgresRepository) GetDeliverySettingForGroup(ctx context.Context, groupID string) (*domain.DeliverySetting, error) {
	query, args, err := r.sb.Select("group_id", "summary_length", "template", "channels").
		From("delivery_settings").
		Where(sq.Eq{"group_id": groupID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build setting query: %w", err)
	}

	var (
		setting        domain.DeliverySetting
		length, layout string
	)
	err = r.db.QueryRow(ctx, query, args...).Scan(&setting.GroupID, &length, &layout, &setting.Channels)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load delivery setting: %w", err)
	}
	setting.SummaryLength = domain.SummaryLength(length)
	setting.Template = domain.DeliveryTemplate(layout)
	return &setting, nil
}

// RecordDeliveryLog appends an audit row and returns it with ID and timestamp set.
func (r *PostgresRepository) RecordDeliveryLog(ctx context.Context, entry domain.DeliveryLog) (domain.DeliveryLog, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = r.now().UTC()
	}

	query, args, err := r.sb.Insert("delivery_logs").
		Columns("id", "issue_id", "group_name", "subject", "recipient", "provider", "status", "provider_message_id", "sent_at", "error").
		Values(entry.ID, entry.IssueID, entry.GroupName, entry.Subject, entry.Recipient, entry.Provider,
			string(entry.Status), nullable(entry.ProviderMessageID), entry.SentAt, nullable(entry.Error)).
		ToSql()
	if err != nil {
		return domain.DeliveryLog{}, fmt.Errorf("build log insert: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return domain.DeliveryLog{}, fmt.Errorf("insert delivery log: %w", err)
	}
	return entry, nil
}

// GetNotificationSetting returns the singleton row, or defaults when absent.
func (r *PostgresRepository) GetNotificationSetting(ctx context.Context) (domain.NotificationSetting, error) {
	query, args, err := r.sb.Select("send_failure_alert", "send_sms_backup", "send_weekly_report").
		From("notification_settings").
		Where(sq.Eq{"id": 1}).
		ToSql()
	if err != nil {
		return domain.NotificationSetting{}, fmt.Errorf("build notification query: %w", err)
	}

	var s domain.NotificationSetting
	err = r.db.QueryRow(ctx, query, args...).Scan(&s.SendFailureAlert, &s.SendSMSBackup, &s.SendWeeklyReport)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultNotificationSetting(), nil
	}
	if err != nil {
		return domain.NotificationSetting{}, fmt.Errorf("load notification setting: %w", err)
	}
	return s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
