package storage

import (
	"context"
	"fmt"
)

// schemaStatements create the tables used by PostgresRepository. The unique
// index on digest_issues backs the one-issue-per-day rule.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS keyword_groups (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		timezone    TEXT NOT NULL DEFAULT 'Asia/Seoul',
		send_time   TEXT NOT NULL DEFAULT '07:00',
		days        TEXT[] NOT NULL DEFAULT '{}',
		status      TEXT NOT NULL DEFAULT 'active',
		recipients  TEXT[] NOT NULL DEFAULT '{}',
		owner_id    TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS keywords (
		id         TEXT PRIMARY KEY,
		word       TEXT NOT NULL UNIQUE CHECK (char_length(word) <= 80),
		priority   TEXT NOT NULL DEFAULT 'medium',
		volume     TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS keyword_group_keywords (
		group_id   TEXT NOT NULL REFERENCES keyword_groups(id) ON DELETE CASCADE,
		keyword_id TEXT NOT NULL REFERENCES keywords(id) ON DELETE CASCADE,
		position   INT NOT NULL DEFAULT 0,
		PRIMARY KEY (group_id, keyword_id)
	)`,
	`CREATE TABLE IF NOT EXISTS digest_issues (
		id           TEXT PRIMARY KEY,
		group_id     TEXT NOT NULL REFERENCES keyword_groups(id) ON DELETE CASCADE,
		group_name   TEXT NOT NULL,
		send_date    TEXT NOT NULL,
		subject      TEXT NOT NULL,
		highlights   TEXT[] NOT NULL DEFAULT '{}',
		status       TEXT NOT NULL DEFAULT 'scheduled',
		generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS digest_issues_group_date_key ON digest_issues (group_id, send_date)`,
	`CREATE TABLE IF NOT EXISTS digest_articles (
		id              TEXT PRIMARY KEY,
		issue_id        TEXT NOT NULL REFERENCES digest_issues(id) ON DELETE CASCADE,
		position        INT NOT NULL,
		headline        TEXT NOT NULL,
		summary         TEXT NOT NULL,
		source_name     TEXT NOT NULL,
		source_url      TEXT NOT NULL,
		published_at    TIMESTAMPTZ NOT NULL,
		relevance_score DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS delivery_settings (
		group_id       TEXT PRIMARY KEY REFERENCES keyword_groups(id) ON DELETE CASCADE,
		summary_length TEXT NOT NULL DEFAULT 'standard',
		template       TEXT NOT NULL DEFAULT 'insight',
		channels       TEXT[] NOT NULL DEFAULT '{email}'
	)`,
	`CREATE TABLE IF NOT EXISTS delivery_logs (
		id                  TEXT PRIMARY KEY,
		issue_id            TEXT NOT NULL,
		group_name          TEXT NOT NULL,
		subject             TEXT NOT NULL,
		recipient           TEXT NOT NULL,
		provider            TEXT NOT NULL,
		status              TEXT NOT NULL,
		provider_message_id TEXT,
		sent_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		error               TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS notification_settings (
		id                 SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		send_failure_alert BOOLEAN NOT NULL DEFAULT TRUE,
		send_sms_backup    BOOLEAN NOT NULL DEFAULT FALSE,
		send_weekly_report BOOLEAN NOT NULL DEFAULT TRUE
	)`,
}

// EnsureSchema creates missing tables and indexes.
func EnsureSchema(ctx context.Context, db DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
