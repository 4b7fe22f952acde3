package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MorningDigest/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configPathEnv, databaseURLEnv, resendKeysEnv, resendKeyEnv, resendFromEnv,
		testRecipientsEnv, legacyRecipientEnv, cronSecretEnv, telegramTokenEnv,
		telegramChatIDEnv, logLevelEnv, httpAddrEnv,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load("")

	assert.Equal(t, 4, cfg.Feeds.MaxPerKeyword)
	assert.Equal(t, 8, cfg.Digest.MaxArticles)
	assert.Equal(t, 3, cfg.Digest.HighlightCount)
	assert.Equal(t, 2, cfg.Mail.MaxRetries)
	assert.Equal(t, 24*60, cfg.Scheduler.WindowMinutes)
	assert.Equal(t, "Asia/Seoul", cfg.Scheduler.Location().String())
	assert.Len(t, cfg.Sources, 7)
	assert.Len(t, cfg.SourceCatalogue(), 7)
	assert.Empty(t, cfg.Mail.APIKeys)
	assert.Equal(t, "dev@example.com", cfg.Mail.FallbackRecipient)
	assert.False(t, cfg.Mail.UseGroupRecipients)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
logging:
  level: debug
scheduler:
  tickInterval: 1m
  defaultTimezone: Europe/Berlin
mail:
  from: "Digest <news@example.org>"
  sendDelay: 250ms
sources:
  - id: local
    name: Local
    url: "http://localhost/rss?q={keyword}"
groups:
  - id: g1
    name: Chips
    timezone: Asia/Seoul
    sendTime: "07:30"
    days: [Mon, Tue]
    keywords: [반도체, HBM]
    recipients: [a@example.com]
    summaryLength: long
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	t.Setenv(resendKeysEnv, "re_1, re_2,,")
	t.Setenv(testRecipientsEnv, "x@example.com, y@example.com")
	t.Setenv(cronSecretEnv, "s3cret")

	cfg := Load(path)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, time.Minute, cfg.Scheduler.TickInterval)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	assert.Equal(t, "Digest <news@example.org>", cfg.Mail.From)
	assert.Equal(t, 250*time.Millisecond, cfg.Mail.SendDelay)
	assert.Equal(t, []string{"re_1", "re_2"}, cfg.Mail.APIKeys)
	assert.Equal(t, []string{"x@example.com", "y@example.com"}, cfg.Mail.TestRecipients)
	assert.Equal(t, "s3cret", cfg.Cron.Secret)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "local", cfg.Sources[0].ID)
	// untouched sections keep their defaults
	assert.Equal(t, 4, cfg.Feeds.MaxPerKeyword)

	groups, settings := cfg.SeedGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, domain.GroupActive, groups[0].Status)
	assert.Equal(t, []string{"반도체", "HBM"}, groups[0].Words())
	assert.Equal(t, "g1-kw-2", groups[0].Keywords[1].ID)
	require.Len(t, settings, 1)
	assert.Equal(t, domain.SummaryLong, settings[0].SummaryLength)
	assert.Equal(t, domain.TemplateInsight, settings[0].Template)
}

func TestLoadFallsBackOnBrokenFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mail: [unterminated"), 0o600))

	cfg := Load(path)
	assert.Equal(t, "MorningDigest <digest@example.com>", cfg.Mail.From)

	cfg = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Len(t, cfg.Sources, 7)
}

func TestLegacyEnvNames(t *testing.T) {
	clearEnv(t)
	t.Setenv(resendKeyEnv, "re_single")
	t.Setenv(legacyRecipientEnv, "ops@example.com")

	cfg := Load("")

	assert.Equal(t, []string{"re_single"}, cfg.Mail.APIKeys)
	assert.Equal(t, []string{"ops@example.com"}, cfg.Mail.TestRecipients)
}

func TestUnknownTimezoneReverts(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "tz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  defaultTimezone: Nowhere/Special\n"), 0o600))

	cfg := Load(path)
	assert.Equal(t, "Asia/Seoul", cfg.Scheduler.DefaultTimezone)
	assert.Equal(t, "Asia/Seoul", cfg.Scheduler.Location().String())
}
