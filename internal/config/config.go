package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"MorningDigest/internal/domain"
	"MorningDigest/internal/scanner"
	"MorningDigest/internal/schedule"
)

const (
	configPathEnv      = "MORNING_DIGEST_CONFIG"
	databaseURLEnv     = "DATABASE_URL"
	resendKeysEnv      = "RESEND_API_KEYS"
	resendKeyEnv       = "RESEND_API_KEY"
	resendFromEnv      = "RESEND_FROM"
	testRecipientsEnv  = "DIGEST_TEST_RECIPIENTS"
	legacyRecipientEnv = "DISPATCH_TEST_RECIPIENTS"
	cronSecretEnv      = "CRON_SECRET"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	logLevelEnv        = "LOG_LEVEL"
	httpAddrEnv        = "HTTP_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	HTTP          HTTPConfig         `yaml:"http"`
	Mail          MailConfig         `yaml:"mail"`
	Cron          CronConfig         `yaml:"cron"`
	Feeds         FeedConfig         `yaml:"feeds"`
	Sources       []SourceConfig     `yaml:"sources"`
	Digest        DigestConfig       `yaml:"digest"`
	Notifications NotificationConfig `yaml:"notifications"`
	Groups        []GroupSeed        `yaml:"groups"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN selects
// the in-memory store seeded from Groups.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	EnsureSchema bool   `yaml:"ensureSchema"`
}

// SchedulerConfig defines how often the in-process scheduler evaluates groups.
type SchedulerConfig struct {
	TickInterval    time.Duration  `yaml:"tickInterval"`
	WindowMinutes   int            `yaml:"windowMinutes"`
	DefaultTimezone string         `yaml:"defaultTimezone"`
	location        *time.Location `yaml:"-"`
}

// Location resolves the default timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return schedule.LoadLocation(schedule.DefaultTimezone, time.UTC)
}

// HTTPConfig configures the trigger endpoints.
type HTTPConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
}

// MailConfig wires provider credentials and dispatch pacing.
type MailConfig struct {
	APIKeys            []string      `yaml:"apiKeys"`
	From               string        `yaml:"from"`
	TestRecipients     []string      `yaml:"testRecipients"`
	FallbackRecipient  string        `yaml:"fallbackRecipient"`
	UseGroupRecipients bool          `yaml:"useGroupRecipients"`
	SendDelay          time.Duration `yaml:"sendDelay"`
	RetryBackoff       time.Duration `yaml:"retryBackoff"`
	MaxRetries         int           `yaml:"maxRetries"`
	Timeout            time.Duration `yaml:"timeout"`
}

// CronConfig guards the scheduled trigger endpoint.
type CronConfig struct {
	Secret string `yaml:"secret"`
}

// FeedConfig tunes retrieval.
type FeedConfig struct {
	UserAgent          string        `yaml:"userAgent"`
	Timeout            time.Duration `yaml:"timeout"`
	MaxPerKeyword      int           `yaml:"maxPerKeyword"`
	ScrapeHosts        []string      `yaml:"scrapeHosts"`
	ScrapeMinSummary   int           `yaml:"scrapeMinSummary"`
	ScrapeHostInterval time.Duration `yaml:"scrapeHostInterval"`
}

// SourceConfig declares a feed; URL may contain {keyword}.
type SourceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// DigestConfig sizes a digest.
type DigestConfig struct {
	MaxArticles    int `yaml:"maxArticles"`
	HighlightCount int `yaml:"highlightCount"`
}

// NotificationConfig encapsulates outbound alert channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether alerts can be delivered.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// GroupSeed is a keyword group loaded into the in-memory store.
type GroupSeed struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Timezone      string   `yaml:"timezone"`
	SendTime      string   `yaml:"sendTime"`
	Days          []string `yaml:"days"`
	Status        string   `yaml:"status"`
	Keywords      []string `yaml:"keywords"`
	Recipients    []string `yaml:"recipients"`
	SummaryLength string   `yaml:"summaryLength"`
	Template      string   `yaml:"template"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An explicit path takes precedence over MORNING_DIGEST_CONFIG.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := defaultConfig()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	cfg.normalize()

	return cfg
}

// SourceCatalogue converts configured sources for the scanner registry.
func (c Config) SourceCatalogue() []scanner.Source {
	sources := make([]scanner.Source, 0, len(c.Sources))
	for _, src := range c.Sources {
		sources = append(sources, scanner.Source{ID: src.ID, Name: src.Name, URLTemplate: src.URL})
	}
	return sources
}

// SeedGroups converts Groups into domain records plus their delivery settings.
func (c Config) SeedGroups() ([]domain.KeywordGroup, []domain.DeliverySetting) {
	groups := make([]domain.KeywordGroup, 0, len(c.Groups))
	settings := make([]domain.DeliverySetting, 0, len(c.Groups))
	for _, seed := range c.Groups {
		group := domain.KeywordGroup{
			ID:            seed.ID,
			Name:          seed.Name,
			Description:   seed.Description,
			Timezone:      seed.Timezone,
			SendTime:      seed.SendTime,
			Days:          seed.Days,
			Status:        domain.GroupActive,
			Recipients:    seed.Recipients,
			SummaryLength: domain.SummaryLength(seed.SummaryLength),
		}
		if seed.Status == string(domain.GroupPaused) {
			group.Status = domain.GroupPaused
		}
		for i, word := range seed.Keywords {
			group.Keywords = append(group.Keywords, domain.Keyword{
				ID:       seed.ID + "-kw-" + strconv.Itoa(i+1),
				Word:     word,
				Priority: domain.PriorityMedium,
				Volume:   "—",
			})
		}
		groups = append(groups, group)

		setting := domain.DefaultDeliverySetting(seed.ID)
		if seed.SummaryLength != "" {
			setting.SummaryLength = domain.SummaryLength(seed.SummaryLength)
		}
		if seed.Template != "" {
			setting.Template = domain.DeliveryTemplate(seed.Template)
		}
		settings = append(settings, setting)
	}
	return groups, settings
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseURLEnv); v != "" {
		c.Database.DSN = v
	}

	if v := firstEnv(resendKeysEnv, resendKeyEnv); v != "" {
		c.Mail.APIKeys = splitList(v)
	}

	if v := os.Getenv(resendFromEnv); v != "" {
		c.Mail.From = v
	}

	if v := firstEnv(testRecipientsEnv, legacyRecipientEnv); v != "" {
		c.Mail.TestRecipients = splitList(v)
	}

	if v := os.Getenv(cronSecretEnv); v != "" {
		c.Cron.Secret = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.DefaultTimezone
	if tz == "" {
		tz = schedule.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, schedule.DefaultTimezone)
		loc = schedule.LoadLocation(schedule.DefaultTimezone, time.UTC)
		tz = schedule.DefaultTimezone
	}
	c.Scheduler.DefaultTimezone = tz
	c.Scheduler.location = loc
}

func (c *Config) normalize() {
	defaults := defaultConfig()

	c.Mail.APIKeys = compact(c.Mail.APIKeys)
	c.Mail.TestRecipients = compact(c.Mail.TestRecipients)
	if c.Mail.MaxRetries < 0 {
		c.Mail.MaxRetries = 0
	}
	if c.Feeds.MaxPerKeyword <= 0 {
		c.Feeds.MaxPerKeyword = defaults.Feeds.MaxPerKeyword
	}
	if c.Digest.MaxArticles <= 0 {
		c.Digest.MaxArticles = defaults.Digest.MaxArticles
	}
	if c.Digest.HighlightCount <= 0 || c.Digest.HighlightCount >= domain.MaxHighlights {
		c.Digest.HighlightCount = defaults.Digest.HighlightCount
	}
	if c.Scheduler.TickInterval <= 0 {
		c.Scheduler.TickInterval = defaults.Scheduler.TickInterval
	}
	if c.Scheduler.WindowMinutes <= 0 {
		c.Scheduler.WindowMinutes = defaults.Scheduler.WindowMinutes
	}
	if len(c.Sources) == 0 {
		c.Sources = defaults.Sources
	}
}

func defaultConfig() Config {
	sources := scanner.DefaultSources()
	sourceCfg := make([]SourceConfig, 0, len(sources))
	for _, src := range sources {
		sourceCfg = append(sourceCfg, SourceConfig{ID: src.ID, Name: src.Name, URL: src.URLTemplate})
	}

	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{DSN: "", EnsureSchema: true},
		Scheduler: SchedulerConfig{
			TickInterval:    5 * time.Minute,
			WindowMinutes:   24 * 60,
			DefaultTimezone: schedule.DefaultTimezone,
		},
		HTTP: HTTPConfig{Addr: ":8080", ReadHeaderTimeout: 10 * time.Second},
		Mail: MailConfig{
			From:               "MorningDigest <digest@example.com>",
			FallbackRecipient:  "dev@example.com",
			UseGroupRecipients: false,
			SendDelay:          600 * time.Millisecond,
			RetryBackoff:       2 * time.Second,
			MaxRetries:         2,
			Timeout:            15 * time.Second,
		},
		Feeds: FeedConfig{
			UserAgent:     "MorningDigestBot/0.1 (+https://example.com)",
			Timeout:       15 * time.Second,
			MaxPerKeyword: 4,
			ScrapeHosts: []string{
				"www.hankyung.com",
				"www.mk.co.kr",
				"www.yna.co.kr",
				"rssplus.chosun.com",
				"news.sbs.co.kr",
				"choice.co.kr",
			},
			ScrapeMinSummary:   200,
			ScrapeHostInterval: 500 * time.Millisecond,
		},
		Sources: sourceCfg,
		Digest:  DigestConfig{MaxArticles: 8, HighlightCount: 3},
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func splitList(raw string) []string {
	return compact(strings.Split(raw, ","))
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
