package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"MorningDigest/internal/config"
	"MorningDigest/internal/infrastructure/httpapi"
	"MorningDigest/internal/infrastructure/mailer"
	"MorningDigest/internal/infrastructure/parser"
	"MorningDigest/internal/infrastructure/scheduler"
	"MorningDigest/internal/infrastructure/storage"
	"MorningDigest/internal/infrastructure/telegram"
	"MorningDigest/internal/logging"
	"MorningDigest/internal/ports"
	"MorningDigest/internal/scanner"
	"MorningDigest/internal/schedule"
	"MorningDigest/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pool      *pgxpool.Pool
	store     ports.DigestStore
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	server    *httpapi.Server
}

// New builds the store, retrieval, mail and trigger components from cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store

	clock := schedule.SystemClock{}
	registry := scanner.NewRegistry(cfg.SourceCatalogue()...)
	httpClient := &http.Client{Timeout: cfg.Feeds.Timeout}

	body := parser.NewBodyFetcher(
		httpClient,
		cfg.Feeds.ScrapeHosts,
		parser.NewHostRateLimiter(cfg.Feeds.ScrapeHostInterval),
		cfg.Feeds.UserAgent,
		baseLogger.With("component", "scraper"),
	)
	retriever := parser.NewFeedRetriever(registry, parser.RetrieverOptions{
		Client:          httpClient,
		UserAgent:       cfg.Feeds.UserAgent,
		MaxPerSource:    cfg.Feeds.MaxPerKeyword,
		ScrapeThreshold: cfg.Feeds.ScrapeMinSummary,
		Body:            body,
		Clock:           clock,
	}, baseLogger.With("component", "retriever"))

	mailLogger := baseLogger.With("component", "mailer")
	mail := mailer.New(mailer.ProvidersFromKeys(cfg.Mail.APIKeys, cfg.Mail.From, cfg.Mail.Timeout, mailLogger), mailLogger)
	mailLogger.Info("mail providers configured", "providers", mail.Labels())

	builder := usecase.NewDigestBuilder(store, retriever, usecase.BuilderOptions{
		MaxArticles:     cfg.Digest.MaxArticles,
		HighlightCount:  cfg.Digest.HighlightCount,
		DefaultLocation: cfg.Scheduler.Location(),
		Clock:           clock,
	}, baseLogger.With("component", "builder"))

	coordinator := usecase.NewCoordinator(store, builder, clock, cfg.Scheduler.WindowMinutes,
		baseLogger.With("component", "coordinator"))

	dispatcher := usecase.NewDispatcher(mail, store, usecase.DispatcherOptions{
		TestRecipients:    cfg.Mail.TestRecipients,
		FallbackRecipient: cfg.Mail.FallbackRecipient,
		SendDelay:         cfg.Mail.SendDelay,
		RetryBackoff:      cfg.Mail.RetryBackoff,
		MaxRetries:        cfg.Mail.MaxRetries,
	}, baseLogger.With("component", "dispatcher"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Store:              store,
		Builder:            builder,
		Coordinator:        coordinator,
		Dispatcher:         dispatcher,
		Notifier:           notifier,
		Clock:              clock,
		UseGroupRecipients: cfg.Mail.UseGroupRecipients,
		Logger:             baseLogger.With("component", "pipeline"),
	})

	a.scheduler = usecase.NewScheduler(
		scheduler.NewCronScheduler(cfg.Scheduler.TickInterval, baseLogger.With("component", "ticker")),
		a.pipeline,
		baseLogger.With("component", "scheduler"),
	)

	a.server = httpapi.New(httpapi.Options{
		Runner:            a.pipeline,
		Groups:            store,
		Evaluator:         schedule.NewEvaluator(clock),
		CronSecret:        cfg.Cron.Secret,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		Logger:            baseLogger.With("component", "http"),
	})

	return a, nil
}

func (a *Application) openStore(ctx context.Context) (ports.DigestStore, error) {
	if a.cfg.Database.DSN == "" {
		a.logger.Info("no database configured, using in-memory store", "groups", len(a.cfg.Groups))
		mem := storage.NewMemoryStore()
		groups, settings := a.cfg.SeedGroups()
		for _, g := range groups {
			mem.SaveKeywordGroup(g)
		}
		for _, s := range settings {
			mem.SaveDeliverySetting(s)
		}
		return mem, nil
	}

	pool, err := storage.Open(ctx, a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if a.cfg.Database.EnsureSchema {
		if err := storage.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	a.pool = pool
	return storage.NewPostgresRepository(pool), nil
}

// RunOnce performs a single generate-and-dispatch pass.
func (a *Application) RunOnce(ctx context.Context, req usecase.RunRequest) (usecase.RunReport, error) {
	if req.Trigger == "" {
		req.Trigger = "cli"
	}
	return a.pipeline.Run(ctx, req)
}

// RunScheduler blocks running the ticker-driven scheduler until ctx ends.
func (a *Application) RunScheduler(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Serve runs the HTTP triggers, and the in-process scheduler when
// withScheduler is set, until ctx ends.
func (a *Application) Serve(ctx context.Context, withScheduler bool) error {
	if withScheduler {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start(a.cfg.HTTP.Addr)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if serveErr != nil {
		errs = append(errs, fmt.Errorf("http server: %w", serveErr))
	}
	if err := a.server.Shutdown(stopCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	if withScheduler {
		if err := a.scheduler.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the database pool, if any.
func (a *Application) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
