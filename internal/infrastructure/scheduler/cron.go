package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"MorningDigest/internal/ports"
)

// CronScheduler fires a job immediately and then on every tick of a fixed
// interval. Group-level timing is decided by the job itself.
type CronScheduler struct {
	interval time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler ticking every interval.
func NewCronScheduler(interval time.Duration, log *slog.Logger) *CronScheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CronScheduler{interval: interval, logger: log}
}

// Start begins ticking. Calling Start on a running scheduler is a no-op.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	if c.logger != nil {
		c.logger.Info("scheduler started", "interval", c.interval)
	}
	return nil
}

// Stop halts the ticker goroutine and waits for an in-flight job to return.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
