package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"MorningDigest/internal/domain"
	"MorningDigest/internal/metrics"
	"MorningDigest/internal/ports"
	"MorningDigest/internal/schedule"
)

// CoordinatorWindowMinutes tolerates an external trigger firing anywhere in
// the day after the send time; the per-day issue check prevents repeats.
const CoordinatorWindowMinutes = 24 * 60

// RunOptions tune one coordinator pass.
type RunOptions struct {
	BypassSchedule bool
}

// GroupResult is the outcome for one selected group. Exactly one of Issue and
// Error is set; Skipped marks the already-sent case.
type GroupResult struct {
	GroupID   string              `json:"groupId"`
	GroupName string              `json:"groupName,omitempty"`
	Issue     *domain.DigestIssue `json:"issue,omitempty"`
	Error     string              `json:"error,omitempty"`
	Skipped   bool                `json:"skipped,omitempty"`
}

// Failed reports a real failure; skips are not failures.
func (r GroupResult) Failed() bool {
	return r.Error != "" && !r.Skipped
}

// Coordinator selects eligible groups and builds one issue per group per day.
type Coordinator struct {
	store         ports.DigestStore
	builder       *DigestBuilder
	clock         schedule.Clock
	windowMinutes int
	logger        *slog.Logger
}

// NewCoordinator wires the builder with the store it reads groups from.
func NewCoordinator(store ports.DigestStore, builder *DigestBuilder, clock schedule.Clock, windowMinutes int, log *slog.Logger) *Coordinator {
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	if windowMinutes <= 0 {
		windowMinutes = CoordinatorWindowMinutes
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{store: store, builder: builder, clock: clock, windowMinutes: windowMinutes, logger: log}
}

// GenerateDigestsForActiveGroups runs the builder for every selected group.
// Explicit targets are used regardless of status or schedule. Per-group
// failures are reported in the results; only a failure to list groups is
// returned as an error.
func (c *Coordinator) GenerateDigestsForActiveGroups(ctx context.Context, targetIDs []string, opts RunOptions) ([]GroupResult, error) {
	now := c.clock.Now()

	groups, missing, err := c.selectGroups(ctx, targetIDs, opts, now)
	if err != nil {
		return nil, err
	}

	results := make([]GroupResult, 0, len(groups)+len(missing))
	for _, id := range missing {
		c.logger.Warn("target group not found", "group_id", id)
		metrics.DigestOutcomeTotal.WithLabelValues("failed").Inc()
		results = append(results, GroupResult{GroupID: id, Error: domain.ErrGroupNotFound.Error()})
	}

	for _, group := range groups {
		results = append(results, c.processGroup(ctx, group, now))
	}
	return results, nil
}

func (c *Coordinator) selectGroups(ctx context.Context, targetIDs []string, opts RunOptions, now time.Time) ([]domain.KeywordGroup, []string, error) {
	if len(targetIDs) > 0 {
		var (
			groups  []domain.KeywordGroup
			missing []string
		)
		for _, id := range targetIDs {
			group, err := c.store.GetKeywordGroupByID(ctx, id)
			if err != nil {
				return nil, nil, fmt.Errorf("load group %s: %w", id, err)
			}
			if group == nil {
				missing = append(missing, id)
				continue
			}
			groups = append(groups, *group)
		}
		return groups, missing, nil
	}

	all, err := c.store.ListKeywordGroups(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list groups: %w", err)
	}

	selected := make([]domain.KeywordGroup, 0, len(all))
	for _, group := range all {
		if !group.IsActive() {
			continue
		}
		if !opts.BypassSchedule {
			cfg := schedule.Config{Timezone: group.Timezone, SendTime: group.SendTime, Days: group.Days}
			if !schedule.IsWithinSendWindow(cfg, c.windowMinutes, now) {
				continue
			}
		}
		selected = append(selected, group)
	}
	return selected, nil, nil
}

func (c *Coordinator) processGroup(ctx context.Context, group domain.KeywordGroup, now time.Time) GroupResult {
	result := GroupResult{GroupID: group.ID, GroupName: group.Name}
	date := c.builder.IssueDate(group, now)
	log := c.logger.With("group_id", group.ID, "date", date)

	exists, err := c.store.DigestIssueExists(ctx, group.ID, date)
	if err != nil {
		log.Error("idempotency check failed", "error", err)
		metrics.DigestOutcomeTotal.WithLabelValues("failed").Inc()
		result.Error = err.Error()
		return result
	}
	if exists {
		log.Info("digest already sent")
		return skipped(result, date)
	}

	issue, err := c.builder.generate(ctx, group, now)
	switch {
	case errors.Is(err, domain.ErrDigestExists):
		log.Info("digest created concurrently")
		return skipped(result, date)
	case err != nil:
		log.Error("digest generation failed", "error", err)
		metrics.DigestOutcomeTotal.WithLabelValues("failed").Inc()
		result.Error = err.Error()
		return result
	}

	metrics.DigestOutcomeTotal.WithLabelValues("created").Inc()
	result.Issue = issue
	return result
}

func skipped(result GroupResult, date string) GroupResult {
	metrics.DigestOutcomeTotal.WithLabelValues("skipped").Inc()
	result.Skipped = true
	result.Error = fmt.Sprintf("already sent for %s", date)
	return result
}
