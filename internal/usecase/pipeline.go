package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"MorningDigest/internal/domain"
	"MorningDigest/internal/metrics"
	"MorningDigest/internal/ports"
	"MorningDigest/internal/schedule"
)

// PipelineDeps wires the digest components into the run pipeline.
type PipelineDeps struct {
	Store              ports.DigestStore
	Builder            *DigestBuilder
	Coordinator        *Coordinator
	Dispatcher         *Dispatcher
	Notifier           ports.Notifier
	Clock              schedule.Clock
	UseGroupRecipients bool
	Logger             *slog.Logger
}

// Pipeline implements the generate-then-dispatch workflow.
type Pipeline struct {
	store              ports.DigestStore
	builder            *DigestBuilder
	coordinator        *Coordinator
	dispatcher         *Dispatcher
	notifier           ports.Notifier
	clock              schedule.Clock
	useGroupRecipients bool
	logger             *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		store:              deps.Store,
		builder:            deps.Builder,
		coordinator:        deps.Coordinator,
		dispatcher:         deps.Dispatcher,
		notifier:           deps.Notifier,
		clock:              deps.Clock,
		useGroupRecipients: deps.UseGroupRecipients,
		logger:             deps.Logger,
	}
	if p.clock == nil {
		p.clock = schedule.SystemClock{}
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// RunRequest selects groups and whether created issues are mailed.
type RunRequest struct {
	GroupIDs       []string
	SendEmails     bool
	BypassSchedule bool
	// Recipients overrides every other recipient source when non-empty.
	Recipients []string
	Trigger    string
}

// IssueDispatch holds per-recipient outcomes for one issue.
type IssueDispatch struct {
	IssueID    string                  `json:"issueId"`
	GroupID    string                  `json:"groupId"`
	Recipients []domain.DispatchResult `json:"recipients"`
}

// RunStats aggregates a run. Skips are counted apart from failures.
type RunStats struct {
	GroupsProcessed  int `json:"groupsProcessed"`
	Successes        int `json:"successes"`
	Failures         int `json:"failures"`
	Skipped          int `json:"skipped"`
	DeliveriesSent   int `json:"deliveriesSent"`
	DeliveriesFailed int `json:"deliveriesFailed"`
}

// RunReport is the structured outcome of Pipeline.Run.
type RunReport struct {
	Trigger    string          `json:"trigger,omitempty"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Stats      RunStats        `json:"stats"`
	Details    []GroupResult   `json:"details"`
	Dispatch   []IssueDispatch `json:"dispatch,omitempty"`
}

// Run generates digests for the requested groups and, when asked, dispatches
// each created issue in turn. Only a failure to read the group list is
// returned as an error; everything else lands in the report.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (RunReport, error) {
	report := RunReport{Trigger: req.Trigger, StartedAt: p.clock.Now()}
	start := time.Now()
	defer func() {
		metrics.RunDuration.WithLabelValues(triggerLabel(req.Trigger)).Observe(time.Since(start).Seconds())
	}()

	if p.coordinator == nil {
		return report, fmt.Errorf("pipeline has no coordinator")
	}

	results, err := p.coordinator.GenerateDigestsForActiveGroups(ctx, req.GroupIDs, RunOptions{BypassSchedule: req.BypassSchedule})
	if err != nil {
		return report, fmt.Errorf("generate digests: %w", err)
	}
	report.Details = results

	if req.SendEmails && p.dispatcher != nil {
		for _, result := range results {
			if result.Issue == nil {
				continue
			}
			recipients := p.recipientsFor(ctx, result, req.Recipients)
			report.Dispatch = append(report.Dispatch, IssueDispatch{
				IssueID:    result.Issue.ID,
				GroupID:    result.GroupID,
				Recipients: p.dispatcher.DispatchDigestIssue(ctx, *result.Issue, recipients),
			})
		}
	}

	report.Stats = summarize(results, report.Dispatch)
	report.FinishedAt = p.clock.Now()

	p.logger.Info("digest run finished",
		"trigger", req.Trigger,
		"groups", report.Stats.GroupsProcessed,
		"successes", report.Stats.Successes,
		"failures", report.Stats.Failures,
		"skipped", report.Stats.Skipped,
		"deliveries_failed", report.Stats.DeliveriesFailed)

	p.alertOnFailure(ctx, report)
	return report, nil
}

// Regenerate drops the group's issue for today and builds a new one.
func (p *Pipeline) Regenerate(ctx context.Context, groupID string) (*domain.DigestIssue, error) {
	if p.store == nil || p.builder == nil {
		return nil, fmt.Errorf("pipeline is not configured for regeneration")
	}

	group, err := p.store.GetKeywordGroupByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load group %s: %w", groupID, err)
	}
	if group == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, groupID)
	}

	now := p.clock.Now()
	date := p.builder.IssueDate(*group, now)
	removed, err := p.store.DeleteDigestIssuesForDate(ctx, group.ID, date)
	if err != nil {
		return nil, fmt.Errorf("delete issues for %s: %w", date, err)
	}
	p.logger.Info("regenerating digest", "group_id", group.ID, "date", date, "removed", removed)

	return p.builder.generate(ctx, *group, now)
}

// recipientsFor applies request override, then the group's own recipients
// unless test recipients are configured. An empty result lets the dispatcher
// fall back to its configured list.
func (p *Pipeline) recipientsFor(ctx context.Context, result GroupResult, override []string) []string {
	if len(override) > 0 {
		return override
	}
	if !p.useGroupRecipients || p.store == nil {
		return nil
	}
	if p.dispatcher != nil && p.dispatcher.HasTestRecipients() {
		return nil
	}
	group, err := p.store.GetKeywordGroupByID(ctx, result.GroupID)
	if err != nil || group == nil {
		p.logger.Warn("group recipients unavailable", "group_id", result.GroupID, "error", err)
		return nil
	}
	return group.Recipients
}

func summarize(results []GroupResult, dispatch []IssueDispatch) RunStats {
	stats := RunStats{GroupsProcessed: len(results)}
	for _, result := range results {
		switch {
		case result.Issue != nil:
			stats.Successes++
		case result.Skipped:
			stats.Skipped++
		case result.Failed():
			stats.Failures++
		}
	}
	for _, issue := range dispatch {
		for _, r := range issue.Recipients {
			if r.Status == domain.DeliverySent {
				stats.DeliveriesSent++
			} else {
				stats.DeliveriesFailed++
			}
		}
	}
	return stats
}

func (p *Pipeline) alertOnFailure(ctx context.Context, report RunReport) {
	if p.notifier == nil || (report.Stats.Failures == 0 && report.Stats.DeliveriesFailed == 0) {
		return
	}
	if p.store != nil {
		setting, err := p.store.GetNotificationSetting(ctx)
		if err != nil {
			p.logger.Warn("load notification setting failed", "error", err)
			return
		}
		if !setting.SendFailureAlert {
			return
		}
	}

	if err := p.notifier.PublishAlert(ctx, buildFailureAlert(report)); err != nil {
		p.logger.Warn("failure alert not delivered", "error", err)
	}
}

func buildFailureAlert(report RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MorningDigest 실패 알림 (%s)\n", triggerLabel(report.Trigger))
	fmt.Fprintf(&b, "그룹 실패 %d건, 발송 실패 %d건\n", report.Stats.Failures, report.Stats.DeliveriesFailed)
	for _, result := range report.Details {
		if !result.Failed() {
			continue
		}
		name := result.GroupName
		if name == "" {
			name = result.GroupID
		}
		fmt.Fprintf(&b, "- %s: %s\n", name, result.Error)
	}
	for _, issue := range report.Dispatch {
		for _, r := range issue.Recipients {
			if r.Status == domain.DeliveryFailed {
				fmt.Fprintf(&b, "- %s: %s\n", r.Recipient, r.Error)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func triggerLabel(trigger string) string {
	if trigger == "" {
		return "manual"
	}
	return trigger
}
