package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tallybook/tallybook/internal/insight"
	"github.com/tallybook/tallybook/internal/observability"
)

const defaultWarmupMonths = 6

// ReportWarmupJob pre-populates the report cache so the first dashboard
// request after an invalidation does not pay the full recompute cost.
type ReportWarmupJob struct {
	Insight *insight.Service
	Config  insight.Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(insightSvc *insight.Service, cfg insight.Config, logger *slog.Logger, metrics *observability.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{
		Insight: insightSvc,
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Insight == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	months := payload.Months
	if months <= 0 {
		months = defaultWarmupMonths
	}

	now := j.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	logger := j.logger().With(slog.Int("months", months))
	logger.Info("starting report warmup")

	err := j.warm(ctx, from, now)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		logger.Error("report warmup", slog.Any("error", err))
	} else {
		logger.Info("completed report warmup", slog.Duration("duration", time.Since(now)))
	}
	j.Metrics.ObserveJob(TaskReportWarmup, outcome)
	return err
}

func (j *ReportWarmupJob) warm(ctx context.Context, from, to time.Time) error {
	// Bound each run so a slow database cannot pile up warmup workers.
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := j.Insight.Overview(warmCtx, insight.OverviewFilter{From: from, To: to}); err != nil {
		return err
	}
	if _, err := j.Insight.FinanceSeries(warmCtx, insight.SeriesFilter{From: from, To: to}); err != nil {
		return err
	}
	if _, err := j.Insight.CustomerRanking(warmCtx, insight.RankingFilter{
		From: from,
		To:   to,
		Top:  j.Config.DefaultTop,
	}); err != nil {
		return err
	}
	_, err := j.Insight.TopItems(warmCtx, insight.ItemsFilter{
		From: from,
		To:   to,
		Top:  j.Config.DefaultTop,
	})
	return err
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportWarmup))
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
