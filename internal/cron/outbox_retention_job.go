package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/metrics"
	"gorm.io/gorm"
)

const (
	outboxRetentionDays = 30
	outboxMinAttempts   = 5
	outboxBacklogWarnAt = 1000
)

type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxRetentionRepo
	Metrics     *metrics.CronMetrics
	Retention   int
	MinAttempts int
	// BacklogWarnAt is the unpublished row count that escalates the run log to warn.
	BacklogWarnAt int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
	CountPending(ctx context.Context) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = outboxMinAttempts
	}
	warnAt := params.BacklogWarnAt
	if warnAt <= 0 {
		warnAt = outboxBacklogWarnAt
	}
	return &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		metrics:     params.Metrics,
		retention:   retention,
		minAttempts: minAttempts,
		warnAt:      int64(warnAt),
		now:         time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxRetentionRepo
	metrics     *metrics.CronMetrics
	retention   int
	minAttempts int
	warnAt      int64
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

type retentionReport struct {
	cutoff  time.Time
	deleted int64
	pending int64
}

// Run purges published rows older than the retention window, then reports the
// unpublished backlog so a stalled publisher shows up in logs and metrics.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	report := retentionReport{cutoff: j.now().UTC().AddDate(0, 0, -j.retention)}
	if err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		report.deleted, err = j.repo.DeletePublishedBefore(ctx, tx, report.cutoff, j.minAttempts)
		return err
	}); err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}

	var err error
	if report.pending, err = j.repo.CountPending(ctx); err != nil {
		return fmt.Errorf("outbox backlog: %w", err)
	}
	j.metrics.ObserveOutbox(report.pending, report.deleted)
	j.log(ctx, report)
	return nil
}

func (j *outboxRetentionJob) log(ctx context.Context, r retentionReport) {
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         r.cutoff,
		"retention_days": j.retention,
		"min_attempts":   j.minAttempts,
		"rows_deleted":   r.deleted,
		"rows_pending":   r.pending,
	})
	if r.pending >= j.warnAt {
		j.logg.Warn(logCtx, "outbox backlog above threshold")
		return
	}
	j.logg.Info(logCtx, "outbox retention cleanup complete")
}
