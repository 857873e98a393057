package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
)

const notificationRetentionDays = 30

// txRunner runs a function inside one database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// NotificationPurgeJobParams configure the tombstone purge job.
type NotificationPurgeJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Purge     func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	Retention int
}

// NewNotificationPurgeJob builds the job that physically removes tombstoned
// notifications past the retention window. Active rows are never touched.
func NewNotificationPurgeJob(params NotificationPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Purge == nil {
		return nil, fmt.Errorf("purge func required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = notificationRetentionDays
	}
	return &notificationPurgeJob{
		logg:      params.Logger,
		db:        params.DB,
		purge:     params.Purge,
		retention: retention,
		now:       time.Now,
	}, nil
}

type notificationPurgeJob struct {
	logg      *logger.Logger
	db        txRunner
	purge     func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	retention int
	now       func() time.Time
}

func (j *notificationPurgeJob) Name() string { return "notification-purge" }

func (j *notificationPurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var purged int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		purged = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("notification purge: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_purged":    purged,
	})
	j.logg.Info(logCtx, "notification purge complete")
	return nil
}
