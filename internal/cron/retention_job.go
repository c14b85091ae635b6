package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
)

const (
	outboxRetentionDays       = 30
	notificationRetentionDays = 90
)

// purgeFunc deletes rows older than cutoff inside tx and reports how many went.
type purgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type notificationPurger interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// RetentionJobParams is shared by the table retention jobs. RetentionDays
// falls back to the job's default when zero.
type RetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	RetentionDays int
}

// NewOutboxRetentionJob drops published outbox rows. Unpublished rows and the
// dead letter table are never touched.
func NewOutboxRetentionJob(params RetentionJobParams, repo outboxPurger) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return newRetentionJob("outbox-retention", outboxRetentionDays, params, repo.DeletePublishedBefore)
}

// NewNotificationCleanupJob drops read notifications past retention.
func NewNotificationCleanupJob(params RetentionJobParams, repo notificationPurger) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return newRetentionJob("notification-cleanup", notificationRetentionDays, params, repo.DeleteOlderThan)
}

func newRetentionJob(name string, defaultDays int, params RetentionJobParams, purge purgeFunc) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultDays
	}
	return &retentionJob{
		name:  name,
		logg:  params.Logger,
		db:    params.DB,
		days:  days,
		purge: purge,
		now:   time.Now,
	}, nil
}

type retentionJob struct {
	name  string
	logg  *logger.Logger
	db    txRunner
	days  int
	purge purgeFunc
	now   func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) cutoff() time.Time {
	return j.now().UTC().AddDate(0, 0, -j.days)
}

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.cutoff()
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.purge(ctx, tx, cutoff)
		deleted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   deleted,
	}), "retention sweep complete")
	return nil
}
