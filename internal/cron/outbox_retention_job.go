package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/carrental-backend/pkg/logger"
)

const (
	outboxRetentionDays  = 30
	outboxRetentionBatch = 1000
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	Retention  int
	BatchSize  int
	Now        func() time.Time
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

// NewOutboxRetentionJob builds the job that prunes published rental events
// older than the retention window.
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
	batch := params.BatchSize
	if batch <= 0 {
		batch = outboxRetentionBatch
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: retention,
		batch:     batch,
		now:       now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      outboxRetentionRepo
	retention int
	batch     int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run deletes in bounded transactions until a batch comes back short.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var total int64
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var deleted int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			rows, err := j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.batch)
			if err != nil {
				return err
			}
			deleted = rows
			return nil
		})
		if err != nil {
			return fmt.Errorf("outbox retention: %w", err)
		}
		total += deleted
		batches++
		if deleted < int64(j.batch) {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"batches":        batches,
		"rows_deleted":   total,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
