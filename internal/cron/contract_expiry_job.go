package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/carrental-backend/pkg/logger"
)

const defaultContractExpiryBatch = 500

// contractExpirer is the slice of the contract engine the sweep drives. The
// engine owns the transition; the job only selects and iterates.
type contractExpirer interface {
	ListExpired(ctx context.Context, limit int) ([]uuid.UUID, error)
	Expire(ctx context.Context, id uuid.UUID) (bool, error)
}

type ContractExpiryJobParams struct {
	Logger    *logger.Logger
	Contracts contractExpirer
	BatchSize int
}

// NewContractExpiryJob builds the job that ends active contracts whose end
// date has been reached and frees their cars.
func NewContractExpiryJob(params ContractExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Contracts == nil {
		return nil, fmt.Errorf("contract service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultContractExpiryBatch
	}
	return &contractExpiryJob{
		logg:      params.Logger,
		contracts: params.Contracts,
		batch:     batch,
	}, nil
}

type contractExpiryJob struct {
	logg      *logger.Logger
	contracts contractExpirer
	batch     int
}

func (j *contractExpiryJob) Name() string { return "contract-expiry" }

// Run drains due contracts batch by batch. A failing contract is logged and
// skipped so the rest of the batch still expires; its error is returned in
// the combined result.
func (j *contractExpiryJob) Run(ctx context.Context) error {
	var (
		errs     error
		expired  int
		skipped  int
		failures = map[uuid.UUID]struct{}{}
	)
	for {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		ids, err := j.contracts.ListExpired(ctx, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list expired contracts: %w", err))
		}

		progressed := false
		for _, id := range ids {
			if _, failed := failures[id]; failed {
				continue
			}
			ok, err := j.contracts.Expire(ctx, id)
			if err != nil {
				failures[id] = struct{}{}
				j.logg.Error(j.logg.WithContractID(ctx, id.String()), "contract expiry failed", err)
				errs = multierr.Append(errs, fmt.Errorf("expire contract %s: %w", id, err))
				continue
			}
			if ok {
				expired++
				progressed = true
			} else {
				skipped++
			}
		}
		if len(ids) < j.batch || !progressed {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"expired": expired,
		"skipped": skipped,
		"failed":  len(failures),
	})
	j.logg.Info(logCtx, "contract expiry sweep complete")
	return errs
}
