package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"go.uber.org/multierr"
)

const defaultCommitRetryDelay = time.Minute

// CommitRetryJobParams configure the commit retry sweep.
type CommitRetryJobParams struct {
	Logger    *logger.Logger
	Checkout  commitRetrier
	Metrics   itemCounter
	BatchSize int
	// Delay keeps the sweep away from sessions a confirm request may still be
	// committing.
	Delay time.Duration
}

// NewCommitRetryJob builds the job that re-runs the order commit for paid
// sessions stuck in commit_failed or verified.
func NewCommitRetryJob(params CommitRetryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout reconciler required")
	}
	delay := params.Delay
	if delay <= 0 {
		delay = defaultCommitRetryDelay
	}
	return &commitRetryJob{
		logg:     params.Logger,
		checkout: params.Checkout,
		metrics:  counterOrNoop(params.Metrics),
		batch:    batchOrDefault(params.BatchSize),
		delay:    delay,
		now:      time.Now,
	}, nil
}

type commitRetryJob struct {
	logg     *logger.Logger
	checkout commitRetrier
	metrics  itemCounter
	batch    int
	delay    time.Duration
	now      func() time.Time
}

func (j *commitRetryJob) Name() string { return JobCommitRetry }

func (j *commitRetryJob) Run(ctx context.Context) error {
	ids, err := j.checkout.ListRetryable(ctx, j.now().UTC().Add(-j.delay), j.batch)
	if err != nil {
		return fmt.Errorf("list retryable checkouts: %w", err)
	}
	var errs error
	recovered := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		result, err := j.checkout.RetryCommit(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("retry commit %s: %w", id, err))
			continue
		}
		recovered++
		if result != nil && result.Order != nil {
			logCtx := j.logg.WithFields(ctx, map[string]any{
				"checkout_id":  id.String(),
				"order_number": result.Order.OrderNumber,
			})
			j.logg.Info(logCtx, "checkout commit recovered")
		}
	}
	j.metrics.AddItems(JobCommitRetry, recovered)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(ids),
		"recovered":  recovered,
		"failed":     len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "commit retry sweep complete")
	return errs
}
