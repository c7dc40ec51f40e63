package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CheckoutExpiryJobParams configure the stale checkout sweep.
type CheckoutExpiryJobParams struct {
	Logger    *logger.Logger
	Sessions  sessionExpirer
	Metrics   itemCounter
	BatchSize int
}

// NewCheckoutExpiryJob builds the job that expires unpaid checkout sessions
// whose quote TTL has elapsed.
func NewCheckoutExpiryJob(params CheckoutExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("checkout reconciler required")
	}
	return &checkoutExpiryJob{
		logg:     params.Logger,
		sessions: params.Sessions,
		metrics:  counterOrNoop(params.Metrics),
		batch:    batchOrDefault(params.BatchSize),
		now:      time.Now,
	}, nil
}

type checkoutExpiryJob struct {
	logg     *logger.Logger
	sessions sessionExpirer
	metrics  itemCounter
	batch    int
	now      func() time.Time
}

func (j *checkoutExpiryJob) Name() string { return JobCheckoutExpiry }

func (j *checkoutExpiryJob) Run(ctx context.Context) error {
	result, err := j.sessions.ExpireStale(ctx, j.now().UTC(), j.batch)
	j.metrics.AddItems(JobCheckoutExpiry, result.Expired)
	if err != nil {
		return fmt.Errorf("expire stale checkouts: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"expired":    result.Expired,
		"batch_size": j.batch,
	})
	j.logg.Info(logCtx, "checkout expiry sweep complete")
	return nil
}
