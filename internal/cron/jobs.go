package cron

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	JobCheckoutExpiry  = "checkout_expiry"
	JobCommitRetry     = "commit_retry"
	JobOutboxRetention = "outbox_retention"

	defaultBatchSize = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionExpirer interface {
	ExpireStale(ctx context.Context, now time.Time, limit int) (checkout.ExpireResult, error)
}

type commitRetrier interface {
	ListRetryable(ctx context.Context, updatedBefore time.Time, limit int) ([]uuid.UUID, error)
	RetryCommit(ctx context.Context, checkoutID uuid.UUID) (*checkout.ConfirmResult, error)
}

type itemCounter interface {
	AddItems(job string, n int)
}

type noopCounter struct{}

func (noopCounter) AddItems(string, int) {}

func counterOrNoop(c itemCounter) itemCounter {
	if c == nil {
		return noopCounter{}
	}
	return c
}

func batchOrDefault(n int) int {
	if n <= 0 {
		return defaultBatchSize
	}
	return n
}
