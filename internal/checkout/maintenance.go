package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// RetryCommit re-runs the commit for a session that holds a verified payment
// but no order. Committed sessions return their order.
func (s *service) RetryCommit(ctx context.Context, checkoutID uuid.UUID) (*ConfirmResult, error) {
	session, err := s.sessions.Get(ctx, checkoutID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	ctx = s.logg.WithCheckoutID(ctx, session.ID.String())

	switch session.State {
	case enums.CheckoutStateCommitted:
		return s.existingOrder(ctx, session.ID)
	case enums.CheckoutStateCommitFailed, enums.CheckoutStateVerified:
		s.logg.Info(ctx, "checkout.commit_retry")
		return s.commit(ctx, session)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session is not awaiting commit").
			WithDetails(map[string]any{"state": session.State})
	}
}

// ListRetryable returns the ids of sessions RetryCommit can act on that have
// not changed since updatedBefore.
func (s *service) ListRetryable(ctx context.Context, updatedBefore time.Time, limit int) ([]uuid.UUID, error) {
	sessions, err := s.sessions.ListRetryable(ctx, updatedBefore, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list retryable sessions")
	}
	ids := make([]uuid.UUID, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}
	return ids, nil
}

// ExpireStale moves unpaid sessions past their quote TTL to expired.
func (s *service) ExpireStale(ctx context.Context, now time.Time, limit int) (ExpireResult, error) {
	if limit <= 0 {
		limit = 100
	}
	stale, err := s.sessions.ListStale(ctx, now, limit)
	if err != nil {
		return ExpireResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale sessions")
	}
	var result ExpireResult
	for _, session := range stale {
		ok, err := s.sessions.Transition(ctx, session.ID,
			[]enums.CheckoutState{enums.CheckoutStateQuoteIssued, enums.CheckoutStateIntentCreated},
			enums.CheckoutStateExpired,
			map[string]any{"failure_reason": "quote expired before payment confirmation"},
		)
		if err != nil {
			return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire checkout session")
		}
		if ok {
			result.Expired++
		}
	}
	s.metrics.AddExpired(result.Expired)
	if result.Expired > 0 {
		s.logg.Info(s.logg.WithField(ctx, "expired", result.Expired), "checkout.sessions_expired")
	}
	return result, nil
}
