package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/promotions"
	"github.com/angelmondragon/storefront-backend/internal/reconciliation"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

const defaultQuoteTTL = 30 * time.Minute

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Reconciler drives a checkout from quote to committed order.
type Reconciler interface {
	Quote(ctx context.Context, accountID uuid.UUID, lines []pricing.CartLine, promotionCode string) (*pricing.Quote, error)
	CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error)
	Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error)
	RetryCommit(ctx context.Context, checkoutID uuid.UUID) (*ConfirmResult, error)
	ListRetryable(ctx context.Context, updatedBefore time.Time, limit int) ([]uuid.UUID, error)
	ExpireStale(ctx context.Context, now time.Time, limit int) (ExpireResult, error)
}

// ServiceParams bundles the dependencies required to build a Reconciler.
type ServiceParams struct {
	Sessions          Repository
	Pricer            pricing.Pricer
	Rules             pricing.Rules
	Catalog           catalog.Repository
	Promotions        promotions.Repository
	Orders            orders.Repository
	Reconciliation    reconciliation.Service
	Gateway           PaymentGateway
	Outbox            outboxPublisher
	Tx                txRunner
	Logger            *logger.Logger
	Metrics           *metrics.CheckoutMetrics
	QuoteTTL          time.Duration
	OrderNumberPrefix string
}

type service struct {
	sessions       Repository
	pricer         pricing.Pricer
	rules          pricing.Rules
	catalog        catalog.Repository
	promotions     promotions.Repository
	orders         orders.Repository
	reconciliation reconciliation.Service
	gateway        PaymentGateway
	outbox         outboxPublisher
	tx             txRunner
	logg           *logger.Logger
	metrics        *metrics.CheckoutMetrics
	quoteTTL       time.Duration
	prefix         string
	now            func() time.Time
}

// NewService constructs the checkout Reconciler.
func NewService(params ServiceParams) (Reconciler, error) {
	switch {
	case params.Sessions == nil:
		return nil, fmt.Errorf("checkout session repository required")
	case params.Pricer == nil:
		return nil, fmt.Errorf("pricer required")
	case params.Catalog == nil:
		return nil, fmt.Errorf("catalog repository required")
	case params.Promotions == nil:
		return nil, fmt.Errorf("promotions repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Reconciliation == nil:
		return nil, fmt.Errorf("reconciliation service required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "checkout", Output: io.Discard})
	}
	ttl := params.QuoteTTL
	if ttl <= 0 {
		ttl = defaultQuoteTTL
	}
	prefix := strings.TrimSpace(params.OrderNumberPrefix)
	if prefix == "" {
		prefix = "FK"
	}
	return &service{
		sessions:       params.Sessions,
		pricer:         params.Pricer,
		rules:          params.Rules,
		catalog:        params.Catalog,
		promotions:     params.Promotions,
		orders:         params.Orders,
		reconciliation: params.Reconciliation,
		gateway:        params.Gateway,
		outbox:         params.Outbox,
		tx:             params.Tx,
		logg:           logg,
		metrics:        params.Metrics,
		quoteTTL:       ttl,
		prefix:         prefix,
		now:            time.Now,
	}, nil
}

func (s *service) Quote(ctx context.Context, accountID uuid.UUID, lines []pricing.CartLine, promotionCode string) (*pricing.Quote, error) {
	quote, err := s.pricer.Quote(ctx, accountID, lines, promotionCode)
	if err != nil {
		return nil, err
	}
	s.metrics.IncQuote()
	return quote, nil
}

func (s *service) CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	address := input.ShippingAddress.Normalize()
	if err := address.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	var frequency *enums.SubscriptionFrequency
	if input.Subscription.Enabled {
		if !input.Subscription.Frequency.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription frequency is required")
		}
		f := input.Subscription.Frequency
		frequency = &f
	}

	quote, err := s.Quote(ctx, input.AccountID, input.Lines, input.PromotionCode)
	if err != nil {
		return nil, err
	}
	if quote.Pricing.TotalMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	now := s.now().UTC()
	session := &models.CheckoutSession{
		AccountID:             input.AccountID,
		State:                 enums.CheckoutStateQuoteIssued,
		Currency:              quote.Currency,
		Lines:                 quote.Lines,
		Pricing:               quote.Pricing,
		Promotion:             quote.Applied,
		ShippingAddress:       address,
		Notes:                 trimmedOrNil(input.Notes),
		IsSubscription:        input.Subscription.Enabled,
		SubscriptionFrequency: frequency,
		AmountMinor:           quote.Pricing.TotalMinor,
		ExpiresAt:             now.Add(s.quoteTTL),
	}
	if quote.Applied != nil {
		code := quote.Applied.Code
		session.PromotionCode = &code
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	ctx = s.logg.WithCheckoutID(ctx, session.ID.String())
	ctx = s.logg.WithAccountID(ctx, input.AccountID.String())
	s.logg.Info(ctx, "checkout.quote_issued")

	receipt := fmt.Sprintf("%s_%d", s.prefix, now.UnixMilli())
	intent, err := s.gateway.CreateIntent(ctx, session.AmountMinor, session.Currency, receipt, map[string]string{
		"checkout_id": session.ID.String(),
		"account_id":  input.AccountID.String(),
	})
	s.metrics.IncIntent(gatewayOutcome(err))
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout.intent_failed")
		return nil, gatewayError(err)
	}
	if intent.AmountMinor != 0 && intent.AmountMinor != session.AmountMinor {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway registered a different amount").
			WithDetails(map[string]any{"expected": session.AmountMinor, "registered": intent.AmountMinor})
	}

	ok, err := s.sessions.Transition(ctx, session.ID,
		[]enums.CheckoutState{enums.CheckoutStateQuoteIssued},
		enums.CheckoutStateIntentCreated,
		map[string]any{"gateway_intent_id": intent.ID},
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment intent")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session changed while creating intent")
	}
	s.logg.Info(s.logg.WithField(ctx, "gateway_intent_id", intent.ID), "checkout.intent_created")

	return &Intent{
		CheckoutID:      session.ID,
		GatewayIntentID: intent.ID,
		KeyID:           s.gateway.PublicKey(),
		AmountMinor:     session.AmountMinor,
		Currency:        session.Currency,
		Lines:           quote.Lines,
		Pricing:         quote.Pricing,
		Promotion:       quote.Promotion,
		ExpiresAt:       session.ExpiresAt,
	}, nil
}

// Confirm verifies the payment proof and commits the order. Replays of an
// already committed checkout return the existing order.
func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error) {
	input.IntentID = strings.TrimSpace(input.IntentID)
	input.TransactionID = strings.TrimSpace(input.TransactionID)
	input.Signature = strings.TrimSpace(input.Signature)
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.IntentID == "" || input.TransactionID == "" || input.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment proof is incomplete")
	}

	session, err := s.sessions.FindByIntent(ctx, input.AccountID, input.IntentID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	ctx = s.logg.WithCheckoutID(ctx, session.ID.String())
	ctx = s.logg.WithAccountID(ctx, session.AccountID.String())

	// A lost race on a state transition re-reads the session and dispatches
	// again; two passes cover every interleaving of two confirms.
	for attempt := 0; attempt < 3; attempt++ {
		result, retry, err := s.confirmSession(ctx, session, input)
		if !retry {
			return result, err
		}
		session, err = s.sessions.Get(ctx, session.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload checkout session")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment confirmation already in progress")
}

func (s *service) confirmSession(ctx context.Context, session *models.CheckoutSession, input ConfirmInput) (*ConfirmResult, bool, error) {
	switch session.State {
	case enums.CheckoutStateCommitted:
		result, err := s.existingOrder(ctx, session.ID)
		return result, false, err

	case enums.CheckoutStateExpired:
		return nil, false, s.handleLatePayment(ctx, session, input)

	case enums.CheckoutStateVerificationFailed:
		return nil, false, s.handleProofAfterFailure(ctx, session, input)

	case enums.CheckoutStateQuoteIssued:
		return nil, false, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout has no payment intent")

	case enums.CheckoutStateVerified, enums.CheckoutStateCommitFailed:
		if !s.proofMatches(session, input) {
			return nil, false, pkgerrors.New(pkgerrors.CodePaymentVerification, "payment verification failed")
		}
		result, err := s.commit(ctx, session)
		return result, false, err

	case enums.CheckoutStateIntentCreated:
		if !s.now().UTC().Before(session.ExpiresAt) {
			_, err := s.sessions.Transition(ctx, session.ID,
				[]enums.CheckoutState{enums.CheckoutStateIntentCreated},
				enums.CheckoutStateExpired,
				map[string]any{"failure_reason": "quote expired before payment confirmation"},
			)
			if err != nil {
				return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire checkout session")
			}
			return nil, true, nil
		}
		ok, err := s.sessions.Transition(ctx, session.ID,
			[]enums.CheckoutState{enums.CheckoutStateIntentCreated},
			enums.CheckoutStateProofReceived,
			map[string]any{
				"gateway_transaction_id": input.TransactionID,
				"gateway_signature":      input.Signature,
			},
		)
		if err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment proof")
		}
		if !ok {
			return nil, true, nil
		}
		session.State = enums.CheckoutStateProofReceived
		session.GatewayTransactionID = &input.TransactionID
		session.GatewaySignature = &input.Signature
		s.logg.Info(ctx, "checkout.proof_received")
		return s.verifyAndCommit(ctx, session, input, true)

	case enums.CheckoutStateProofReceived:
		return s.verifyAndCommit(ctx, session, input, false)
	}
	return nil, false, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("unexpected checkout state %q", session.State))
}

// verifyAndCommit checks the proof of a session in proof_received. Only the
// request that recorded the proof (owned) may fail the session; a bad proof
// racing a good one is rejected without touching the session.
func (s *service) verifyAndCommit(ctx context.Context, session *models.CheckoutSession, input ConfirmInput, owned bool) (*ConfirmResult, bool, error) {
	if !s.gateway.Verify(input.IntentID, input.TransactionID, input.Signature) {
		s.metrics.IncVerification("failed")
		if !owned {
			s.logg.Warn(ctx, "checkout.verification_failed")
			return nil, false, pkgerrors.New(pkgerrors.CodePaymentVerification, "payment verification failed")
		}
		if _, err := s.sessions.Transition(ctx, session.ID,
			[]enums.CheckoutState{enums.CheckoutStateProofReceived},
			enums.CheckoutStateVerificationFailed,
			map[string]any{"failure_reason": "payment signature mismatch"},
		); err != nil {
			s.logg.Error(ctx, "checkout.verification_failed.persist", err)
		}
		s.logg.Warn(ctx, "checkout.verification_failed")
		return nil, false, pkgerrors.New(pkgerrors.CodePaymentVerification, "payment verification failed")
	}
	s.metrics.IncVerification("verified")

	now := s.now().UTC()
	ok, err := s.sessions.Transition(ctx, session.ID,
		[]enums.CheckoutState{enums.CheckoutStateProofReceived},
		enums.CheckoutStateVerified,
		map[string]any{
			"gateway_transaction_id": input.TransactionID,
			"gateway_signature":      input.Signature,
			"verified_at":            now,
		},
	)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record verification")
	}
	if !ok {
		return nil, true, nil
	}
	session.State = enums.CheckoutStateVerified
	session.GatewayTransactionID = &input.TransactionID
	session.GatewaySignature = &input.Signature
	session.VerifiedAt = &now
	s.logg.Info(ctx, "checkout.verified")

	result, err := s.commit(ctx, session)
	return result, false, err
}

// proofMatches re-checks a replayed proof for a session that already passed
// verification. The transaction must be the one that was verified.
func (s *service) proofMatches(session *models.CheckoutSession, input ConfirmInput) bool {
	if session.GatewayTransactionID == nil || *session.GatewayTransactionID != input.TransactionID {
		return false
	}
	return s.gateway.Verify(input.IntentID, input.TransactionID, input.Signature)
}

// handleLatePayment flags a genuine payment that arrived after the session
// expired. No order is created; the exception drives a manual refund.
func (s *service) handleLatePayment(ctx context.Context, session *models.CheckoutSession, input ConfirmInput) error {
	err := s.flagGenuinePayment(ctx, session, input, enums.ExceptionLatePayment, map[string]any{
		"amount_minor": session.AmountMinor,
		"expired_at":   session.ExpiresAt,
	})
	if err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session expired; the payment has been flagged for refund").
		WithDetails(map[string]any{"checkout_id": session.ID})
}

// handleProofAfterFailure re-verifies a proof sent to a session that already
// failed verification. The session stays terminal; a genuine proof means money
// moved, so it is recorded for manual review.
func (s *service) handleProofAfterFailure(ctx context.Context, session *models.CheckoutSession, input ConfirmInput) error {
	details := map[string]any{"amount_minor": session.AmountMinor}
	if session.FailureReason != nil {
		details["failure_reason"] = *session.FailureReason
	}
	if err := s.flagGenuinePayment(ctx, session, input, enums.ExceptionOrphanedPayment, details); err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session failed verification; the payment has been flagged for review").
		WithDetails(map[string]any{"checkout_id": session.ID})
}

// flagGenuinePayment verifies a proof for a session that can no longer commit
// and records one open exception of the given kind per session.
func (s *service) flagGenuinePayment(ctx context.Context, session *models.CheckoutSession, input ConfirmInput, kind enums.ExceptionKind, details map[string]any) error {
	ctx = s.logg.WithField(ctx, "exception_kind", kind.String())
	if !s.gateway.Verify(input.IntentID, input.TransactionID, input.Signature) {
		s.metrics.IncVerification("failed")
		s.logg.Warn(ctx, "checkout.stranded_payment.verification_failed")
		return pkgerrors.New(pkgerrors.CodePaymentVerification, "payment verification failed")
	}
	s.metrics.IncVerification(string(kind))

	open, err := s.reconciliation.HasOpen(ctx, session.ID, kind)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open exceptions")
	}
	if open {
		return nil
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		exception, err := s.reconciliation.Record(ctx, tx, reconciliation.RecordInput{
			Kind:                 kind,
			CheckoutID:           session.ID,
			AccountID:            session.AccountID,
			GatewayIntentID:      input.IntentID,
			GatewayTransactionID: input.TransactionID,
			Details:              details,
		})
		if err != nil {
			return err
		}
		return s.emitFlagged(ctx, tx, exception)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stranded payment")
	}
	s.logg.Warn(s.logg.WithField(ctx, "gateway_transaction_id", input.TransactionID), "checkout.stranded_payment")
	return nil
}

func (s *service) existingOrder(ctx context.Context, checkoutID uuid.UUID) (*ConfirmResult, error) {
	order, err := s.orders.FindByCheckoutID(ctx, checkoutID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load committed order")
	}
	return &ConfirmResult{Order: orders.ToDetail(order), Created: false}, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
