package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Service records and resolves reconciliation exceptions.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.ReconciliationException, error)
	HasOpen(ctx context.Context, checkoutID uuid.UUID, kind enums.ExceptionKind) (bool, error)
	ListOpen(ctx context.Context, kind *enums.ExceptionKind, params pagination.Params) (pagination.Page[models.ReconciliationException], error)
	Resolve(ctx context.Context, id uuid.UUID, note string) (*models.ReconciliationException, error)
}

// RecordInput captures the immutable data an exception requires.
type RecordInput struct {
	Kind                 enums.ExceptionKind
	CheckoutID           uuid.UUID
	OrderID              *uuid.UUID
	AccountID            uuid.UUID
	GatewayIntentID      string
	GatewayTransactionID string
	Details              types.JSONMap
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a reconciliation service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reconciliation repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Record appends an exception. When tx is non-nil the row joins that
// transaction; otherwise it is written on its own so it survives a rollback
// of the caller's work.
func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.ReconciliationException, error) {
	if !input.Kind.IsValid() {
		return nil, fmt.Errorf("invalid exception kind %q", input.Kind)
	}
	if input.CheckoutID == uuid.Nil {
		return nil, fmt.Errorf("checkout id is required")
	}
	if input.AccountID == uuid.Nil {
		return nil, fmt.Errorf("account id is required")
	}

	exception := &models.ReconciliationException{
		Kind:                 input.Kind,
		CheckoutID:           input.CheckoutID,
		OrderID:              input.OrderID,
		AccountID:            input.AccountID,
		GatewayIntentID:      optional(input.GatewayIntentID),
		GatewayTransactionID: optional(input.GatewayTransactionID),
		Details:              input.Details,
	}
	if err := s.repo.WithTx(tx).Create(ctx, exception); err != nil {
		return nil, err
	}
	return exception, nil
}

func (s *service) HasOpen(ctx context.Context, checkoutID uuid.UUID, kind enums.ExceptionKind) (bool, error) {
	count, err := s.repo.CountOpen(ctx, checkoutID, kind)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *service) ListOpen(ctx context.Context, kind *enums.ExceptionKind, params pagination.Params) (pagination.Page[models.ReconciliationException], error) {
	if kind != nil && !kind.IsValid() {
		return pagination.Page[models.ReconciliationException]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid exception kind")
	}
	page, err := s.repo.ListOpen(ctx, kind, params)
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return pagination.Page[models.ReconciliationException]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if err != nil {
		return pagination.Page[models.ReconciliationException]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reconciliation exceptions")
	}
	return page, nil
}

func (s *service) Resolve(ctx context.Context, id uuid.UUID, note string) (*models.ReconciliationException, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution note is required")
	}
	err := s.repo.MarkResolved(ctx, id, note, s.now().UTC())
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "exception not found")
	case errors.Is(err, ErrAlreadyResolved):
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "exception already resolved")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve exception")
	}
	return s.repo.Get(ctx, id)
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
