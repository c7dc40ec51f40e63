package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ErrSessionNotFound is returned when no checkout session matches.
var ErrSessionNotFound = errors.New("checkout: session not found")

// Repository persists checkout sessions. State changes go through Transition,
// which only applies while the session is still in one of the expected states.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, session *models.CheckoutSession) error
	Get(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error)
	FindByIntent(ctx context.Context, accountID uuid.UUID, intentID string) (*models.CheckoutSession, error)
	Transition(ctx context.Context, id uuid.UUID, from []enums.CheckoutState, to enums.CheckoutState, fields map[string]any) (bool, error)
	ListStale(ctx context.Context, now time.Time, limit int) ([]models.CheckoutSession, error)
	ListRetryable(ctx context.Context, updatedBefore time.Time, limit int) ([]models.CheckoutSession, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout session repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, session *models.CheckoutSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if db.IsNotFound(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) FindByIntent(ctx context.Context, accountID uuid.UUID, intentID string) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("gateway_intent_id = ? AND account_id = ?", intentID, accountID).
		First(&session).Error
	if db.IsNotFound(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from []enums.CheckoutState, to enums.CheckoutState, fields map[string]any) (bool, error) {
	updates := map[string]any{
		"state":      to,
		"updated_at": time.Now().UTC(),
	}
	for key, value := range fields {
		updates[key] = value
	}
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ? AND state IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListStale returns unpaid sessions whose quote has lapsed.
func (r *repository) ListStale(ctx context.Context, now time.Time, limit int) ([]models.CheckoutSession, error) {
	var sessions []models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("state IN ? AND expires_at <= ?", []enums.CheckoutState{enums.CheckoutStateQuoteIssued, enums.CheckoutStateIntentCreated}, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// ListRetryable returns sessions holding a verified payment without an order:
// failed commits and verified sessions left behind by a crashed request.
func (r *repository) ListRetryable(ctx context.Context, updatedBefore time.Time, limit int) ([]models.CheckoutSession, error) {
	var sessions []models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("state IN ? AND updated_at <= ?", []enums.CheckoutState{enums.CheckoutStateCommitFailed, enums.CheckoutStateVerified}, updatedBefore).
		Order("updated_at ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}
