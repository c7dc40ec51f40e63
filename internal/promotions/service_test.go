package promotions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestService_Validate(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Create(ctx, CreateInput{
		Code:               "save10",
		DiscountType:       "percentage",
		DiscountValue:      decimal.NewFromInt(10),
		MaxDiscountMinor:   int64Ptr(5000),
		MinOrderValueMinor: 49900,
		UsageLimit:         intPtr(5),
		ValidFrom:          time.Now().Add(-time.Hour),
		ValidUntil:         time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	preview, err := svc.Validate(ctx, uuid.New(), " Save10 ", 49900)
	require.NoError(t, err)
	assert.Equal(t, Preview{Code: "SAVE10", Valid: true, DiscountMinor: 4990}, preview)

	preview, err = svc.Validate(ctx, uuid.New(), "save10", 10000)
	require.NoError(t, err)
	assert.False(t, preview.Valid)
	assert.Equal(t, "Minimum order value ₹499 required", preview.Reason)
	assert.Zero(t, preview.DiscountMinor)

	preview, err = svc.Validate(ctx, uuid.New(), "nope", 10000)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, preview.Reason)

	_, err = svc.Validate(ctx, uuid.New(), "  ", 10000)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestService_Create(t *testing.T) {
	db := dbtest.Open(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()
	from := time.Now()

	valid := CreateInput{
		Code:          "flat100",
		DiscountType:  "flat",
		DiscountValue: decimal.NewFromInt(10000),
		ValidFrom:     from,
		ValidUntil:    from.Add(time.Hour),
	}
	promo, err := svc.Create(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, "FLAT100", promo.Code)
	assert.True(t, promo.IsActive)

	_, err = svc.Create(ctx, valid)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	bad := valid
	bad.Code = "OTHER"
	bad.DiscountType = "bogus"
	_, err = svc.Create(ctx, bad)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	bad = valid
	bad.Code = "PCT"
	bad.DiscountType = "percentage"
	bad.DiscountValue = decimal.NewFromInt(150)
	_, err = svc.Create(ctx, bad)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	bad = valid
	bad.Code = "WINDOW"
	bad.ValidUntil = from.Add(-time.Hour)
	_, err = svc.Create(ctx, bad)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestService_SetActive(t *testing.T) {
	db := dbtest.Open(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	promo := seedPromotion(t, db, "TOGGLE", nil, 0)

	updated, err := svc.SetActive(context.Background(), promo.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = svc.SetActive(context.Background(), uuid.New(), false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
