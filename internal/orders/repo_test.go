package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

func TestRepository_NextSequenceIsMonotonic(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	var (
		mu   sync.Mutex
		seen = map[int64]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := repo.NextSequence(ctx)
			assert.NoError(t, err)
			mu.Lock()
			seen[value] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 10)
	for i := int64(1); i <= 10; i++ {
		assert.True(t, seen[i], "missing sequence %d", i)
	}
}

func TestRepository_FindLoadsItems(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	seeded := seedOrder(t, db, uuid.New(), enums.OrderStatusConfirmed, time.Now().UTC())

	byID, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.Len(t, byID.Items, 1)
	assert.Equal(t, "250g", byID.Items[0].VariantKey)
	assert.Equal(t, "Pune", byID.ShippingAddress.City)

	byCheckout, err := repo.FindByCheckoutID(ctx, seeded.CheckoutID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, byCheckout.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ListFiltersAndPaginates(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var ownerOrders []*models.Order
	for i := 0; i < 5; i++ {
		ownerOrders = append(ownerOrders, seedOrder(t, db, owner, enums.OrderStatusConfirmed, base.Add(time.Duration(i)*time.Minute)))
	}
	shipped := seedOrder(t, db, uuid.New(), enums.OrderStatusShipped, base.Add(time.Hour))

	first, err := repo.List(ctx, ListFilters{AccountID: &owner}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.Meta.HasMore)
	assert.Equal(t, ownerOrders[4].ID, first.Items[0].ID)
	assert.Equal(t, ownerOrders[3].ID, first.Items[1].ID)

	second, err := repo.List(ctx, ListFilters{AccountID: &owner}, pagination.Params{Limit: 2, Cursor: first.Meta.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, ownerOrders[2].ID, second.Items[0].ID)

	third, err := repo.List(ctx, ListFilters{AccountID: &owner}, pagination.Params{Limit: 2, Cursor: second.Meta.NextCursor})
	require.NoError(t, err)
	require.Len(t, third.Items, 1)
	assert.False(t, third.Meta.HasMore)
	assert.Empty(t, third.Meta.NextCursor)

	status := enums.OrderStatusShipped
	byStatus, err := repo.List(ctx, ListFilters{Status: &status}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, byStatus.Items, 1)
	assert.Equal(t, shipped.ID, byStatus.Items[0].ID)

	_, err = repo.List(ctx, ListFilters{}, pagination.Params{Cursor: "%%%"})
	assert.ErrorIs(t, err, pagination.ErrInvalidCursor)
}

func TestRepository_MarkOversold(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	seeded := seedOrder(t, db, uuid.New(), enums.OrderStatusConfirmed, time.Now().UTC())

	require.NoError(t, repo.MarkOversold(ctx, seeded.ID, []uuid.UUID{seeded.Items[0].ID}))

	reloaded, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.NeedsReconciliation)
	assert.True(t, reloaded.Items[0].Oversold)

	flagged := true
	page, err := repo.List(ctx, ListFilters{NeedsReconciliation: &flagged}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestRepository_UpdateFulfillmentIsConditional(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	seeded := seedOrder(t, db, uuid.New(), enums.OrderStatusConfirmed, time.Now().UTC())
	tracking := "AWB123"

	ok, err := repo.UpdateFulfillment(ctx, seeded.ID, enums.OrderStatusConfirmed, enums.OrderStatusProcessing, &tracking, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateFulfillment(ctx, seeded.ID, enums.OrderStatusConfirmed, enums.OrderStatusCancelled, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, reloaded.Status)
	require.NotNil(t, reloaded.TrackingNumber)
	assert.Equal(t, "AWB123", *reloaded.TrackingNumber)
}

func TestFormatOrderNumber(t *testing.T) {
	at := time.UnixMilli(1767225600123).UTC()
	assert.Equal(t, "FK17672256001230042", FormatOrderNumber("FK", at, 42))
	assert.Equal(t, "FK176722560012310001", FormatOrderNumber("FK", at, 10001))
	assert.Equal(t, "FK1767225600123123456", FormatOrderNumber("FK", at, 123456))
}
