package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

func seedProduct(t *testing.T, db *gorm.DB, active bool, stock int) models.Product {
	t.Helper()
	thumb := "https://cdn.example.com/p1.jpg"
	product := models.Product{
		Name:      "Peri Peri Makhana",
		Slug:      "peri-peri-makhana-" + uuid.NewString()[:8],
		Thumbnail: &thumb,
		IsActive:  active,
		Variants: []models.ProductVariant{
			{VariantKey: "150g", PriceMinor: 24900, ListPriceMinor: 29900, Stock: stock},
		},
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func TestRepository_GetVariant(t *testing.T) {
	db := dbtest.Open(t)
	product := seedProduct(t, db, true, 10)
	repo := NewRepository(db)

	variant, err := repo.GetVariant(context.Background(), product.ID, " 150g ")
	require.NoError(t, err)
	assert.Equal(t, product.ID, variant.ProductID)
	assert.Equal(t, "Peri Peri Makhana", variant.ProductName)
	assert.Equal(t, int64(24900), variant.UnitPriceMinor)
	assert.Equal(t, int64(29900), variant.ListPriceMinor)
	assert.Equal(t, 10, variant.Stock)
	assert.True(t, variant.Active)
	require.NotNil(t, variant.Thumbnail)

	_, err = repo.GetVariant(context.Background(), product.ID, "500g")
	assert.ErrorIs(t, err, ErrVariantNotFound)

	_, err = repo.GetVariant(context.Background(), uuid.New(), "150g")
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

func TestRepository_GetVariantReportsInactiveProduct(t *testing.T) {
	db := dbtest.Open(t)
	product := seedProduct(t, db, false, 10)

	variant, err := NewRepository(db).GetVariant(context.Background(), product.ID, "150g")
	require.NoError(t, err)
	assert.False(t, variant.Active)
}

func TestRepository_DecrementStockIsConditional(t *testing.T) {
	db := dbtest.Open(t)
	product := seedProduct(t, db, true, 3)
	repo := NewRepository(db)
	ctx := context.Background()

	ok, err := repo.DecrementStock(ctx, product.ID, "150g", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStock(ctx, product.ID, "150g", 2)
	require.NoError(t, err)
	assert.False(t, ok, "only one unit left")

	variant, err := repo.GetVariant(ctx, product.ID, "150g")
	require.NoError(t, err)
	assert.Equal(t, 1, variant.Stock)

	_, err = repo.DecrementStock(ctx, product.ID, "150g", 0)
	assert.Error(t, err)
}

func TestRepository_ConcurrentDecrementForLastUnit(t *testing.T) {
	db := dbtest.Open(t)
	product := seedProduct(t, db, true, 1)
	repo := NewRepository(db)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.DecrementStock(context.Background(), product.ID, "150g", 1)
			if err != nil {
				t.Errorf("decrement: %v", err)
				return
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	variant, err := repo.GetVariant(context.Background(), product.ID, "150g")
	require.NoError(t, err)
	assert.Equal(t, 0, variant.Stock)
}
