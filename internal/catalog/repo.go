package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ErrVariantNotFound is returned when the product or the requested variant does not exist.
var ErrVariantNotFound = errors.New("catalog: variant not found")

// Variant is the authoritative pricing and stock view of one pack size.
type Variant struct {
	ProductID      uuid.UUID
	ProductName    string
	Thumbnail      *string
	VariantKey     string
	UnitPriceMinor int64
	ListPriceMinor int64
	Stock          int
	Active         bool
}

// Repository reads variants and applies the conditional stock decrement.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetVariant(ctx context.Context, productID uuid.UUID, variantKey string) (*Variant, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, variantKey string, quantity int) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

type variantRow struct {
	ProductID      uuid.UUID
	Name           string
	Thumbnail      *string
	IsActive       bool
	VariantKey     string
	PriceMinor     int64
	ListPriceMinor int64
	Stock          int
}

func (r *repository) GetVariant(ctx context.Context, productID uuid.UUID, variantKey string) (*Variant, error) {
	var row variantRow
	res := r.db.WithContext(ctx).
		Table("product_variants AS pv").
		Select("p.id AS product_id, p.name, p.thumbnail, p.is_active, pv.variant_key, pv.price_minor, pv.list_price_minor, pv.stock").
		Joins("JOIN products AS p ON p.id = pv.product_id").
		Where("pv.product_id = ? AND pv.variant_key = ?", productID, strings.TrimSpace(variantKey)).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("load variant: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrVariantNotFound
	}
	return &Variant{
		ProductID:      row.ProductID,
		ProductName:    row.Name,
		Thumbnail:      row.Thumbnail,
		VariantKey:     row.VariantKey,
		UnitPriceMinor: row.PriceMinor,
		ListPriceMinor: row.ListPriceMinor,
		Stock:          row.Stock,
		Active:         row.IsActive,
	}, nil
}

// DecrementStock removes quantity units only while enough stock remains.
// It reports false, without error, when the condition did not hold.
func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, variantKey string, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, fmt.Errorf("decrement quantity must be positive")
	}
	res := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("product_id = ? AND variant_key = ? AND stock >= ?", productID, variantKey, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return false, fmt.Errorf("decrement stock: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
