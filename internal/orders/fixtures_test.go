package orders

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

var seedSequence int64

func seedOrder(t *testing.T, db *gorm.DB, accountID uuid.UUID, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	seedSequence++
	order := &models.Order{
		CheckoutID:           uuid.New(),
		AccountID:            accountID,
		OrderNumber:          FormatOrderNumber("FK", createdAt, seedSequence),
		Sequence:             seedSequence,
		Currency:             enums.CurrencyINR,
		SubtotalMinor:        49800,
		ShippingMinor:        4900,
		TotalMinor:           54700,
		AmountPaidMinor:      54700,
		ShippingAddress:      types.ShippingAddress{FullName: "Asha Rao", Phone: "9999999999", Street: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001", Country: "India"},
		PaymentMethod:        enums.PaymentMethodRazorpay,
		PaymentStatus:        enums.PaymentStatusPaid,
		GatewayIntentID:      fmt.Sprintf("order_%d", seedSequence),
		GatewayTransactionID: fmt.Sprintf("pay_%d", seedSequence),
		GatewaySignature:     "sig",
		PaidAt:               createdAt,
		Status:               status,
		CreatedAt:            createdAt,
		Items: []models.OrderLineItem{{
			ProductID:      uuid.New(),
			VariantKey:     "250g",
			Name:           "Darjeeling First Flush",
			Quantity:       2,
			UnitPriceMinor: 24900,
			LineTotalMinor: 49800,
		}},
	}
	require.NoError(t, db.Create(order).Error)
	return order
}
