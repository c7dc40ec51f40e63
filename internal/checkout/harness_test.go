package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/promotions"
	"github.com/angelmondragon/storefront-backend/internal/reconciliation"
	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/razorpay"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const testGatewaySecret = "test_key_secret"

type fakeGateway struct {
	mu      sync.Mutex
	seq     int
	err     error
	amounts map[string]int64
}

func (g *fakeGateway) CreateIntent(_ context.Context, amountMinor int64, currency enums.Currency, _ string, _ map[string]string) (*GatewayIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.seq++
	id := fmt.Sprintf("order_test%04d", g.seq)
	if g.amounts == nil {
		g.amounts = map[string]int64{}
	}
	g.amounts[id] = amountMinor
	return &GatewayIntent{ID: id, AmountMinor: amountMinor, Currency: currency.String()}, nil
}

func (g *fakeGateway) Verify(intentID, transactionID, signature string) bool {
	return razorpay.VerifySignature(intentID, transactionID, signature, testGatewaySecret)
}

func (g *fakeGateway) PublicKey() string { return "rzp_test_key" }

// switchableOutbox fails order_committed events while failing is set.
type switchableOutbox struct {
	inner   *outbox.Service
	failing atomic.Bool
}

func (o *switchableOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if o.failing.Load() && event.EventType == enums.EventOrderCommitted {
		return errors.New("outbox unavailable")
	}
	return o.inner.Emit(ctx, tx, event)
}

type harness struct {
	db      *gorm.DB
	svc     *service
	gateway *fakeGateway
	outbox  *switchableOutbox
	product models.Product
	clock   time.Time
}

func newHarness(t *testing.T, stock int) *harness {
	t.Helper()
	db := dbtest.Open(t)

	catalogRepo := catalog.NewRepository(db)
	promoRepo := promotions.NewRepository(db)
	rules := pricing.DefaultRules()
	pricer, err := pricing.NewPricer(catalogRepo, promoRepo, rules)
	require.NoError(t, err)
	reconSvc, err := reconciliation.NewService(reconciliation.NewRepository(db))
	require.NoError(t, err)

	h := &harness{
		db:      db,
		gateway: &fakeGateway{},
		outbox:  &switchableOutbox{inner: outbox.NewService(outbox.NewRepository(db), nil)},
		clock:   time.Now().UTC(),
	}
	reconciler, err := NewService(ServiceParams{
		Sessions:          NewRepository(db),
		Pricer:            pricer,
		Rules:             rules,
		Catalog:           catalogRepo,
		Promotions:        promoRepo,
		Orders:            orders.NewRepository(db),
		Reconciliation:    reconSvc,
		Gateway:           h.gateway,
		Outbox:            h.outbox,
		Tx:                pkgdb.Wrap(db),
		QuoteTTL:          30 * time.Minute,
		OrderNumberPrefix: "FK",
	})
	require.NoError(t, err)
	h.svc = reconciler.(*service)
	h.svc.now = func() time.Time { return h.clock }

	thumb := "https://cdn.example.com/darjeeling.jpg"
	h.product = models.Product{
		Name:      "Darjeeling First Flush",
		Slug:      "darjeeling-" + uuid.NewString()[:8],
		Thumbnail: &thumb,
		IsActive:  true,
		Variants: []models.ProductVariant{
			{VariantKey: "250g", PriceMinor: 24900, ListPriceMinor: 29900, Stock: stock},
		},
	}
	require.NoError(t, db.Create(&h.product).Error)
	return h
}

func (h *harness) seedPromotion(t *testing.T, code string, limit *int, used int) *models.Promotion {
	t.Helper()
	promo := &models.Promotion{
		Code:          code,
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		UsageLimit:    limit,
		UsedCount:     used,
		ValidFrom:     h.clock.Add(-24 * time.Hour),
		ValidUntil:    h.clock.Add(24 * time.Hour),
		IsActive:      true,
	}
	require.NoError(t, h.db.Create(promo).Error)
	return promo
}

func (h *harness) intentInput(accountID uuid.UUID, quantity int, code string) CreateIntentInput {
	forged := int64(100)
	return CreateIntentInput{
		AccountID: accountID,
		Lines: []pricing.CartLine{{
			ProductID:            h.product.ID,
			VariantKey:           "250g",
			Quantity:             quantity,
			ClientUnitPriceMinor: &forged,
		}},
		PromotionCode: code,
		ShippingAddress: types.ShippingAddress{
			FullName: "Asha Rao",
			Phone:    "9999999999",
			Street:   "12 MG Road",
			City:     "Pune",
			State:    "MH",
			Pincode:  "411001",
		},
	}
}

func (h *harness) createIntent(t *testing.T, accountID uuid.UUID, quantity int, code string) *Intent {
	t.Helper()
	intent, err := h.svc.CreateIntent(context.Background(), h.intentInput(accountID, quantity, code))
	require.NoError(t, err)
	return intent
}

func paymentProof(accountID uuid.UUID, intent *Intent, transactionID string) ConfirmInput {
	return ConfirmInput{
		AccountID:     accountID,
		IntentID:      intent.GatewayIntentID,
		TransactionID: transactionID,
		Signature:     razorpay.Sign(intent.GatewayIntentID, transactionID, testGatewaySecret),
	}
}

func (h *harness) stock(t *testing.T) int {
	t.Helper()
	var variant models.ProductVariant
	require.NoError(t, h.db.Where("product_id = ?", h.product.ID).First(&variant).Error)
	return variant.Stock
}

func (h *harness) session(t *testing.T, id uuid.UUID) *models.CheckoutSession {
	t.Helper()
	var session models.CheckoutSession
	require.NoError(t, h.db.Where("id = ?", id).First(&session).Error)
	return &session
}

func (h *harness) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	query := h.db.Model(model)
	if where != "" {
		query = query.Where(where, args...)
	}
	require.NoError(t, query.Count(&n).Error)
	return n
}
