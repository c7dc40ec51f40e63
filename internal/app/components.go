// Package app assembles the storefront services shared by the API server and
// the background workers.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/promotions"
	"github.com/angelmondragon/storefront-backend/internal/reconciliation"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/razorpay"
)

// Components holds the wired domain services.
type Components struct {
	Rules          pricing.Rules
	Pricer         pricing.Pricer
	Promotions     promotions.Service
	Orders         orders.Service
	Reconciliation reconciliation.Service
	Checkout       checkout.Reconciler
	Gateway        *razorpay.Client
	OutboxRepo     *outbox.Repository
}

// Params are the process-level dependencies.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Registerer prometheus.Registerer
	// Gateway overrides the Razorpay client built from config.
	Gateway *razorpay.Client
}

// Build wires repositories and services over one database client.
func Build(p Params) (*Components, error) {
	if p.Config == nil || p.Logger == nil || p.DB == nil {
		return nil, fmt.Errorf("config, logger and db are required")
	}
	rules, err := pricing.RulesFromConfig(p.Config.Checkout)
	if err != nil {
		return nil, fmt.Errorf("pricing rules: %w", err)
	}

	conn := p.DB.DB()
	catalogRepo := catalog.NewRepository(conn)
	promoRepo := promotions.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	reconRepo := reconciliation.NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)
	outboxSvc := outbox.NewService(outboxRepo, p.Logger)

	pricer, err := pricing.NewPricer(catalogRepo, promoRepo, rules)
	if err != nil {
		return nil, fmt.Errorf("pricer: %w", err)
	}
	promoSvc, err := promotions.NewService(promoRepo)
	if err != nil {
		return nil, fmt.Errorf("promotions service: %w", err)
	}
	reconSvc, err := reconciliation.NewService(reconRepo)
	if err != nil {
		return nil, fmt.Errorf("reconciliation service: %w", err)
	}
	ordersSvc, err := orders.NewService(ordersRepo, p.DB, outboxSvc)
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	gatewayClient := p.Gateway
	if gatewayClient == nil {
		gatewayClient = razorpay.NewClient(p.Config.Gateway)
	}
	if !gatewayClient.Configured() {
		p.Logger.Warn(context.Background(), "payment gateway credentials missing; intents will fail with GATEWAY_UNAVAILABLE")
	}

	reconciler, err := checkout.NewService(checkout.ServiceParams{
		Sessions:          checkout.NewRepository(conn),
		Pricer:            pricer,
		Rules:             rules,
		Catalog:           catalogRepo,
		Promotions:        promoRepo,
		Orders:            ordersRepo,
		Reconciliation:    reconSvc,
		Gateway:           checkout.NewRazorpayGateway(gatewayClient),
		Outbox:            outboxSvc,
		Tx:                p.DB,
		Logger:            p.Logger,
		Metrics:           metrics.NewCheckoutMetrics(p.Registerer),
		QuoteTTL:          p.Config.Checkout.QuoteTTL,
		OrderNumberPrefix: p.Config.Checkout.OrderNumberPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout reconciler: %w", err)
	}

	return &Components{
		Rules:          rules,
		Pricer:         pricer,
		Promotions:     promoSvc,
		Orders:         ordersSvc,
		Reconciliation: reconSvc,
		Checkout:       reconciler,
		Gateway:        gatewayClient,
		OutboxRepo:     outboxRepo,
	}, nil
}
