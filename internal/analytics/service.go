package analytics

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/analytics/query"
	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/pkg/bigquery"
)

// Service provides analytics reports based on order events.
type Service interface {
	// Sales returns the admin sales summary for the provided window.
	Sales(ctx context.Context, req types.SalesQueryRequest) (*types.SalesSummary, error)
}

type service struct {
	sales query.SalesService
}

// NewService builds an analytics service backed by BigQuery.
func NewService(client *bigquery.Client, table string) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}

	sales, err := query.NewSalesService(client, table)
	if err != nil {
		return nil, err
	}

	return &service{sales: sales}, nil
}

func (s *service) Sales(ctx context.Context, req types.SalesQueryRequest) (*types.SalesSummary, error) {
	return s.sales.Sales(ctx, req)
}
