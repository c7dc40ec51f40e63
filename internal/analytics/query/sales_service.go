package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cloudbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/pkg/bigquery"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// MaxWindow bounds how far apart start and end may be.
const MaxWindow = 366 * 24 * time.Hour

const (
	timeSeriesOrdersSQL = `
SELECT
  FORMAT_DATE('%%F', DATE(occurred_at)) AS day,
  COUNT(DISTINCT order_id) AS value
FROM %s
WHERE event_type = 'order_committed'
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	timeSeriesAmountSQL = `
SELECT
  FORMAT_DATE('%%F', DATE(occurred_at)) AS day,
  SUM(COALESCE(%s, 0)) AS value
FROM %s
WHERE event_type = 'order_committed'
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	topPromotionsSQL = `
SELECT promotion_code AS label, COUNT(DISTINCT order_id) AS value
FROM %s
WHERE event_type = 'order_committed'
  AND promotion_code IS NOT NULL
  AND occurred_at BETWEEN @start AND @end
GROUP BY label
ORDER BY value DESC, label ASC
LIMIT 5
`

	aovSQL = `
SELECT SAFE_DIVIDE(SUM(COALESCE(total_minor, 0)), NULLIF(COUNT(DISTINCT order_id), 0)) AS value
FROM %s
WHERE event_type = 'order_committed'
  AND occurred_at BETWEEN @start AND @end
`

	oversoldSQL = `
SELECT COUNT(DISTINCT order_id) AS value
FROM %s
WHERE event_type = 'order_committed'
  AND oversold
  AND occurred_at BETWEEN @start AND @end
`

	flaggedByKindSQL = `
SELECT exception_kind AS label, COUNT(*) AS value
FROM %s
WHERE event_type = 'reconciliation_flagged'
  AND exception_kind IS NOT NULL
  AND occurred_at BETWEEN @start AND @end
GROUP BY label
ORDER BY value DESC, label ASC
`
)

// RowIterator is the subset of *bigquery.RowIterator the service reads.
type RowIterator interface {
	Next(dst any) error
}

// Runner executes parameterized SQL.
type Runner interface {
	Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (RowIterator, error)
}

type clientRunner struct {
	client *bigquery.Client
}

func (r clientRunner) Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (RowIterator, error) {
	return r.client.Query(ctx, sql, params)
}

// SalesService provides the admin sales dashboard from the order_events table.
type SalesService interface {
	Sales(ctx context.Context, req types.SalesQueryRequest) (*types.SalesSummary, error)
}

type salesService struct {
	runner   Runner
	tableRef string
}

// NewSalesService builds a service backed by BigQuery.
func NewSalesService(client *bigquery.Client, table string) (SalesService, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	return NewSalesServiceWithRunner(clientRunner{client: client}, client.TableRef(table))
}

// NewSalesServiceWithRunner builds a service over an arbitrary runner.
func NewSalesServiceWithRunner(runner Runner, tableRef string) (SalesService, error) {
	if runner == nil {
		return nil, fmt.Errorf("query runner required")
	}
	if strings.TrimSpace(tableRef) == "" {
		return nil, fmt.Errorf("table reference required")
	}
	return &salesService{runner: runner, tableRef: tableRef}, nil
}

func (s *salesService) Sales(ctx context.Context, req types.SalesQueryRequest) (*types.SalesSummary, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	params := []cloudbigquery.QueryParameter{
		{Name: "start", Value: req.Start.UTC()},
		{Name: "end", Value: req.End.UTC()},
	}

	orders, err := s.querySeries(ctx, fmt.Sprintf(timeSeriesOrdersSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	revenue, err := s.querySeries(ctx, fmt.Sprintf(timeSeriesAmountSQL, "total_minor", s.tableRef), params)
	if err != nil {
		return nil, err
	}
	discounts, err := s.querySeries(ctx, fmt.Sprintf(timeSeriesAmountSQL, "discount_minor", s.tableRef), params)
	if err != nil {
		return nil, err
	}
	promotions, err := s.queryLabels(ctx, fmt.Sprintf(topPromotionsSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	aov, err := s.queryAOV(ctx, fmt.Sprintf(aovSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	oversold, err := s.queryCount(ctx, fmt.Sprintf(oversoldSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	flagged, err := s.queryLabels(ctx, fmt.Sprintf(flaggedByKindSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}

	return &types.SalesSummary{
		Orders:         orders,
		Revenue:        revenue,
		Discounts:      discounts,
		TopPromotions:  promotions,
		AOVMinor:       aov,
		OversoldOrders: oversold,
		FlaggedByKind:  flagged,
	}, nil
}

// ValidateRequest checks the query window.
func ValidateRequest(req types.SalesQueryRequest) error {
	if req.Start.IsZero() || req.End.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if req.End.Before(req.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	if req.End.Sub(req.Start) > MaxWindow {
		return pkgerrors.New(pkgerrors.CodeValidation, "window may not exceed 366 days")
	}
	return nil
}

func (s *salesService) querySeries(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.TimeSeriesPoint, error) {
	iter, err := s.runner.Query(ctx, sql, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query sales series")
	}

	points := []types.TimeSeriesPoint{}
	for {
		var row struct {
			Day   string `bigquery:"day"`
			Value int64  `bigquery:"value"`
		}
		if err := iter.Next(&row); err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("reading series row: %w", err)
		}
		points = append(points, types.TimeSeriesPoint{Date: row.Day, Value: row.Value})
	}
	return points, nil
}

func (s *salesService) queryLabels(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.LabelValue, error) {
	iter, err := s.runner.Query(ctx, sql, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query sales labels")
	}

	result := []types.LabelValue{}
	for {
		var row struct {
			Label string `bigquery:"label"`
			Value int64  `bigquery:"value"`
		}
		if err := iter.Next(&row); err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("reading label row: %w", err)
		}
		result = append(result, types.LabelValue{Label: row.Label, Value: row.Value})
	}
	return result, nil
}

func (s *salesService) queryAOV(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (float64, error) {
	iter, err := s.runner.Query(ctx, sql, params)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query aov")
	}
	var row struct {
		Value cloudbigquery.NullFloat64 `bigquery:"value"`
	}
	if err := iter.Next(&row); err != nil {
		if errors.Is(err, iterator.Done) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading aov row: %w", err)
	}
	if !row.Value.Valid {
		return 0, nil
	}
	return row.Value.Float64, nil
}

func (s *salesService) queryCount(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (int64, error) {
	iter, err := s.runner.Query(ctx, sql, params)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query count")
	}
	var row struct {
		Value int64 `bigquery:"value"`
	}
	if err := iter.Next(&row); err != nil {
		if errors.Is(err, iterator.Done) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading count row: %w", err)
	}
	return row.Value, nil
}
