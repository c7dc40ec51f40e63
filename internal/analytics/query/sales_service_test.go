package query

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	cloudbigquery "cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestValidateRequest(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := map[string]struct {
		req   types.SalesQueryRequest
		valid bool
	}{
		"ok":         {req: types.SalesQueryRequest{Start: start, End: start.Add(48 * time.Hour)}, valid: true},
		"missing":    {req: types.SalesQueryRequest{Start: start}},
		"reversed":   {req: types.SalesQueryRequest{Start: start, End: start.Add(-time.Hour)}},
		"too wide":   {req: types.SalesQueryRequest{Start: start, End: start.Add(MaxWindow + time.Hour)}},
		"same point": {req: types.SalesQueryRequest{Start: start, End: start}, valid: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateRequest(tc.req)
			if tc.valid {
				require.NoError(t, err)
				return
			}
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestSalesAssemblesSummary(t *testing.T) {
	runner := &fakeRunner{}
	svc, err := NewSalesServiceWithRunner(runner, "`proj.storefront.order_events`")
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	summary, err := svc.Sales(context.Background(), types.SalesQueryRequest{Start: start, End: start.Add(72 * time.Hour)})
	require.NoError(t, err)

	require.Len(t, runner.queries, 7)
	for _, sql := range runner.queries {
		assert.Contains(t, sql, "`proj.storefront.order_events`")
	}
	assert.Contains(t, runner.queries[1], "total_minor")
	assert.Contains(t, runner.queries[2], "discount_minor")

	assert.Equal(t, []types.TimeSeriesPoint{{Date: "2026-01-01", Value: 3}}, summary.Orders)
	assert.Equal(t, []types.LabelValue{{Label: "WELCOME10", Value: 2}}, summary.TopPromotions)
	assert.Equal(t, 51234.5, summary.AOVMinor)
	assert.Equal(t, int64(1), summary.OversoldOrders)
	assert.Equal(t, []types.LabelValue{{Label: "oversell", Value: 1}}, summary.FlaggedByKind)
}

func TestSalesWrapsRunnerError(t *testing.T) {
	svc, err := NewSalesServiceWithRunner(&fakeRunner{err: errors.New("quota")}, "`t`")
	require.NoError(t, err)
	start := time.Now().UTC()

	_, err = svc.Sales(context.Background(), types.SalesQueryRequest{Start: start, End: start.Add(time.Hour)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
}

func TestNewSalesServiceValidates(t *testing.T) {
	_, err := NewSalesService(nil, "order_events")
	require.Error(t, err)
	_, err = NewSalesServiceWithRunner(nil, "`t`")
	require.Error(t, err)
	_, err = NewSalesServiceWithRunner(&fakeRunner{}, " ")
	require.Error(t, err)
}

type fakeRunner struct {
	queries []string
	err     error
}

func (f *fakeRunner) Query(_ context.Context, sql string, _ []cloudbigquery.QueryParameter) (RowIterator, error) {
	f.queries = append(f.queries, sql)
	if f.err != nil {
		return nil, f.err
	}
	switch {
	case strings.Contains(sql, "COUNT(DISTINCT order_id) AS value\nFROM") && strings.Contains(sql, "oversold"):
		return &fakeIterator{rows: []map[string]any{{"Value": int64(1)}}}, nil
	case strings.Contains(sql, "SAFE_DIVIDE"):
		return &fakeIterator{rows: []map[string]any{{"Value": cloudbigquery.NullFloat64{Float64: 51234.5, Valid: true}}}}, nil
	case strings.Contains(sql, "promotion_code AS label"):
		return &fakeIterator{rows: []map[string]any{{"Label": "WELCOME10", "Value": int64(2)}}}, nil
	case strings.Contains(sql, "exception_kind AS label"):
		return &fakeIterator{rows: []map[string]any{{"Label": "oversell", "Value": int64(1)}}}, nil
	case strings.Contains(sql, "COUNT(DISTINCT order_id) AS value"):
		return &fakeIterator{rows: []map[string]any{{"Day": "2026-01-01", "Value": int64(3)}}}, nil
	default:
		return &fakeIterator{}, nil
	}
}

// fakeIterator fills struct fields by name from each row map.
type fakeIterator struct {
	rows []map[string]any
	idx  int
}

func (f *fakeIterator) Next(dst any) error {
	if f.idx >= len(f.rows) {
		return iterator.Done
	}
	row := f.rows[f.idx]
	f.idx++
	target := reflect.ValueOf(dst).Elem()
	for name, value := range row {
		field := target.FieldByName(name)
		if field.IsValid() {
			field.Set(reflect.ValueOf(value))
		}
	}
	return nil
}
