package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestSalesDefaultsToThirtyDays(t *testing.T) {
	svc := &testAnalyticsService{response: &types.SalesSummary{OversoldOrders: 3}}

	rec := httptest.NewRecorder()
	Sales(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/analytics/sales", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, svc.called())
	assert.Equal(t, 30*24*time.Hour, svc.period())

	var body struct {
		Data types.SalesSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body.Data.OversoldOrders)
}

func TestSalesExplicitDates(t *testing.T) {
	svc := &testAnalyticsService{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/analytics/sales?start=2026-01-01&end=2026-01-31", nil)
	Sales(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), svc.last.Start)
	assert.Equal(t, time.Date(2026, 1, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC), svc.last.End)
}

func TestSalesRejectsBadRanges(t *testing.T) {
	cases := map[string]string{
		"start only":     "?start=2026-01-01",
		"bad start":      "?start=yesterday&end=2026-01-01",
		"end before":     "?start=2026-02-01&end=2026-01-01",
		"unknown preset": "?preset=1y",
	}
	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &testAnalyticsService{}
			rec := httptest.NewRecorder()
			Sales(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/analytics/sales"+query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, svc.called())
		})
	}
}

func TestSalesPreset(t *testing.T) {
	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	original := timeNowUTC
	timeNowUTC = func() time.Time { return fixed }
	t.Cleanup(func() { timeNowUTC = original })

	svc := &testAnalyticsService{}
	rec := httptest.NewRecorder()
	Sales(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/analytics/sales?preset=7d", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fixed, svc.last.End)
	assert.Equal(t, 7*24*time.Hour, svc.period())
}

func TestSalesServiceError(t *testing.T) {
	svc := &testAnalyticsService{err: pkgerrors.New(pkgerrors.CodeDependency, "bigquery down")}

	rec := httptest.NewRecorder()
	Sales(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/analytics/sales", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSalesNotConfigured(t *testing.T) {
	rec := httptest.NewRecorder()
	Sales(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/analytics/sales", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
