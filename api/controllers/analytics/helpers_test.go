package analytics

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
)

type testAnalyticsService struct {
	last     types.SalesQueryRequest
	calls    int
	response *types.SalesSummary
	err      error
}

func (s *testAnalyticsService) Sales(ctx context.Context, req types.SalesQueryRequest) (*types.SalesSummary, error) {
	s.last = req
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.response == nil {
		s.response = &types.SalesSummary{}
	}
	return s.response, nil
}

func (s *testAnalyticsService) called() bool {
	return s.calls > 0
}

func (s *testAnalyticsService) period() time.Duration {
	return s.last.End.Sub(s.last.Start)
}
