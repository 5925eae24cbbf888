package cache

import (
	"context"
	"time"

	"zaypos/backend/internal/domain"
)

// ReportCache holds computed balance reports keyed by date range. Invalidate
// is called after every recorded sale so cached balances never lag a sale by
// more than the in-flight request.
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.BalanceReport, bool, error)
	Set(ctx context.Context, key string, value *domain.BalanceReport, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.BalanceReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.BalanceReport, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Invalidate(_ context.Context) error {
	return nil
}
