package cache

import (
	"context"
	"time"

	"belezapos/backend/internal/domain"
)

// CommissionCache holds computed commission summaries so repeated dashboard
// reads do not rescan the whole sale history. Invalidate deletes the entry
// after any write that changes a staff member's earnings or payments.
type CommissionCache interface {
	Get(ctx context.Context, key string) (*domain.CommissionSummary, bool, error)
	Set(ctx context.Context, key string, value *domain.CommissionSummary, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopCommissionCache struct{}

func (NoopCommissionCache) Get(_ context.Context, _ string) (*domain.CommissionSummary, bool, error) {
	return nil, false, nil
}

func (NoopCommissionCache) Set(_ context.Context, _ string, _ *domain.CommissionSummary, _ time.Duration) error {
	return nil
}

func (NoopCommissionCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
