// Package provider contains payout provider adapters for the
// withdrawal pipeline.
package provider

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/finance"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/idgen"
)

// MockProvider simulates a payout provider for demo and development
// environments. Amounts whose cents component equals the decline
// marker (default 13) are declined, so a deterministic failure can be
// provoked from the frontend without any provider credentials.
type MockProvider struct {
	declineCents int64
	failNext     atomic.Int64
}

// NewMockProvider creates a mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{declineCents: 13}
}

// FailNext declines the next n payout attempts regardless of amount.
func (m *MockProvider) FailNext(n int64) {
	m.failNext.Store(n)
}

// InitiatePayout implements finance.PayoutProvider.
func (m *MockProvider) InitiatePayout(_ context.Context, withdrawalID, _ string, amountCents int64) (string, error) {
	if m.failNext.Load() > 0 {
		m.failNext.Add(-1)
		return "", fmt.Errorf("%w: forced failure", finance.ErrProviderDeclined)
	}
	if amountCents%100 == m.declineCents {
		return "", fmt.Errorf("%w: amount carries decline marker", finance.ErrProviderDeclined)
	}
	return "mock_" + withdrawalID + "_" + idgen.Hex(6), nil
}

var _ finance.PayoutProvider = (*MockProvider)(nil)
