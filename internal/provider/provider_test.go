package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/finance"
)

func TestMockProvider_Succeeds(t *testing.T) {
	m := NewMockProvider()

	ref, err := m.InitiatePayout(context.Background(), "wd_1", "pl_1", 5000)
	require.NoError(t, err)
	assert.Contains(t, ref, "mock_wd_1_")
}

func TestMockProvider_DeclineMarker(t *testing.T) {
	m := NewMockProvider()

	// Cents component 13 is the deterministic decline.
	_, err := m.InitiatePayout(context.Background(), "wd_1", "pl_1", 2013)
	assert.ErrorIs(t, err, finance.ErrProviderDeclined)

	_, err = m.InitiatePayout(context.Background(), "wd_1", "pl_1", 2014)
	assert.NoError(t, err)
}

func TestMockProvider_FailNext(t *testing.T) {
	m := NewMockProvider()
	m.FailNext(2)

	_, err := m.InitiatePayout(context.Background(), "wd_1", "pl_1", 5000)
	assert.ErrorIs(t, err, finance.ErrProviderDeclined)
	_, err = m.InitiatePayout(context.Background(), "wd_1", "pl_1", 5000)
	assert.ErrorIs(t, err, finance.ErrProviderDeclined)

	// The script is consumed.
	_, err = m.InitiatePayout(context.Background(), "wd_1", "pl_1", 5000)
	assert.NoError(t, err)
}
