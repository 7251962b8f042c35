package rg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
)

func TestGetLimits_DefaultsToZero(t *testing.T) {
	svc := NewService(NewMemoryStore())

	l, err := svc.GetLimits(context.Background(), "pl_1")
	require.NoError(t, err)
	assert.Equal(t, "pl_1", l.PlayerID)
	assert.Zero(t, l.DepositDailyCents)
}

func TestSetLimits_RejectsNegative(t *testing.T) {
	svc := NewService(NewMemoryStore())

	err := svc.SetLimits(context.Background(), &Limits{PlayerID: "pl_1", DepositDailyCents: -1})
	require.Error(t, err)
	assert.Equal(t, apierr.CodeValidation, apierr.From(err).Code)
}

func TestExclude_CoolOffRequiresUntil(t *testing.T) {
	svc := NewService(NewMemoryStore())

	_, err := svc.Exclude(context.Background(), "pl_1", KindCoolOff, nil)
	require.Error(t, err)
	assert.Equal(t, apierr.CodeValidation, apierr.From(err).Code)

	_, err = svc.Exclude(context.Background(), "pl_1", "forever", nil)
	require.Error(t, err)
}

func TestIsExcluded_SelfExclusionIsPermanent(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	excluded, err := svc.IsExcluded(ctx, "pl_1")
	require.NoError(t, err)
	assert.False(t, excluded)

	_, err = svc.Exclude(ctx, "pl_1", KindSelf, nil)
	require.NoError(t, err)

	excluded, err = svc.IsExcluded(ctx, "pl_1")
	require.NoError(t, err)
	assert.True(t, excluded)
}

func TestIsExcluded_CoolOffExpires(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	_, err := svc.Exclude(ctx, "pl_1", KindCoolOff, &past)
	require.NoError(t, err)

	excluded, err := svc.IsExcluded(ctx, "pl_1")
	require.NoError(t, err)
	assert.False(t, excluded)

	future := time.Now().Add(time.Hour)
	_, err = svc.Exclude(ctx, "pl_2", KindCoolOff, &future)
	require.NoError(t, err)

	excluded, err = svc.IsExcluded(ctx, "pl_2")
	require.NoError(t, err)
	assert.True(t, excluded)
}

func TestCheckDeposit_ExcludedPlayer(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	_, err := svc.Exclude(ctx, "pl_1", KindSelf, nil)
	require.NoError(t, err)

	err = svc.CheckDeposit(ctx, "pl_1", 1000, 0)
	require.Error(t, err)
	assert.Equal(t, apierr.CodeRGExcluded, apierr.From(err).Code)
}

func TestCheckDeposit_DailyLimit(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, svc.SetLimits(ctx, &Limits{PlayerID: "pl_1", DepositDailyCents: 10000}))

	// Under the limit.
	assert.NoError(t, svc.CheckDeposit(ctx, "pl_1", 4000, 5000))

	// Exactly at the limit.
	assert.NoError(t, svc.CheckDeposit(ctx, "pl_1", 5000, 5000))

	// Over the limit.
	err := svc.CheckDeposit(ctx, "pl_1", 5001, 5000)
	require.Error(t, err)
	assert.Equal(t, apierr.CodeLimitViolation, apierr.From(err).Code)
}

func TestCheckDeposit_ZeroLimitMeansUnlimited(t *testing.T) {
	svc := NewService(NewMemoryStore())

	assert.NoError(t, svc.CheckDeposit(context.Background(), "pl_1", 1<<40, 1<<40))
}
