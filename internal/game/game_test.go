package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
)

func TestCreate_StartsDisabled(t *testing.T) {
	svc := NewService(NewMemoryStore())

	g, err := svc.Create(context.Background(), "Book of Slots", "netfun", 9650, []string{"slots", "egypt"})
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, g.Status)
	assert.Equal(t, 9650, g.RTPBps)
	assert.NotEmpty(t, g.ID)
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, "", "netfun", 9650, nil)
	require.Error(t, err)
	assert.Equal(t, apierr.CodeValidation, apierr.From(err).Code)

	_, err = svc.Create(ctx, "Game", "", 9650, nil)
	require.Error(t, err)

	for _, rtp := range []int{-1, 10001} {
		_, err = svc.Create(ctx, "Game", "netfun", rtp, nil)
		require.Error(t, err, "rtp_bps %d", rtp)
		assert.Equal(t, apierr.CodeValidation, apierr.From(err).Code)
	}
}

func TestSetStatus_And_ListEnabled(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	a, err := svc.Create(ctx, "Game A", "netfun", 9500, nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "Game B", "netfun", 9600, nil)
	require.NoError(t, err)

	// Players see nothing until a game is enabled.
	visible, err := svc.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, visible)

	_, err = svc.SetStatus(ctx, a.ID, StatusEnabled)
	require.NoError(t, err)

	visible, err = svc.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, a.ID, visible[0].ID)

	_, err = svc.SetStatus(ctx, a.ID, "paused")
	require.Error(t, err)
}

func TestUpdate_RevalidatesRTP(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	g, err := svc.Create(ctx, "Game A", "netfun", 9500, nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, g.ID, func(g *Game) { g.RTPBps = 12000 })
	require.Error(t, err)

	got, err := svc.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 9500, got.RTPBps)
}

func TestGet_Unknown(t *testing.T) {
	svc := NewService(NewMemoryStore())

	_, err := svc.Get(context.Background(), "gm_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
