package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

	cur, err := Decode(Encode(at, "wd_abc123"))
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.True(t, cur.CreatedAt.Equal(at))
	assert.Equal(t, "wd_abc123", cur.ID)
}

func TestDecode_EmptyIsNil(t *testing.T) {
	cur, err := Decode("")
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestDecode_Garbage(t *testing.T) {
	for _, s := range []string{"not-base64!!", "bm9wZQ==", "fHx8"} {
		_, err := Decode(s)
		assert.Error(t, err, s)
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-5))
	assert.Equal(t, 25, ClampLimit(25))
	assert.Equal(t, MaxLimit, ClampLimit(10000))
}

func TestComputePage(t *testing.T) {
	type row struct {
		id string
		at time.Time
	}
	base := time.Now().UTC()
	key := func(r row) (time.Time, string) { return r.at, r.id }

	// Fetched limit+1 rows: more pages exist.
	rows := []row{
		{"a", base},
		{"b", base.Add(-time.Minute)},
		{"c", base.Add(-2 * time.Minute)},
	}
	page, next, hasMore := ComputePage(rows, 2, key)
	require.Len(t, page, 2)
	assert.True(t, hasMore)
	require.NotEmpty(t, next)

	cur, err := Decode(next)
	require.NoError(t, err)
	assert.Equal(t, "b", cur.ID)

	// Exactly limit rows: last page.
	page, next, hasMore = ComputePage(rows[:2], 2, key)
	assert.Len(t, page, 2)
	assert.False(t, hasMore)
	assert.Empty(t, next)
}
