package audit

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRecord_AppendsEvent(t *testing.T) {
	store := NewMemoryStore()
	r := NewRecorder(store)
	ctx := context.Background()

	err := r.Record(ctx, Entry{
		ActorID: "adm_1", ActorEmail: "ops@example.com",
		Action: "player.suspend", ResourceType: "player", ResourceID: "pl_1",
		Before: map[string]string{"status": "active"},
		After:  map[string]string{"status": "suspended"},
		Reason: "chargeback abuse",
	})
	require.NoError(t, err)

	events, err := r.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "adm_1", e.ActorID)
	assert.Equal(t, "player.suspend", e.Action)
	assert.Equal(t, "pl_1", e.ResourceID)
	assert.Equal(t, "chargeback abuse", e.Reason)
	assert.False(t, e.CreatedAt.IsZero())

	var before map[string]string
	require.NoError(t, json.Unmarshal(e.Before, &before))
	assert.Equal(t, "active", before["status"])
}

type captureEmitter struct {
	events []*Event
}

func (c *captureEmitter) AuditRecorded(e *Event) { c.events = append(c.events, e) }

func TestRecord_NotifiesEmitter(t *testing.T) {
	em := &captureEmitter{}
	r := NewRecorder(NewMemoryStore()).WithEmitter(em)

	err := r.Record(context.Background(), Entry{
		ActorID: "adm_1", Action: "game.enabled", ResourceType: "game", ResourceID: "gm_1",
	})
	require.NoError(t, err)
	require.Len(t, em.events, 1)
	assert.Equal(t, "game.enabled", em.events[0].Action)
}

func TestList_Filters(t *testing.T) {
	r := NewRecorder(NewMemoryStore())
	ctx := context.Background()

	_ = r.Record(ctx, Entry{ActorID: "adm_1", Action: "player.suspend", ResourceType: "player", ResourceID: "pl_1"})
	_ = r.Record(ctx, Entry{ActorID: "adm_2", Action: "player.credit", ResourceType: "player", ResourceID: "pl_1"})
	_ = r.Record(ctx, Entry{ActorID: "adm_1", Action: "withdrawal.review.approve", ResourceType: "withdrawal", ResourceID: "wd_1"})

	byActor, err := r.List(ctx, Filter{ActorID: "adm_1"})
	require.NoError(t, err)
	assert.Len(t, byActor, 2)

	byAction, err := r.List(ctx, Filter{Action: "player.credit"})
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	assert.Equal(t, "adm_2", byAction[0].ActorID)

	byResource, err := r.List(ctx, Filter{ResourceType: "withdrawal", ResourceID: "wd_1"})
	require.NoError(t, err)
	assert.Len(t, byResource, 1)
}

func TestReason_BodyWins(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/", nil)
	c.Request.Header.Set("X-Reason", "header reason")

	reason, err := Reason(c, "body reason")
	require.NoError(t, err)
	assert.Equal(t, "body reason", reason)
}

func TestReason_HeaderFallback(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/", nil)
	c.Request.Header.Set("X-Reason", "header reason")

	reason, err := Reason(c, "")
	require.NoError(t, err)
	assert.Equal(t, "header reason", reason)
}

func TestReason_MissingIsRejected(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/", nil)

	for _, bodyReason := range []string{"", "   "} {
		_, err := Reason(c, bodyReason)
		require.Error(t, err)
		assert.Equal(t, apierr.CodeReasonRequired, apierr.From(err).Code)
	}
}
