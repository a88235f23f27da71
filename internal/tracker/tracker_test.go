package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/pkg/model"
)

func testTracker(t *testing.T) (*HybridTracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewHybridTracker(zap.NewNop(), nil, rdb, time.Hour), mr
}

func TestHybridTracker_MarkThenHasDelivered(t *testing.T) {
	tr, _ := testTracker(t)
	ctx := context.Background()

	seen, err := tr.HasDelivered(ctx, 12345678)
	require.NoError(t, err)
	assert.False(t, seen)

	err = tr.MarkDelivered(ctx, model.DeliveryRecord{
		Ticket:      12345678,
		TraceID:     "demo-order-001",
		Status:      model.DeliveryStatusDelivered,
		DeliveredAt: time.Now().UTC(),
		RunID:       "run-1",
	})
	require.NoError(t, err)

	seen, err = tr.HasDelivered(ctx, 12345678)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestHybridTracker_LookupReturnsRecord(t *testing.T) {
	tr, _ := testTracker(t)
	ctx := context.Background()

	rec, err := tr.Lookup(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, rec, "unknown ticket has no record")

	require.NoError(t, tr.MarkDelivered(ctx, model.DeliveryRecord{
		Ticket:  99,
		TraceID: "mt5-99",
		Status:  model.DeliveryStatusDelivered,
	}))

	rec, err = tr.Lookup(ctx, 99)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "mt5-99", rec.TraceID)
	assert.Equal(t, model.DeliveryStatusDelivered, rec.Status)
}

func TestHybridTracker_StoreFailureIsPersistenceError(t *testing.T) {
	tr, mr := testTracker(t)
	ctx := context.Background()
	mr.Close()

	_, err := tr.HasDelivered(ctx, 1)
	assert.ErrorIs(t, err, ErrPersistence, "a dead ledger must not read as 'not delivered'")

	err = tr.MarkDelivered(ctx, model.DeliveryRecord{Ticket: 1, TraceID: "mt5-1"})
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestHybridTracker_NoBackingStore(t *testing.T) {
	tr := NewHybridTracker(zap.NewNop(), nil, nil, time.Hour)

	err := tr.MarkDelivered(context.Background(), model.DeliveryRecord{Ticket: 1})
	assert.ErrorIs(t, err, ErrPersistence)
}
