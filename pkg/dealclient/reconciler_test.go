package dealclient

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedFetcher hands out one queued response per call.
type gatedFetcher struct {
	calls   atomic.Int32
	release chan json.RawMessage
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{release: make(chan json.RawMessage)}
}

func (f *gatedFetcher) FetchDeal(ctx context.Context, _ int64) (json.RawMessage, error) {
	f.calls.Add(1)
	select {
	case raw := <-f.release:
		return raw, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestStaleRefetchDoesNotOverwriteNewerPush(t *testing.T) {
	cache := NewCache()
	cache.SetList("mine", []json.RawMessage{rawDeal(t, 7, "pending", 1)})
	f := newGatedFetcher()
	rec := NewReconciler(nil, cache, f)

	v2 := rawDeal(t, 7, "countered", 2)
	v3 := rawDeal(t, 7, "accepted", 3)
	require.NoError(t, rec.Apply(dealUpdate(t, v2)))
	require.NoError(t, rec.Apply(dealUpdate(t, v3)))

	// The first refetch answers with the state it saw before the second push.
	f.release <- v2
	f.release <- v3
	rec.Close()

	entity, _ := cache.Entity(7)
	rows, _ := cache.List("mine")
	assert.Equal(t, []byte(v3), []byte(entity))
	assert.Equal(t, []byte(v3), []byte(rows[0]))
	assert.False(t, cache.IsStale(7))
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestNewerRefetchOverwritesPush(t *testing.T) {
	cache := NewCache()
	cache.SetList("mine", []json.RawMessage{rawDeal(t, 7, "pending", 1)})
	f := newGatedFetcher()
	rec := NewReconciler(nil, cache, f)

	require.NoError(t, rec.Apply(dealUpdate(t, rawDeal(t, 7, "countered", 2))))
	v5 := rawDeal(t, 7, "accepted", 5)
	f.release <- v5
	rec.Close()

	entity, _ := cache.Entity(7)
	rows, _ := cache.List("mine")
	assert.Equal(t, []byte(v5), []byte(entity))
	assert.Equal(t, []byte(v5), []byte(rows[0]))
	assert.False(t, cache.IsStale(7))
}

func TestUnversionedRefetchIsLastArrivalWins(t *testing.T) {
	cache := NewCache()
	f := newGatedFetcher()
	rec := NewReconciler(nil, cache, f)

	require.NoError(t, rec.Apply(dealUpdate(t, rawDeal(t, 7, "accepted", 4))))
	unversioned := rawDeal(t, 7, "pending", 0)
	f.release <- unversioned
	rec.Close()

	entity, _ := cache.Entity(7)
	assert.Equal(t, []byte(unversioned), []byte(entity))
}

func TestCloseCancelsPendingRefetches(t *testing.T) {
	cache := NewCache()
	f := newGatedFetcher()
	rec := NewReconciler(nil, cache, f)

	push := rawDeal(t, 7, "accepted", 2)
	require.NoError(t, rec.Apply(dealUpdate(t, push)))
	rec.Close()

	entity, _ := cache.Entity(7)
	assert.Equal(t, []byte(push), []byte(entity))
	assert.True(t, cache.IsStale(7))

	// Applying after Close still updates the cache but starts no refetch.
	calls := f.calls.Load()
	require.NoError(t, rec.Apply(dealUpdate(t, rawDeal(t, 7, "accepted", 3))))
	assert.Equal(t, calls, f.calls.Load())
}
