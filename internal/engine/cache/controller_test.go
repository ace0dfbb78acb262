package cache

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/finplan/internal/kvstore"
)

func TestController_HasCached(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	ctrl := NewController(newTestStore(t, kvstore.NewMemoryStore(0), clock))
	goals, c := request("c-1")

	assert.False(t, ctrl.HasCached(ctx, goals, c))
	require.NoError(t, ctrl.Store().Put(ctx, goals, c, json.RawMessage(payload)))
	assert.True(t, ctrl.HasCached(ctx, goals, c))

	entry, ok := ctrl.Lookup(ctx, goals, c)
	require.True(t, ok)
	assert.True(t, entry.FromCache)

	clock.Advance(DefaultTTL + 1)
	assert.False(t, ctrl.HasCached(ctx, goals, c))
}

func TestController_ForceRefresh(t *testing.T) {
	ctx := context.Background()
	ctrl := NewController(newTestStore(t, kvstore.NewMemoryStore(0), newClock()))
	goals, c := request("c-1")

	require.NoError(t, ctrl.Store().Put(ctx, goals, c, json.RawMessage(payload)))
	assert.True(t, ctrl.HasCached(ctx, goals, c))

	assert.False(t, ctrl.ForceRefresh(ctx, goals, c))
	assert.False(t, ctrl.HasCached(ctx, goals, c))

	// Nothing cached: still false, still no error.
	assert.False(t, ctrl.ForceRefresh(ctx, goals, c))
}

func TestController_Disabled(t *testing.T) {
	ctx := context.Background()
	ctrl := NewController(New(nil))
	goals, c := request("c-1")

	assert.False(t, ctrl.HasCached(ctx, goals, c))
	assert.False(t, ctrl.ForceRefresh(ctx, goals, c))
}
