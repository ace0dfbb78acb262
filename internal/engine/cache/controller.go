package cache

import (
	"context"

	"github.com/rshade/finplan/internal/client"
)

// Controller exposes the cache decisions the planning flow needs.
type Controller struct {
	store *Store
}

// NewController wraps store.
func NewController(store *Store) *Controller {
	return &Controller{store: store}
}

// Store returns the underlying store.
func (c *Controller) Store() *Store {
	return c.store
}

// Lookup returns the cached entry for goals and snapshot, if valid.
func (c *Controller) Lookup(ctx context.Context, goals []client.Goal, snapshot client.Snapshot) (*Entry, bool) {
	return c.store.Get(ctx, goals, snapshot)
}

// HasCached reports whether Lookup would return an entry. Like Lookup it
// drops an expired entry it runs into.
func (c *Controller) HasCached(ctx context.Context, goals []client.Goal, snapshot client.Snapshot) bool {
	_, ok := c.store.Get(ctx, goals, snapshot)
	return ok
}

// ForceRefresh discards any cached entry for goals and snapshot and always
// returns false, meaning "fetch fresh recommendations".
func (c *Controller) ForceRefresh(ctx context.Context, goals []client.Goal, snapshot client.Snapshot) bool {
	c.store.Invalidate(ctx, goals, snapshot)
	return false
}
