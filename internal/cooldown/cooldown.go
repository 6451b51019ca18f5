// Package cooldown rate-limits repeated checks per user. The backing store is
// a key/value cache with a TTL; while a marker key is present the check is
// considered recently done and is skipped.
package cooldown

import (
	"context"
	"strconv"
)

type Store interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}

type Cooldown struct {
	store Store
}

func New(store Store) *Cooldown {
	return &Cooldown{store: store}
}

// ShouldRun reports whether the named check may run for the user now, and if
// so marks it as done so subsequent calls within the TTL return false.
// Store errors fail open so a cache outage never disables moderation.
func (c *Cooldown) ShouldRun(ctx context.Context, name string, userID int64) bool {
	key := strconv.FormatInt(userID, 10)

	v, err := c.store.Get(ctx, name, key)
	if err == nil && v != "" {
		return false
	}
	_ = c.store.Set(ctx, name, key, "1")
	return true
}

// Reset clears the marker so the next ShouldRun call runs the check again.
func (c *Cooldown) Reset(ctx context.Context, name string, userID int64) {
	_ = c.store.Purge(ctx, name, strconv.FormatInt(userID, 10))
}
