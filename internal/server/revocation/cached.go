package revocation

import (
	"context"
	"time"

	"github.com/dmitrijs2005/volunteerhub/internal/cryptox"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Cached fronts a shared List with a bounded in-process set of known-revoked
// fingerprints. Only positive answers are cached: revocation is permanent for
// the token's lifetime, so a cached hit can never become wrong, while a cached
// miss could.
type Cached struct {
	next  List
	cache *lru.LRU[string, struct{}]
	now   func() time.Time
}

// NewCached wraps next. size bounds the cache; ttl bounds how long a hit is
// remembered.
func NewCached(next List, size int, ttl time.Duration, opts ...Option) *Cached {
	o := buildOptions(opts)
	return &Cached{
		next:  next,
		cache: lru.NewLRU[string, struct{}](size, nil, ttl),
		now:   o.now,
	}
}

func (c *Cached) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if err := c.next.Revoke(ctx, token, expiresAt); err != nil {
		return err
	}
	if expiresAt.After(c.now()) {
		c.cache.Add(cryptox.HashToken(token), struct{}{})
	}
	return nil
}

func (c *Cached) IsRevoked(ctx context.Context, token string) (bool, error) {
	hash := cryptox.HashToken(token)
	if c.cache.Contains(hash) {
		return true, nil
	}

	revoked, err := c.next.IsRevoked(ctx, token)
	if err != nil {
		return false, err
	}
	if revoked {
		c.cache.Add(hash, struct{}{})
	}
	return revoked, nil
}

// Len reports how many fingerprints are cached.
func (c *Cached) Len() int {
	return c.cache.Len()
}
