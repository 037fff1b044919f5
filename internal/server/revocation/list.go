// Package revocation keeps track of logged-out tokens until they expire.
//
// Entries are keyed by the sha256 fingerprint of the token, never the token
// itself, and carry the token's own expiry. Once that instant passes the
// entry is dropped: an expired token is rejected by validation anyway.
package revocation

import (
	"context"
	"time"
)

// List is the revocation store consulted by every guard.
type List interface {
	// Revoke marks token as revoked until expiresAt. Revoking twice is a
	// no-op, and so is revoking a token that has already expired.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error

	// IsRevoked reports whether token was revoked and has not yet expired.
	// Errors must be treated as "revoked" by callers.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Option configures a backend.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
