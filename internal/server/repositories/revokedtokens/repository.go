// Package revokedtokens declares storage for logged-out token fingerprints.
package revokedtokens

import (
	"context"
	"time"
)

// Repository stores revoked token hashes until their tokens expire.
type Repository interface {
	// Insert records hash as revoked until expiresAt. Re-inserting an existing
	// hash is not an error.
	Insert(ctx context.Context, hash string, expiresAt time.Time) error

	// Exists reports whether hash is revoked and still unexpired at now.
	Exists(ctx context.Context, hash string, now time.Time) (bool, error)

	// PurgeExpired deletes rows whose expiry is at or before now and returns
	// how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
