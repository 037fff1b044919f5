package revocation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/volunteerhub/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RevokeAndCheck(t *testing.T) {
	clock := newTestClock()
	m := NewMemory(WithClock(clock.Now))
	ctx := context.Background()

	revoked, err := m.IsRevoked(ctx, "tok-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, m.Revoke(ctx, "tok-a", clock.Now().Add(time.Hour)))
	require.NoError(t, m.Revoke(ctx, "tok-a", clock.Now().Add(time.Hour)), "revoke is idempotent")

	revoked, err = m.IsRevoked(ctx, "tok-a")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 1, m.Len())

	revoked, err = m.IsRevoked(ctx, "tok-b")
	require.NoError(t, err)
	assert.False(t, revoked, "revoking one token leaves others alone")
}

func TestMemory_StoresFingerprintOnly(t *testing.T) {
	clock := newTestClock()
	m := NewMemory(WithClock(clock.Now))
	require.NoError(t, m.Revoke(context.Background(), "raw-token", clock.Now().Add(time.Hour)))

	entries := m.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, cryptox.HashToken("raw-token"), entries[0].TokenHash)
	assert.NotContains(t, entries[0].TokenHash, "raw-token")
}

func TestMemory_ExpiredRevocationIsNoop(t *testing.T) {
	clock := newTestClock()
	m := NewMemory(WithClock(clock.Now))

	require.NoError(t, m.Revoke(context.Background(), "old", clock.Now()))
	require.NoError(t, m.Revoke(context.Background(), "older", clock.Now().Add(-time.Minute)))
	assert.Equal(t, 0, m.Len())
}

func TestMemory_EntryEvictedAfterExpiry(t *testing.T) {
	clock := newTestClock()
	m := NewMemory(WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, m.Revoke(ctx, "tok", clock.Now().Add(time.Minute)))
	clock.Advance(time.Minute)

	revoked, err := m.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Equal(t, 0, m.Len(), "lookup evicts the expired entry")
}

func TestMemory_Sweep(t *testing.T) {
	clock := newTestClock()
	m := NewMemory(WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, m.Revoke(ctx, "short", clock.Now().Add(time.Minute)))
	require.NoError(t, m.Revoke(ctx, "long", clock.Now().Add(time.Hour)))

	assert.Equal(t, 0, m.Sweep())
	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())

	revoked, err := m.IsRevoked(ctx, "long")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemory_RestoreSkipsExpired(t *testing.T) {
	clock := newTestClock()
	m := NewMemory(WithClock(clock.Now))

	m.Restore([]Entry{
		{TokenHash: cryptox.HashToken("live"), ExpiresAt: clock.Now().Add(time.Hour)},
		{TokenHash: cryptox.HashToken("dead"), ExpiresAt: clock.Now().Add(-time.Hour)},
	})

	assert.Equal(t, 1, m.Len())
	revoked, err := m.IsRevoked(context.Background(), "live")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemory_RevokeKeepsLaterExpiry(t *testing.T) {
	clock := newTestClock()
	m := NewMemory(WithClock(clock.Now))
	later := clock.Now().Add(2 * time.Hour)

	m.Restore([]Entry{{TokenHash: "h", ExpiresAt: later}})
	m.Restore([]Entry{{TokenHash: "h", ExpiresAt: clock.Now().Add(time.Hour)}})

	entries := m.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, later, entries[0].ExpiresAt)
}

func TestMemory_Concurrent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok := fmt.Sprintf("tok-%d", i%8)
			_ = m.Revoke(ctx, tok, exp)
			revoked, err := m.IsRevoked(ctx, tok)
			assert.NoError(t, err)
			assert.True(t, revoked)
			m.Sweep()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, m.Len())
}
