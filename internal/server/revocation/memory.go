package revocation

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/volunteerhub/internal/cryptox"
)

// Entry is one revoked fingerprint, as exported in snapshots.
type Entry struct {
	TokenHash string    `json:"tokenHash"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Memory is a process-local List. It is lost on restart unless paired with
// a Snapshotter.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{entries: make(map[string]time.Time), now: o.now}
}

func (m *Memory) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	m.add(cryptox.HashToken(token), expiresAt)
	return nil
}

func (m *Memory) add(hash string, expiresAt time.Time) {
	if !expiresAt.After(m.now()) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.entries[hash]; !ok || expiresAt.After(cur) {
		m.entries[hash] = expiresAt
	}
}

func (m *Memory) IsRevoked(ctx context.Context, token string) (bool, error) {
	hash := cryptox.HashToken(token)
	now := m.now()

	m.mu.RLock()
	exp, ok := m.entries[hash]
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if exp.After(now) {
		return true, nil
	}

	m.mu.Lock()
	if cur, ok := m.entries[hash]; ok && !cur.After(now) {
		delete(m.entries, hash)
	}
	m.mu.Unlock()
	return false, nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep drops expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for h, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, h)
			removed++
		}
	}
	return removed
}

// Entries returns the unexpired entries.
func (m *Memory) Entries() []Entry {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, 0, len(m.entries))
	for h, exp := range m.entries {
		if exp.After(now) {
			out = append(out, Entry{TokenHash: h, ExpiresAt: exp})
		}
	}
	return out
}

// Restore merges entries into the list, skipping expired ones.
func (m *Memory) Restore(entries []Entry) {
	for _, e := range entries {
		m.add(e.TokenHash, e.ExpiresAt)
	}
}
