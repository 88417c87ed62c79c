package repositories

import (
	"context"
	"sync"
	"time"
)

// MockTokenDenylist is an in-memory implementation of TokenDenylist.
type MockTokenDenylist struct {
	revoked map[string]time.Time // token ID -> expiry
	now     func() time.Time
	mu      sync.Mutex
}

// NewMockTokenDenylist creates a new instance of MockTokenDenylist.
func NewMockTokenDenylist() *MockTokenDenylist {
	return &MockTokenDenylist{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke marks tokenID as revoked for ttl and drops expired entries.
func (r *MockTokenDenylist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, exp := range r.revoked {
		if !now.Before(exp) {
			delete(r.revoked, id)
		}
	}
	if ttl > 0 {
		r.revoked[tokenID] = now.Add(ttl)
	}
	return nil
}

// IsRevoked reports whether tokenID is revoked and not yet expired.
func (r *MockTokenDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.revoked[tokenID]
	return ok && r.now().Before(exp), nil
}
