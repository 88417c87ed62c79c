package repositories

import (
	"context"
	"time"
)

// TokenDenylist records revoked token IDs until the token would have expired anyway.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
