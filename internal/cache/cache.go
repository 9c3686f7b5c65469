package cache

import (
	"context"
	"time"
)

// Store is a generic TTL key-value cache. Implementations must treat a
// missing or expired key as (nil, false, nil), not as an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
