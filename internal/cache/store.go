package cache

import (
	"context"
	"time"
)

// Store represents the shared cache interface used across the application.
// IncrementWithTTL must be atomic with respect to concurrent callers sharing
// a key: the increment and the first-write expiry may not be observed as two
// separate operations.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
