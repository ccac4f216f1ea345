package repository

import (
	"context"
	"time"
)

// CacheRepository stores string values by key, used for form sessions.
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
