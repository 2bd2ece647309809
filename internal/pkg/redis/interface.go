package redis

import (
	"context"
	"time"
)

// Cache is the subset of redis operations the moderation pipeline relies on.
type Cache interface {
	SetBytes(ctx context.Context, key string, value []byte, exp time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)

	// SetBits sets the given bit offsets on key in one round trip.
	SetBits(ctx context.Context, key string, offsets []uint) error
	// AllBitsSet reports whether every given bit offset on key is set.
	AllBitsSet(ctx context.Context, key string, offsets []uint) (bool, error)

	Del(ctx context.Context, keys ...string) (int64, error)
}
