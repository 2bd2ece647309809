// Package bloom implements a redis-backed Bloom filter used as a cheap
// prefilter in front of the verdict cache: a negative answer avoids a redis
// GET for content that has never been moderated.
package bloom

import (
	"context"
	"errors"

	"videomod/internal/pkg/hash"
	"videomod/internal/pkg/redis"
)

// ErrTooLargeOffset indicates a computed bit offset exceeds the filter size.
var ErrTooLargeOffset = errors.New("too large offset")

// Filter represents a Bloom filter backed by a redis bitmap.
type Filter struct {
	store          redis.Cache
	key            string
	bits           uint
	kHashFunctions uint
}

// New creates a Bloom filter over the redis bitmap at key.
func New(store redis.Cache, key string, bits, kHashFunctions uint) *Filter {
	return &Filter{
		store:          store,
		key:            key,
		bits:           bits,
		kHashFunctions: kHashFunctions,
	}
}

// getLocations computes the bit locations for the given data.
func (f *Filter) getLocations(data []byte) ([]uint, error) {
	locations := make([]uint, f.kHashFunctions)
	for i := uint(0); i < f.kHashFunctions; i++ {
		hashVal := hash.Hash(append(data, byte(i)))
		loc := uint(hashVal % uint64(f.bits))
		if loc >= f.bits {
			return nil, ErrTooLargeOffset
		}
		locations[i] = loc
	}
	return locations, nil
}

// Add adds the given data to the Bloom filter.
func (f *Filter) Add(ctx context.Context, data []byte) error {
	locations, err := f.getLocations(data)
	if err != nil {
		return err
	}
	return f.store.SetBits(ctx, f.key, locations)
}

// Exists checks if the given data may exist in the Bloom filter. False
// positives are possible, false negatives are not.
func (f *Filter) Exists(ctx context.Context, data []byte) (bool, error) {
	locations, err := f.getLocations(data)
	if err != nil {
		return false, err
	}
	isSet, err := f.store.AllBitsSet(ctx, f.key, locations)
	if errors.Is(err, redis.Nil) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return isSet, nil
}

// Reset drops the whole filter.
func (f *Filter) Reset(ctx context.Context) error {
	_, err := f.store.Del(ctx, f.key)
	return err
}
