// Package redisstore implements the store interfaces on Redis, the
// persistence backend standing in for the device secure store.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/CairnApp/shellsync/internal/store"
	"github.com/redis/go-redis/v9"
)

const securePrefix = "secure:"

// Ensure SecureStore implements store.SecureStore
var _ store.SecureStore = (*SecureStore)(nil)

// SecureStore is a Redis-backed implementation of store.SecureStore.
type SecureStore struct {
	client redis.UniversalClient
}

// NewSecureStore creates a Redis-backed secure store.
func NewSecureStore(client redis.UniversalClient) *SecureStore {
	return &SecureStore{client: client}
}

func (s *SecureStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, securePrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", store.ErrNotFound
		}
		return "", fmt.Errorf("failed to read secure key %s: %w", key, err)
	}
	return val, nil
}

func (s *SecureStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, securePrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write secure key %s: %w", key, err)
	}
	return nil
}

func (s *SecureStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = securePrefix + k
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("failed to delete secure keys: %w", err)
	}
	return nil
}
