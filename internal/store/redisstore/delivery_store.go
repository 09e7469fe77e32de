package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/CairnApp/shellsync/internal/store"
	"github.com/CairnApp/shellsync/types"
	"github.com/redis/go-redis/v9"
)

const dedupePrefix = "notify:seen:"

// Ensure implementations satisfy the store interfaces
var (
	_ store.DeliveryRecordStore = (*DeliveryRecordStore)(nil)
	_ store.DedupeStore         = (*DedupeStore)(nil)
)

// DeliveryRecordStore persists delivery markers as JSON values keyed by user.
type DeliveryRecordStore struct {
	client redis.UniversalClient
}

// NewDeliveryRecordStore creates a Redis-backed delivery record store.
func NewDeliveryRecordStore(client redis.UniversalClient) *DeliveryRecordStore {
	return &DeliveryRecordStore{client: client}
}

func (s *DeliveryRecordStore) GetRecord(ctx context.Context, userID string) (*types.DeliveryRecord, error) {
	val, err := s.client.Get(ctx, store.DeliveryRecordKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read delivery record for user %s: %w", userID, err)
	}

	var record types.DeliveryRecord
	if err := json.Unmarshal(val, &record); err != nil {
		return nil, fmt.Errorf("failed to decode delivery record for user %s: %w", userID, err)
	}
	return &record, nil
}

func (s *DeliveryRecordStore) SaveRecord(ctx context.Context, record *types.DeliveryRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode delivery record: %w", err)
	}
	if err := s.client.Set(ctx, store.DeliveryRecordKey(record.UserID), payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to write delivery record for user %s: %w", record.UserID, err)
	}
	return nil
}

func (s *DeliveryRecordStore) DeleteRecord(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, store.DeliveryRecordKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete delivery record for user %s: %w", userID, err)
	}
	return nil
}

// DedupeStore remembers displayed notification message IDs with a TTL so the
// key space does not grow unbounded.
type DedupeStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewDedupeStore creates a Redis-backed dedupe store.
func NewDedupeStore(client redis.UniversalClient, ttl time.Duration) *DedupeStore {
	return &DedupeStore{client: client, ttl: ttl}
}

func (s *DedupeStore) MarkSeen(ctx context.Context, id string) (bool, error) {
	// SETNX semantics: true return means we claimed the ID first.
	set, err := s.client.SetNX(ctx, dedupePrefix+id, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark notification %s seen: %w", id, err)
	}
	return !set, nil
}
