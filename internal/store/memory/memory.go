// Package memory provides in-memory implementations of the store interfaces.
// They back the degraded mode used when Redis is disabled and serve as test
// doubles for the service packages.
package memory

import (
	"context"
	"sync"

	"github.com/CairnApp/shellsync/internal/store"
	"github.com/CairnApp/shellsync/types"
)

// Ensure implementations satisfy the store interfaces
var (
	_ store.SecureStore         = (*SecureStore)(nil)
	_ store.DeliveryRecordStore = (*DeliveryRecordStore)(nil)
	_ store.DedupeStore         = (*DedupeStore)(nil)
)

// SecureStore is a mutex-guarded map implementation of store.SecureStore.
type SecureStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewSecureStore creates an empty in-memory secure store.
func NewSecureStore() *SecureStore {
	return &SecureStore{data: make(map[string]string)}
}

func (s *SecureStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return val, nil
}

func (s *SecureStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *SecureStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// DeliveryRecordStore is an in-memory implementation of
// store.DeliveryRecordStore.
type DeliveryRecordStore struct {
	mu      sync.RWMutex
	records map[string]types.DeliveryRecord
}

// NewDeliveryRecordStore creates an empty in-memory delivery record store.
func NewDeliveryRecordStore() *DeliveryRecordStore {
	return &DeliveryRecordStore{records: make(map[string]types.DeliveryRecord)}
}

func (s *DeliveryRecordStore) GetRecord(ctx context.Context, userID string) (*types.DeliveryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &record, nil
}

func (s *DeliveryRecordStore) SaveRecord(ctx context.Context, record *types.DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.UserID] = *record
	return nil
}

func (s *DeliveryRecordStore) DeleteRecord(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

// DedupeStore is an in-memory implementation of store.DedupeStore. Entries
// are kept for the process lifetime; TTL trimming is a Redis concern.
type DedupeStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDedupeStore creates an empty in-memory dedupe store.
func NewDedupeStore() *DedupeStore {
	return &DedupeStore{seen: make(map[string]struct{})}
}

func (s *DedupeStore) MarkSeen(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return true, nil
	}
	s.seen[id] = struct{}{}
	return false, nil
}
