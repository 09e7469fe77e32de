package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/CairnApp/shellsync/internal/store"
	"github.com/CairnApp/shellsync/internal/store/memory"
	"github.com/CairnApp/shellsync/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testToken = "fcm-token-aaaaaaaaaaaaaaaaaaaa"

func newTestRegistry() (TokenRegistry, *memory.DeliveryRecordStore) {
	persistence := memory.NewDeliveryRecordStore()
	return NewTokenRegistry(persistence, zap.NewNop()), persistence
}

func TestRegistryMarkAndCheck(t *testing.T) {
	registry, _ := newTestRegistry()
	ctx := context.Background()

	assert.False(t, registry.HasBeenDelivered(ctx, testToken, "user-1"))

	registry.MarkDelivered(ctx, testToken, "user-1")
	assert.True(t, registry.HasBeenDelivered(ctx, testToken, "user-1"))

	// Marking again is a no-op in effect.
	registry.MarkDelivered(ctx, testToken, "user-1")
	assert.True(t, registry.HasBeenDelivered(ctx, testToken, "user-1"))
}

func TestRegistryScopedPerUser(t *testing.T) {
	registry, _ := newTestRegistry()
	ctx := context.Background()

	registry.MarkDelivered(ctx, testToken, "user-x")

	assert.True(t, registry.HasBeenDelivered(ctx, testToken, "user-x"))
	assert.False(t, registry.HasBeenDelivered(ctx, testToken, "user-y"))
}

func TestRegistryNewTokenInvalidatesOld(t *testing.T) {
	registry, persistence := newTestRegistry()
	ctx := context.Background()

	registry.MarkDelivered(ctx, testToken, "user-1")
	registry.MarkDelivered(ctx, "fcm-token-bbbbbbbbbbbbbbbbbbbb", "user-1")

	assert.False(t, registry.HasBeenDelivered(ctx, testToken, "user-1"))
	assert.True(t, registry.HasBeenDelivered(ctx, "fcm-token-bbbbbbbbbbbbbbbbbbbb", "user-1"))

	// Only the current pair is persisted.
	record, err := persistence.GetRecord(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "fcm-token-bbbbbbbbbbbbbbbbbbbb", record.Token)
}

func TestRegistryClear(t *testing.T) {
	registry, persistence := newTestRegistry()
	ctx := context.Background()

	registry.MarkDelivered(ctx, testToken, "user-1")
	registry.Clear(ctx, "user-1")

	assert.False(t, registry.HasBeenDelivered(ctx, testToken, "user-1"))
	_, err := persistence.GetRecord(ctx, "user-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegistryReadsPersistedRecord(t *testing.T) {
	persistence := memory.NewDeliveryRecordStore()
	ctx := context.Background()

	// Simulate a record left by a previous process run.
	require.NoError(t, persistence.SaveRecord(ctx, &types.DeliveryRecord{
		Token:     testToken,
		UserID:    "user-1",
		Delivered: true,
	}))

	registry := NewTokenRegistry(persistence, zap.NewNop())
	assert.True(t, registry.HasBeenDelivered(ctx, testToken, "user-1"))
}

// failingRecordStore simulates a broken persistence layer.
type failingRecordStore struct{}

func (f *failingRecordStore) GetRecord(ctx context.Context, userID string) (*types.DeliveryRecord, error) {
	return nil, fmt.Errorf("storage unavailable")
}

func (f *failingRecordStore) SaveRecord(ctx context.Context, record *types.DeliveryRecord) error {
	return fmt.Errorf("storage unavailable")
}

func (f *failingRecordStore) DeleteRecord(ctx context.Context, userID string) error {
	return fmt.Errorf("storage unavailable")
}

func TestRegistryDegradesToMemoryOnPersistenceFailure(t *testing.T) {
	registry := NewTokenRegistry(&failingRecordStore{}, zap.NewNop())
	ctx := context.Background()

	// None of these calls may panic or surface an error to the caller.
	registry.MarkDelivered(ctx, testToken, "user-1")
	assert.True(t, registry.HasBeenDelivered(ctx, testToken, "user-1"))

	registry.Clear(ctx, "user-1")
	assert.False(t, registry.HasBeenDelivered(ctx, testToken, "user-1"))
}
