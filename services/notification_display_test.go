package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/CairnApp/shellsync/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestShouldDisplayOncePerMessageID(t *testing.T) {
	deduper := NewNotificationDeduper(memory.NewDedupeStore(), zap.NewNop())
	ctx := context.Background()

	assert.True(t, deduper.ShouldDisplay(ctx, "msg-1"))
	assert.False(t, deduper.ShouldDisplay(ctx, "msg-1"))
	assert.True(t, deduper.ShouldDisplay(ctx, "msg-2"))
}

func TestShouldDisplayEmptyIDAlwaysShows(t *testing.T) {
	deduper := NewNotificationDeduper(memory.NewDedupeStore(), zap.NewNop())
	ctx := context.Background()

	assert.True(t, deduper.ShouldDisplay(ctx, ""))
	assert.True(t, deduper.ShouldDisplay(ctx, ""))
}

type failingDedupeStore struct{}

func (f *failingDedupeStore) MarkSeen(ctx context.Context, id string) (bool, error) {
	return false, fmt.Errorf("storage unavailable")
}

func TestShouldDisplayOnStoreFailure(t *testing.T) {
	deduper := NewNotificationDeduper(&failingDedupeStore{}, zap.NewNop())

	assert.True(t, deduper.ShouldDisplay(context.Background(), "msg-1"))
}
