package services

import (
	"context"

	"github.com/CairnApp/shellsync/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationDeduper decides whether an incoming push notification should be
// displayed. Each message ID is shown at most once; presentation itself is
// the native UI's concern.
type NotificationDeduper interface {
	// ShouldDisplay reports whether the notification identified by messageID
	// has not been shown yet. An empty messageID is assigned a fresh ID and
	// always displayed.
	ShouldDisplay(ctx context.Context, messageID string) bool
}

type notificationDeduper struct {
	dedupeStore store.DedupeStore
	logger      *zap.Logger
}

// NewNotificationDeduper creates a deduper backed by the given store.
func NewNotificationDeduper(dedupeStore store.DedupeStore, log *zap.Logger) NotificationDeduper {
	return &notificationDeduper{
		dedupeStore: dedupeStore,
		logger:      log.Named("NotificationDeduper"),
	}
}

func (d *notificationDeduper) ShouldDisplay(ctx context.Context, messageID string) bool {
	if messageID == "" {
		// Provider messages without an ID cannot be deduplicated; show them
		// under a synthetic ID so downstream logging still has a handle.
		messageID = uuid.New().String()
		d.logger.Debug("Notification without message ID", zap.String("assignedID", messageID))
	}

	seen, err := d.dedupeStore.MarkSeen(ctx, messageID)
	if err != nil {
		// On store failure err toward displaying; a duplicate banner beats a
		// silently dropped notification.
		d.logger.Warn("Dedupe store failed, displaying notification",
			zap.String("messageID", messageID),
			zap.Error(err))
		return true
	}

	if seen {
		d.logger.Debug("Suppressing duplicate notification",
			zap.String("messageID", messageID))
	}
	return !seen
}
