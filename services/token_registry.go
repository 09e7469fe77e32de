package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/CairnApp/shellsync/internal/store"
	"github.com/CairnApp/shellsync/types"
	"go.uber.org/zap"
)

// TokenRegistry tracks which push-token/user pairs have already been
// delivered to the backend, so the delivery path can skip redundant sends.
type TokenRegistry interface {
	// HasBeenDelivered reports whether this exact (token, userID) pair is
	// marked delivered in memory or in persistent storage.
	HasBeenDelivered(ctx context.Context, token, userID string) bool

	// MarkDelivered records the pair as delivered, overwriting any previous
	// record for the user. Idempotent.
	MarkDelivered(ctx context.Context, token, userID string)

	// Clear removes the record for userID so a later login forces
	// re-delivery. Called by the logout flow.
	Clear(ctx context.Context, userID string)
}

type tokenRegistry struct {
	mu      sync.RWMutex
	records map[string]types.DeliveryRecord

	persistence store.DeliveryRecordStore
	logger      *zap.Logger
}

// NewTokenRegistry creates a registry backed by the given persistent store.
// Persistence failures never propagate: the registry logs them and degrades
// to memory-only tracking for the rest of the process.
func NewTokenRegistry(persistence store.DeliveryRecordStore, logger *zap.Logger) TokenRegistry {
	return &tokenRegistry{
		records:     make(map[string]types.DeliveryRecord),
		persistence: persistence,
		logger:      logger.Named("TokenRegistry"),
	}
}

func (r *tokenRegistry) HasBeenDelivered(ctx context.Context, token, userID string) bool {
	if token == "" || userID == "" {
		return false
	}

	r.mu.RLock()
	record, ok := r.records[userID]
	r.mu.RUnlock()
	if ok {
		return record.Delivered && record.Token == token
	}

	persisted, err := r.persistence.GetRecord(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("Failed to read delivery record, assuming not delivered",
				zap.String("userID", userID),
				zap.Error(err))
		}
		return false
	}

	// Warm the in-memory cache for same-session fast-path checks.
	r.mu.Lock()
	r.records[userID] = *persisted
	r.mu.Unlock()

	return persisted.Delivered && persisted.Token == token
}

func (r *tokenRegistry) MarkDelivered(ctx context.Context, token, userID string) {
	if token == "" || userID == "" {
		return
	}

	record := types.DeliveryRecord{
		Token:     token,
		UserID:    userID,
		Delivered: true,
		UpdatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.records[userID] = record
	r.mu.Unlock()

	if err := r.persistence.SaveRecord(ctx, &record); err != nil {
		r.logger.Warn("Failed to persist delivery record, tracking in memory only",
			zap.String("userID", userID),
			zap.Error(err))
	}
}

func (r *tokenRegistry) Clear(ctx context.Context, userID string) {
	if userID == "" {
		return
	}

	r.mu.Lock()
	delete(r.records, userID)
	r.mu.Unlock()

	if err := r.persistence.DeleteRecord(ctx, userID); err != nil {
		r.logger.Warn("Failed to delete persisted delivery record",
			zap.String("userID", userID),
			zap.Error(err))
	}
}
