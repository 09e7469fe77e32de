// Package store defines the persistence interfaces consumed by the sync
// services, mirroring the secure-store layout of the native shell.
package store

import (
	"context"

	"github.com/CairnApp/shellsync/types"
)

// Secure-store key layout. These names are part of the external contract
// with the hosted web application and must not change.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserData     = "user_data"
)

// DeliveryRecordKey returns the secure-store key tracking the delivered push
// token for a user.
func DeliveryRecordKey(userID string) string {
	return "push:delivered:" + userID
}

// SecureStore is the flat key-value secure storage of the shell. Values are
// opaque strings; JSON-encoded payloads (user_data) are the caller's concern.
type SecureStore interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores the value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// DeliveryRecordStore persists the per-user delivery marker so it survives
// process restart.
type DeliveryRecordStore interface {
	// GetRecord returns the current record for userID, or ErrNotFound.
	GetRecord(ctx context.Context, userID string) (*types.DeliveryRecord, error)
	// SaveRecord stores the record, replacing the previous one for its user.
	SaveRecord(ctx context.Context, record *types.DeliveryRecord) error
	// DeleteRecord removes the record for userID. Missing records are not an
	// error.
	DeleteRecord(ctx context.Context, userID string) error
}

// DedupeStore remembers notification message IDs that have already been
// displayed.
type DedupeStore interface {
	// MarkSeen records the ID and reports whether it was seen before.
	MarkSeen(ctx context.Context, id string) (alreadySeen bool, err error)
}
