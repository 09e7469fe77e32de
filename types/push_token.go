package types

import (
	"strings"
	"time"
)

const (
	// MinPushTokenLength is the minimum plausible length for a provider-issued
	// push token. Anything shorter is rejected before network I/O.
	MinPushTokenLength = 20
)

// DeliveryRecord tracks the latest push token delivered to the backend for a
// user. Only the current pair is kept; a new token or user overwrites it.
type DeliveryRecord struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Delivered bool      `json:"delivered"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsPlausiblePushToken applies the shape heuristic for provider-issued push
// tokens: a minimum length and at least one structural delimiter. The token
// is otherwise opaque and never interpreted.
func IsPlausiblePushToken(token string) bool {
	if len(token) < MinPushTokenLength {
		return false
	}
	return strings.ContainsAny(token, ":-_")
}

// RegisterPushTokenRequest is the request body for the direct push token
// registration endpoint.
type RegisterPushTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RouteChangeRequest describes a navigation transition observed in the
// hosted page.
type RouteChangeRequest struct {
	From string `json:"from"`
	To   string `json:"to" binding:"required"`
}

// DisplayNotificationRequest is the request body for the notification dedupe
// endpoint.
type DisplayNotificationRequest struct {
	MessageID string `json:"messageId"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}
