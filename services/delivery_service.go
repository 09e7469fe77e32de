package services

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/CairnApp/shellsync/config"
	"github.com/CairnApp/shellsync/errors"
	"github.com/CairnApp/shellsync/internal/store"
	"github.com/CairnApp/shellsync/logger"
	"github.com/CairnApp/shellsync/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	// conflictMarker is the recognizable fragment of the backend's
	// duplicate-registration 400 response.
	conflictMarker = "already have fcm token"

	// maxResponseBytes bounds how much of a backend response body is read
	// for classification and logging.
	maxResponseBytes = 8 << 10
)

var (
	deliveryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shellsync_delivery_attempts_total",
		Help: "Total push token registration attempts sent to the backend",
	})
	deliverySuccesses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shellsync_delivery_successes_total",
		Help: "Push token registrations accepted by the backend",
	})
	deliveryConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shellsync_delivery_conflicts_total",
		Help: "Duplicate registrations reported by the backend, treated as success",
	})
	deliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shellsync_delivery_failures_total",
		Help: "Push token deliveries that terminally failed",
	})
	deliveryRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shellsync_delivery_retries_total",
		Help: "Retries performed after transient delivery failures",
	})
)

// PushDeliveryService registers push tokens against the product backend.
type PushDeliveryService interface {
	// Deliver registers token for userID. A nil return means the pair is
	// registered, whether by this call, a previous one, or a backend-side
	// duplicate. Deliver never mutates the session.
	Deliver(ctx context.Context, token, userID string) error
}

type pushDeliveryService struct {
	cfg         config.DeliveryConfig
	registry    TokenRegistry
	secureStore store.SecureStore
	httpClient  *http.Client
	retryDelay  func(attempt int) time.Duration
	logger      *zap.Logger
}

// DeliveryOption configures the delivery service.
type DeliveryOption func(*pushDeliveryService)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) DeliveryOption {
	return func(s *pushDeliveryService) {
		s.httpClient = client
	}
}

// WithRetryDelay overrides the delay schedule between attempts. Used by tests
// to avoid real sleeps.
func WithRetryDelay(delay func(attempt int) time.Duration) DeliveryOption {
	return func(s *pushDeliveryService) {
		s.retryDelay = delay
	}
}

// NewPushDeliveryService creates the delivery agent.
func NewPushDeliveryService(
	cfg config.DeliveryConfig,
	registry TokenRegistry,
	secureStore store.SecureStore,
	log *zap.Logger,
	opts ...DeliveryOption,
) PushDeliveryService {
	s := &pushDeliveryService{
		cfg:         cfg,
		registry:    registry,
		secureStore: secureStore,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		// Linear schedule: attempt index in whole seconds.
		retryDelay: func(attempt int) time.Duration {
			return time.Duration(attempt) * time.Second
		},
		logger: log.Named("PushDelivery"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *pushDeliveryService) Deliver(ctx context.Context, token, userID string) error {
	if err := s.validate(token, userID); err != nil {
		s.logger.Warn("Rejected push token delivery",
			zap.String("userID", userID),
			zap.String("token", logger.MaskSensitiveString(token, 6, 4)),
			zap.Error(err))
		return err
	}

	// Fast path: the pair is already registered. Advisory only; the backend's
	// duplicate handling below is the authoritative idempotency guarantee.
	if s.registry.HasBeenDelivered(ctx, token, userID) {
		s.logger.Debug("Push token already delivered, skipping",
			zap.String("userID", userID))
		return nil
	}

	maxAttempts := s.cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			deliveryRetries.Inc()
			if err := s.waitBeforeRetry(ctx, attempt-1); err != nil {
				deliveryFailures.Inc()
				return errors.Wrap(err, errors.TransientError, "delivery canceled while waiting to retry")
			}
		}

		deliveryAttempts.Inc()
		err := s.send(ctx, token, userID)
		if err == nil {
			deliverySuccesses.Inc()
			s.registry.MarkDelivered(ctx, token, userID)
			s.logger.Info("Push token delivered",
				zap.String("userID", userID),
				zap.Int("attempt", attempt))
			return nil
		}

		if errors.IsType(err, errors.ConflictError) {
			// The backend already knows this pair. Same outcome as success.
			deliveryConflicts.Inc()
			s.registry.MarkDelivered(ctx, token, userID)
			s.logger.Info("Push token already registered on backend",
				zap.String("userID", userID))
			return nil
		}

		lastErr = err
		if !errors.IsRetryable(err) {
			break
		}

		s.logger.Warn("Transient delivery failure",
			zap.String("userID", userID),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	deliveryFailures.Inc()
	s.logger.Error("Push token delivery failed",
		zap.String("userID", userID),
		zap.String("token", logger.MaskSensitiveString(token, 6, 4)),
		zap.Error(lastErr))
	return lastErr
}

func (s *pushDeliveryService) validate(token, userID string) error {
	if userID == "" {
		return errors.ValidationFailed("user ID is required for push token delivery", "")
	}
	if token == "" {
		return errors.ValidationFailed("push token is empty", "")
	}
	if !types.IsPlausiblePushToken(token) {
		return errors.ValidationFailed("push token fails shape check",
			fmt.Sprintf("length %d", len(token)))
	}
	if s.cfg.BaseURL == "" {
		return errors.ValidationFailed("no delivery backend configured", "")
	}
	return nil
}

// send performs one registration attempt and classifies the outcome.
func (s *pushDeliveryService) send(ctx context.Context, token, userID string) error {
	fieldName := s.cfg.TokenFieldName
	if fieldName == "" {
		fieldName = "fcmToken"
	}
	body, err := json.Marshal(map[string]string{
		fieldName: token,
		"userId":  userID,
	})
	if err != nil {
		return errors.Wrap(err, errors.ServerError, "failed to marshal registration body")
	}

	url := strings.TrimSuffix(s.cfg.BaseURL, "/") + s.cfg.TokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.ServerError, "failed to create registration request")
	}
	req.Header.Set("Content-Type", "application/json")

	// The credential is read at call time, never cached, so a refresh that
	// happened since the last delivery is always picked up.
	accessToken, err := s.secureStore.Get(ctx, store.KeyAccessToken)
	if err != nil {
		if !stderrors.Is(err, store.ErrNotFound) {
			s.logger.Warn("Failed to read access token for delivery", zap.Error(err))
		}
	} else {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Transient(err, "push token request failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.Transient(err, "failed to read backend response")
	}

	return classifyResponse(resp.StatusCode, respBody)
}

// classifyResponse maps a backend response onto the delivery error taxonomy.
// nil means the registration was accepted.
func classifyResponse(statusCode int, body []byte) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusBadRequest && isDuplicateRegistration(body):
		return errors.Conflict("push token already registered for this user", "")
	case statusCode >= 400 && statusCode < 500:
		return errors.ClientRejected(statusCode, string(body))
	default:
		return errors.Transient(
			fmt.Errorf("backend returned status %d", statusCode),
			"transient backend failure")
	}
}

// isDuplicateRegistration matches the backend's "already registered" message
// anywhere in the response body, case-insensitively, so both the title and
// message variants are recognized.
func isDuplicateRegistration(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), conflictMarker)
}

// waitBeforeRetry blocks for the schedule's delay or until ctx is canceled.
func (s *pushDeliveryService) waitBeforeRetry(ctx context.Context, attempt int) error {
	timer := time.NewTimer(s.retryDelay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
