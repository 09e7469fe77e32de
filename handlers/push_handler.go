package handlers

import (
	"net/http"

	"github.com/CairnApp/shellsync/errors"
	"github.com/CairnApp/shellsync/services"
	"github.com/CairnApp/shellsync/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PushHandler handles push token registration and notification dedupe
// requests from the native side of the shell.
type PushHandler struct {
	delivery services.PushDeliveryService
	sessions *services.SessionManager
	deduper  services.NotificationDeduper
	logger   *zap.Logger
}

// NewPushHandler creates a new PushHandler.
func NewPushHandler(
	delivery services.PushDeliveryService,
	sessions *services.SessionManager,
	deduper services.NotificationDeduper,
	logger *zap.Logger,
) *PushHandler {
	return &PushHandler{
		delivery: delivery,
		sessions: sessions,
		deduper:  deduper,
		logger:   logger.Named("PushHandler"),
	}
}

// RegisterPushToken delivers a push token for the current session user. The
// push subsystem calls this on install and on token refresh.
func (h *PushHandler) RegisterPushToken(c *gin.Context) {
	var req types.RegisterPushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.ParseFailed(err, "invalid push token payload"))
		return
	}

	userID := h.sessions.UserID()
	if userID == "" {
		h.logger.Warn("Push token registration without a session")
		_ = c.Error(errors.AuthenticationFailed("no authenticated session"))
		return
	}

	if err := h.delivery.Deliver(c.Request.Context(), req.Token, userID); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DisplayNotification reports whether an incoming push notification should
// be shown, deduplicating by message ID.
func (h *PushHandler) DisplayNotification(c *gin.Context) {
	var req types.DisplayNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.ParseFailed(err, "invalid notification payload"))
		return
	}

	display := h.deduper.ShouldDisplay(c.Request.Context(), req.MessageID)
	c.JSON(http.StatusOK, gin.H{"display": display})
}
