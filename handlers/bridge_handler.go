package handlers

import (
	"net/http"

	"github.com/CairnApp/shellsync/errors"
	"github.com/CairnApp/shellsync/services"
	"github.com/CairnApp/shellsync/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BridgeHandler exposes the reconciler over the loopback bridge endpoints
// the hosted page's injected script calls.
type BridgeHandler struct {
	reconciler *services.BridgeReconciler
	logger     *zap.Logger
}

// NewBridgeHandler creates a new BridgeHandler.
func NewBridgeHandler(reconciler *services.BridgeReconciler, logger *zap.Logger) *BridgeHandler {
	return &BridgeHandler{
		reconciler: reconciler,
		logger:     logger.Named("BridgeHandler"),
	}
}

// HandleMessage receives a raw bridge message from the hosted page. The body
// is the bridge JSON contract: {command, tokenType?, accessToken?,
// refreshToken?, token?}.
func (h *BridgeHandler) HandleMessage(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		_ = c.Error(errors.ParseFailed(err, "failed to read bridge message"))
		return
	}

	if err := h.reconciler.HandleMessage(c.Request.Context(), raw); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// BootstrapSession resolves the initial navigation target for the shell. The
// WebView must not start loading the page before this returns.
func (h *BridgeHandler) BootstrapSession(c *gin.Context) {
	target := h.reconciler.BootstrapSession(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"target": target})
}

// ResumeSession re-pushes stored tokens into the page when the shell returns
// to foreground.
func (h *BridgeHandler) ResumeSession(c *gin.Context) {
	h.reconciler.ResyncOnResume(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// RouteChange receives navigation transitions observed in the hosted page.
func (h *BridgeHandler) RouteChange(c *gin.Context) {
	var req types.RouteChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.ParseFailed(err, "invalid route change payload"))
		return
	}

	h.reconciler.HandleRouteChange(c.Request.Context(), req.From, req.To)
	c.Status(http.StatusNoContent)
}
