package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"github.com/CairnApp/shellsync/config"
	"github.com/CairnApp/shellsync/errors"
	"github.com/CairnApp/shellsync/internal/auth"
	"github.com/CairnApp/shellsync/internal/store"
	"github.com/CairnApp/shellsync/logger"
	"github.com/CairnApp/shellsync/types"
	"go.uber.org/zap"
)

// PageScriptRunner injects JavaScript into the hosted page. Implemented by
// the WebView collaborator; nil when script injection is unavailable.
type PageScriptRunner interface {
	RunScript(ctx context.Context, script string) error
}

// BridgeReconciler reconciles authentication state between the hosted page
// and the native session, in both directions. All storage and delivery
// failures are contained here; nothing propagates across the bridge boundary
// except parse rejections of the inbound message itself.
type BridgeReconciler struct {
	cfg         config.BridgeConfig
	secureStore store.SecureStore
	sessions    *SessionManager
	registry    TokenRegistry
	delivery    PushDeliveryService
	page        PageScriptRunner
	logger      *zap.Logger
}

// NewBridgeReconciler creates the reconciler. page may be nil.
func NewBridgeReconciler(
	cfg config.BridgeConfig,
	secureStore store.SecureStore,
	sessions *SessionManager,
	registry TokenRegistry,
	delivery PushDeliveryService,
	page PageScriptRunner,
	log *zap.Logger,
) *BridgeReconciler {
	return &BridgeReconciler{
		cfg:         cfg,
		secureStore: secureStore,
		sessions:    sessions,
		registry:    registry,
		delivery:    delivery,
		page:        page,
		logger:      log.Named("BridgeReconciler"),
	}
}

// HandleMessage consumes a raw bridge message from the hosted page. It
// returns an error only for messages that could not be understood; all
// downstream failures are logged and swallowed so the page never observes
// them.
func (r *BridgeReconciler) HandleMessage(ctx context.Context, raw []byte) error {
	var msg types.BridgeMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.logger.Warn("Dropping malformed bridge message", zap.Error(err))
		return errors.ParseFailed(err, "malformed bridge message")
	}

	switch msg.Command {
	case types.CommandSaveToken:
		return r.handleSaveToken(ctx, msg)
	case types.CommandClearToken:
		r.clearAuthState(ctx)
		return nil
	default:
		r.logger.Info("Ignoring unrecognized bridge command",
			zap.String("command", msg.Command))
		return nil
	}
}

func (r *BridgeReconciler) handleSaveToken(ctx context.Context, msg types.BridgeMessage) error {
	switch msg.TokenType {
	case types.TokenTypeAuth:
		if msg.AccessToken == "" {
			return errors.ParseFailed(nil, "saveToken auth message missing accessToken")
		}
		r.saveAuthTokens(ctx, msg.AccessToken, msg.RefreshToken)
		return nil
	case types.TokenTypeFCM:
		if msg.Token == "" {
			return errors.ParseFailed(nil, "saveToken fcm message missing token")
		}
		r.forwardPushToken(ctx, msg.Token)
		return nil
	case "":
		return r.handleLegacyMessage(ctx, msg)
	default:
		r.logger.Info("Ignoring saveToken with unknown tokenType",
			zap.String("tokenType", msg.TokenType))
		return nil
	}
}

// handleLegacyMessage classifies messages that predate the tokenType
// discriminant: a three-part dot-delimited credential is treated as an auth
// token, anything else as a push token.
func (r *BridgeReconciler) handleLegacyMessage(ctx context.Context, msg types.BridgeMessage) error {
	if !r.cfg.AllowLegacyMessages {
		return errors.ParseFailed(nil, "bridge message missing tokenType")
	}

	candidate := msg.AccessToken
	if candidate == "" {
		candidate = msg.Token
	}
	if candidate == "" {
		return errors.ParseFailed(nil, "bridge message carries no token")
	}

	if auth.LooksLikeJWT(candidate) {
		r.logger.Debug("Legacy bridge message classified as auth token")
		r.saveAuthTokens(ctx, candidate, msg.RefreshToken)
	} else {
		r.logger.Debug("Legacy bridge message classified as push token")
		r.forwardPushToken(ctx, candidate)
	}
	return nil
}

// saveAuthTokens persists the token pair and refreshes the in-memory
// session. A storage failure leaves the session unchanged.
func (r *BridgeReconciler) saveAuthTokens(ctx context.Context, accessToken, refreshToken string) {
	if err := r.secureStore.Set(ctx, store.KeyAccessToken, accessToken); err != nil {
		r.logger.Error("Failed to persist access token, session unchanged", zap.Error(err))
		return
	}
	if refreshToken != "" {
		if err := r.secureStore.Set(ctx, store.KeyRefreshToken, refreshToken); err != nil {
			r.logger.Warn("Failed to persist refresh token", zap.Error(err))
		}
	}

	r.sessions.SetTokens(accessToken, refreshToken)

	claims, err := auth.DecodeSessionClaims(accessToken)
	if err != nil {
		// Opaque (non-JWT) access token: the session is valid but carries no
		// decoded identity.
		r.logger.Warn("Access token claims not decodable",
			zap.String("token", logger.MaskJWT(accessToken)))
		return
	}

	profile := &types.UserProfile{
		ID:          claims.UserID(),
		Email:       claims.Email,
		DisplayName: claims.Name,
	}
	r.sessions.SetIdentity(claims.UserID(), profile)

	if payload, err := json.Marshal(profile); err == nil {
		if err := r.secureStore.Set(ctx, store.KeyUserData, string(payload)); err != nil {
			r.logger.Warn("Failed to persist user profile", zap.Error(err))
		}
	}

	r.logger.Info("Auth tokens reconciled from page",
		zap.String("userID", claims.UserID()),
		zap.String("accessToken", logger.MaskJWT(accessToken)))
}

// forwardPushToken hands a page-surfaced push token to the delivery agent for
// the current session user. Without a user the token is left for the next
// login to deliver.
func (r *BridgeReconciler) forwardPushToken(ctx context.Context, token string) {
	userID := r.sessions.UserID()
	if userID == "" {
		r.logger.Debug("No session user for push token, skipping delivery",
			zap.String("token", logger.MaskSensitiveString(token, 6, 4)))
		return
	}

	if err := r.delivery.Deliver(ctx, token, userID); err != nil {
		// Delivery failures are silent to the user.
		r.logger.Warn("Push token delivery from bridge failed",
			zap.String("userID", userID),
			zap.Error(err))
	}
}

// clearAuthState removes persisted auth entries and resets the session. The
// delivery registry is intentionally left alone; only the explicit logout
// flow clears it.
func (r *BridgeReconciler) clearAuthState(ctx context.Context) {
	if err := r.secureStore.Delete(ctx, store.KeyAccessToken, store.KeyRefreshToken, store.KeyUserData); err != nil {
		r.logger.Warn("Failed to clear persisted auth entries", zap.Error(err))
	}
	r.sessions.Clear()
	r.logger.Info("Auth state cleared via bridge")
}

// Logout is the explicit logout flow: clears auth state and the delivery
// registry so a later login with a different user forces re-delivery.
func (r *BridgeReconciler) Logout(ctx context.Context) {
	userID := r.sessions.UserID()
	r.clearAuthState(ctx)
	if userID != "" {
		r.registry.Clear(ctx, userID)
	}
	r.logger.Info("Logout completed", zap.String("userID", userID))
}

// BootstrapSession determines the initial navigation target on process
// start. It must complete before the page starts loading so the first view
// is correct. Any failure resolves toward the login target.
func (r *BridgeReconciler) BootstrapSession(ctx context.Context) types.NavigationTarget {
	accessToken, err := r.secureStore.Get(ctx, store.KeyAccessToken)
	if err != nil {
		if !stderrors.Is(err, store.ErrNotFound) {
			r.logger.Warn("Failed to read persisted access token", zap.Error(err))
		}
		return types.TargetLogin
	}

	claims, err := auth.DecodeSessionClaims(accessToken)
	if err != nil {
		r.logger.Warn("Persisted access token not decodable, purging",
			zap.String("token", logger.MaskJWT(accessToken)))
		r.purgeAuthKeys(ctx)
		return types.TargetLogin
	}

	if claims.IsExpired(time.Now()) {
		r.logger.Info("Persisted session expired, purging",
			zap.String("userID", claims.UserID()))
		r.purgeAuthKeys(ctx)
		return types.TargetLogin
	}

	session := types.Session{
		AccessToken: accessToken,
		UserID:      claims.UserID(),
	}

	if refreshToken, err := r.secureStore.Get(ctx, store.KeyRefreshToken); err == nil {
		session.RefreshToken = refreshToken
	}

	if userData, err := r.secureStore.Get(ctx, store.KeyUserData); err == nil {
		var profile types.UserProfile
		if err := json.Unmarshal([]byte(userData), &profile); err == nil {
			session.Profile = &profile
		} else {
			r.logger.Warn("Persisted user profile not decodable", zap.Error(err))
		}
	}

	r.sessions.Set(session)
	r.logger.Info("Session restored from secure storage",
		zap.String("userID", session.UserID))
	return types.TargetHome
}

func (r *BridgeReconciler) purgeAuthKeys(ctx context.Context) {
	if err := r.secureStore.Delete(ctx, store.KeyAccessToken, store.KeyRefreshToken, store.KeyUserData); err != nil {
		r.logger.Warn("Failed to purge auth keys", zap.Error(err))
	}
}

// HandleRouteChange observes hosted page navigation. A transition into the
// login route from anywhere else while a session exists is an implicit
// logout signal from the web app.
func (r *BridgeReconciler) HandleRouteChange(ctx context.Context, from, to string) {
	if !r.isLoginRoute(to) || r.isLoginRoute(from) {
		return
	}
	if !r.sessions.IsAuthenticated() {
		return
	}

	r.logger.Info("Page navigated to login from elsewhere, treating as logout",
		zap.String("from", from))
	r.Logout(ctx)
}

func (r *BridgeReconciler) isLoginRoute(route string) bool {
	path := strings.SplitN(route, "?", 2)[0]
	return path == r.cfg.LoginRoute
}

// ResyncOnResume re-pushes the stored access token into the page's client
// storage when the shell returns to foreground, so the page does not
// independently decide the user is logged out. Best effort.
func (r *BridgeReconciler) ResyncOnResume(ctx context.Context) {
	if r.page == nil {
		return
	}

	session := r.sessions.Current()
	if !session.IsAuthenticated() {
		return
	}

	script := "localStorage.setItem('accessToken', '" + escapeForScript(session.AccessToken) + "');"
	if session.RefreshToken != "" {
		script += "localStorage.setItem('refreshToken', '" + escapeForScript(session.RefreshToken) + "');"
	}

	if err := r.page.RunScript(ctx, script); err != nil {
		r.logger.Warn("Failed to resync tokens into page storage", zap.Error(err))
	}
}

// escapeForScript makes a token safe to embed in a single-quoted JS string.
func escapeForScript(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)
	return replacer.Replace(s)
}
