package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CairnApp/shellsync/config"
	"github.com/CairnApp/shellsync/internal/store"
	"github.com/CairnApp/shellsync/internal/store/memory"
	"github.com/CairnApp/shellsync/logger"
	"github.com/CairnApp/shellsync/middleware"
	"github.com/CairnApp/shellsync/services"
	"github.com/CairnApp/shellsync/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	logger.IsTest = true
	gin.SetMode(gin.TestMode)
}

type fakeDelivery struct {
	calls []string
	err   error
}

func (d *fakeDelivery) Deliver(ctx context.Context, token, userID string) error {
	d.calls = append(d.calls, userID+":"+token)
	return d.err
}

type handlerFixture struct {
	router      *gin.Engine
	secureStore *memory.SecureStore
	sessions    *services.SessionManager
	delivery    *fakeDelivery
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	secureStore := memory.NewSecureStore()
	sessions := services.NewSessionManager()
	registry := services.NewTokenRegistry(memory.NewDeliveryRecordStore(), zap.NewNop())
	delivery := &fakeDelivery{}
	deduper := services.NewNotificationDeduper(memory.NewDedupeStore(), zap.NewNop())

	reconciler := services.NewBridgeReconciler(
		config.BridgeConfig{AllowLegacyMessages: true, LoginRoute: "/login"},
		secureStore, sessions, registry, delivery, nil, zap.NewNop())

	bridgeHandler := NewBridgeHandler(reconciler, zap.NewNop())
	pushHandler := NewPushHandler(delivery, sessions, deduper, zap.NewNop())

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.ErrorHandler())
	v1 := router.Group("/v1")
	{
		v1.POST("/bridge/message", bridgeHandler.HandleMessage)
		v1.GET("/session/bootstrap", bridgeHandler.BootstrapSession)
		v1.POST("/session/resume", bridgeHandler.ResumeSession)
		v1.POST("/navigation", bridgeHandler.RouteChange)
		v1.POST("/push/token", pushHandler.RegisterPushToken)
		v1.POST("/notifications/display", pushHandler.DisplayNotification)
	}

	return &handlerFixture{
		router:      router,
		secureStore: secureStore,
		sessions:    sessions,
		delivery:    delivery,
	}
}

func (f *handlerFixture) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	return w
}

func TestBridgeMessageAuthSave(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.post(t, "/v1/bridge/message",
		`{"command":"saveToken","tokenType":"auth","accessToken":"abc.def.ghi","refreshToken":"r1"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	stored, err := f.secureStore.Get(context.Background(), store.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", stored)
	assert.True(t, f.sessions.IsAuthenticated())
}

func TestBridgeMessageMalformed(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.post(t, "/v1/bridge/message", `{"command":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBridgeMessageClearToken(t *testing.T) {
	f := newHandlerFixture(t)
	require.NoError(t, f.secureStore.Set(context.Background(), store.KeyAccessToken, "abc.def.ghi"))
	f.sessions.Set(types.Session{AccessToken: "abc.def.ghi", UserID: "user-1"})

	w := f.post(t, "/v1/bridge/message", `{"command":"clearToken"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, f.sessions.IsAuthenticated())
}

func TestBootstrapEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/session/bootstrap", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(types.TargetLogin), resp["target"])
}

func TestRouteChangeEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	f.sessions.Set(types.Session{AccessToken: "abc.def.ghi", UserID: "user-1"})

	w := f.post(t, "/v1/navigation", `{"from":"/dashboard","to":"/login"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, f.sessions.IsAuthenticated())
}

func TestRouteChangeMissingTo(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.post(t, "/v1/navigation", `{"from":"/dashboard"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterPushTokenWithoutSession(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.post(t, "/v1/push/token", `{"token":"fcm-token:aaaaaaaaaaaaaaaaaaaaaaaa"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, f.delivery.calls)
}

func TestRegisterPushToken(t *testing.T) {
	f := newHandlerFixture(t)
	f.sessions.Set(types.Session{AccessToken: "abc.def.ghi", UserID: "user-1"})

	w := f.post(t, "/v1/push/token", `{"token":"fcm-token:aaaaaaaaaaaaaaaaaaaaaaaa"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, f.delivery.calls, 1)
	assert.Equal(t, "user-1:fcm-token:aaaaaaaaaaaaaaaaaaaaaaaa", f.delivery.calls[0])
}

func TestDisplayNotificationDedupe(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.post(t, "/v1/notifications/display", `{"messageId":"m1","title":"Hi","body":"There"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"display":true}`, w.Body.String())

	w = f.post(t, "/v1/notifications/display", `{"messageId":"m1","title":"Hi","body":"There"}`)
	assert.JSONEq(t, `{"display":false}`, w.Body.String())
}
