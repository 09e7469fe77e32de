package router

import (
	"net/http"

	"github.com/CairnApp/shellsync/config"
	"github.com/CairnApp/shellsync/handlers"
	"github.com/CairnApp/shellsync/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies holds everything required for setting up routes.
type Dependencies struct {
	Config        *config.Config
	BridgeHandler *handlers.BridgeHandler
	PushHandler   *handlers.PushHandler
	Logger        *zap.SugaredLogger
}

// SetupRouter configures and returns the Gin engine with all bridge routes.
func SetupRouter(deps Dependencies) *gin.Engine {
	if deps.Config.Server.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORS(&deps.Config.Server))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		// Inbound bridge channel from the hosted page
		v1.POST("/bridge/message", deps.BridgeHandler.HandleMessage)

		// Session lifecycle driven by the native shell
		v1.GET("/session/bootstrap", deps.BridgeHandler.BootstrapSession)
		v1.POST("/session/resume", deps.BridgeHandler.ResumeSession)
		v1.POST("/navigation", deps.BridgeHandler.RouteChange)

		// Push subsystem
		v1.POST("/push/token", deps.PushHandler.RegisterPushToken)
		v1.POST("/notifications/display", deps.PushHandler.DisplayNotification)
	}

	return r
}
