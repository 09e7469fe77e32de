package middleware

import (
	"github.com/CairnApp/shellsync/errors"
	"github.com/CairnApp/shellsync/logger"
	"github.com/CairnApp/shellsync/types"
	"github.com/gin-gonic/gin"
)

// ErrorHandler converts errors attached to the gin context into JSON
// responses. AppError values map to their taxonomy status; anything else is
// reported as a generic server error without leaking detail.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		log := logger.GetLogger()

		requestID := c.GetString(RequestIDKey)

		if appError, ok := err.(*errors.AppError); ok {
			log.Warnw("Request failed",
				"request_id", requestID,
				"path", c.Request.URL.Path,
				"error_type", string(appError.Type),
				"error", appError.Message,
			)
			c.JSON(appError.GetHTTPStatus(), types.ErrorResponse{Error: appError.Message})
			return
		}

		log.Errorw("Unhandled request error",
			"request_id", requestID,
			"path", c.Request.URL.Path,
			"error", err,
		)
		c.JSON(500, types.ErrorResponse{Error: "internal error"})
	}
}
