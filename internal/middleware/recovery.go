package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkly-api/internal/models"
)

const msgInternalError = "Internal Server Error"

// Recovery turns a panic into a 500 envelope. The stack is only included in
// the response when exposeDetails is true.
func Recovery(logger *zap.Logger, exposeDetails bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			stack := string(debug.Stack())
			logger.Error("Panic recovered",
				zap.Any("panic", rec),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(ContextRequestID)),
				zap.String("stack", stack))

			resp := models.ErrorResponse{Error: msgInternalError}
			if exposeDetails {
				resp.Details = fmt.Sprint(rec)
				resp.Stack = stack
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
		}()

		c.Next()
	}
}
