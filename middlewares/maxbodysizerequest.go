package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodySizeMiddleware makes body reads past maxRequestSize fail.
func MaxBodySizeMiddleware(maxRequestSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestSize)
		c.Next()
	}
}
