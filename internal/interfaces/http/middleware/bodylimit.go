package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/malinha/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects requests whose body exceeds maxBytes. Requests without
// a Content-Length header are still capped through MaxBytesReader.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			requestID := c.GetString("request_id")
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponseWithRequestID("REQUEST_TOO_LARGE", "Request body exceeds maximum allowed size", requestID))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
