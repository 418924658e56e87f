package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/malinha/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader is the header clients send to deduplicate
// mutating requests. A retried send or return submission with the same
// key is rejected with 409 instead of being processed twice.
const IdempotencyKeyHeader = "Idempotency-Key"

// Idempotency returns a middleware that consumes the Idempotency-Key
// header using the given store. Requests without the header pass
// through untouched; the engine's own persisted guards (the sale flag,
// idempotent quantity submission) still apply to them.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		// Scope the key to method and path so the same client key can be
		// reused across different endpoints
		scoped := c.Request.Method + ":" + c.FullPath() + ":" + key

		fresh, err := store.MarkProcessed(c.Request.Context(), scoped, ttl)
		if err != nil {
			// A broken store must not block writes; the domain-level
			// guards still hold
			logger.Warn("idempotency store unavailable, skipping check",
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !fresh {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DUPLICATE_REQUEST",
					"message": "A request with this idempotency key was already processed",
				},
			})
			return
		}

		c.Next()
	}
}
