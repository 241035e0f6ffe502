package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
)

// APIKeyHeader carries the local API key.
const APIKeyHeader = "X-API-Key"

var errAPIKeyNotConfigured = apperrors.WithMessage(apperrors.ErrServiceUnavailable, "LOCAL_API_KEY is not configured")

// APIKeyMiddleware validates the X-API-Key header against the local API key.
// An empty key disables the check outside production and rejects every
// request in production.
func APIKeyMiddleware(apiKey string, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			if production {
				abortWithError(c, errAPIKeyNotConfigured)
				return
			}
			c.Next()
			return
		}
		key := c.GetHeader(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			abortWithError(c, apperrors.ErrInvalidAPIKey)
			return
		}
		c.Next()
	}
}
