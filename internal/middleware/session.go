package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
)

// TokenReader reads the stored backend session.
type TokenReader interface {
	Tokens(ctx context.Context) (models.TokenPair, error)
}

// RequireSession rejects requests while no backend access token is stored.
func RequireSession(tokens TokenReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		pair, err := tokens.Tokens(c.Request.Context())
		if err != nil {
			abortWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
			return
		}
		if pair.AccessToken == "" {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}
