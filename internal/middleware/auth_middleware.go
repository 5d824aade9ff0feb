package middleware

import (
	"net/http"

	"contrata-chat/internal/auth"
	"contrata-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware gates routes behind the application's token when a
// verifier is configured. With a nil verifier it is a pass-through, which
// is how deployments relying purely on the reverse proxy run.
func AuthMiddleware(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}
		token := auth.ExtractToken(c)
		if _, err := verifier.Verify(token); err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", httpdto.CodeUnauthorized))
			c.Abort()
			return
		}
		c.Next()
	}
}
