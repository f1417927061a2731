package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bizlens/analytics_backend/utils"
)

// SessionMiddleware validates the bearer token (if present) and stashes the
// authenticated business id in the request context. Requests without a token
// pass through; per-route handlers decide whether auth is required.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := utils.JwtValidate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetBusinessIdInContext(ctx, claims.BusinessId)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	bearer := c.GetHeader("Authorization")
	if len(bearer) > 7 && bearer[:7] == "Bearer " {
		return bearer[7:]
	}
	return c.GetHeader("token")
}
