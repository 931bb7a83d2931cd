package middleware

import (
	"net/http"

	"github.com/chongs12/emotion-analysis/pkg/logger"
	"github.com/chongs12/emotion-analysis/pkg/utils"
	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	jwt *utils.JWTManager
}

func NewAuthMiddleware(jwt *utils.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// RequireAuth rejects requests without a valid bearer token.
// Errors use the same {"detail": ...} body as the analysis endpoint.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authorization header required"})
			return
		}

		tokenString := utils.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid authorization header format"})
			return
		}

		claims, err := a.jwt.ValidateToken(tokenString)
		if err != nil {
			logger.Warn(c.Request.Context(), "Invalid token", "error", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or expired token"})
			return
		}

		c.Set(logger.UserIDKey, claims.Subject)
		c.Set("claims", claims)
		InjectUserIDToContext(c, claims.Subject)

		c.Next()
	}
}
