package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rancheye/analysis_server/internal/pkg/jwt"
	"github.com/rancheye/analysis_server/internal/pkg/response"
)

const OperatorKey = "operator"

// Auth validates the Bearer token and stashes the operator name on the
// context.
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "missing authorization header")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "malformed authorization header")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(OperatorKey, claims.Operator)
		c.Next()
	}
}

// GetOperator returns the authenticated operator name, if any.
func GetOperator(c *gin.Context) (string, bool) {
	v, exists := c.Get(OperatorKey)
	if !exists {
		return "", false
	}
	operator, ok := v.(string)
	return operator, ok
}
