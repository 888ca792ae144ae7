package middleware

import (
	"net/http"
	"strings"

	"stillpoint_backend/internal/auth"
	"stillpoint_backend/internal/logger"
	"stillpoint_backend/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserIDKey = "userID"
	ctxEmailKey  = "userEmail"
	ctxRoleKey   = "role"
)

// AuthMiddleware validates the Bearer token and stores the claims on the gin
// context and the request context (for log enrichment).
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing or invalid"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.ParseToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxEmailKey, claims.Email)
		c.Set(ctxRoleKey, claims.Role)

		ctx := logger.WithUserID(c.Request.Context(), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// OptionalAuthMiddleware parses a Bearer token when present but never rejects
// the request. Used on entitlement checks, where anonymous callers can still
// access free content.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			if claims, err := auth.ParseToken(strings.TrimPrefix(authHeader, "Bearer ")); err == nil {
				c.Set(ctxUserIDKey, claims.UserID)
				c.Set(ctxEmailKey, claims.Email)
				c.Set(ctxRoleKey, claims.Role)

				ctx := logger.WithUserID(c.Request.Context(), claims.UserID)
				c.Request = c.Request.WithContext(ctx)
			}
		}
		c.Next()
	}
}

// RequireRoles allows the request through only when the authenticated role is
// one of the listed roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]bool)
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		roleVal, exists := c.Get(ctxRoleKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: no role"})
			return
		}

		roleStr, ok := roleVal.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: invalid role type"})
			return
		}

		if !roleSet[models.UserRole(roleStr)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: insufficient role"})
			return
		}

		c.Next()
	}
}

// GetUserID returns the authenticated user ID, or "" when anonymous.
func GetUserID(c *gin.Context) string {
	if id, ok := c.Get(ctxUserIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// GetUserEmail returns the authenticated email, or "" when anonymous.
func GetUserEmail(c *gin.Context) string {
	if email, ok := c.Get(ctxEmailKey); ok {
		if s, ok := email.(string); ok {
			return s
		}
	}
	return ""
}
