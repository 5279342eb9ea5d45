package middlewares

import (
	"log/slog"
	"net/http"

	jwthandling "github.com/case-framework/enrollment-backend/pkg/jwt-handling"
	"github.com/gin-gonic/gin"
)

func IsAdminUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the validated token from the context
		tokenValue, ok := c.Get("validatedToken")
		if !ok {
			slog.Warn("IsAdminUser: validatedToken not found in context")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validatedToken not found in context"})
			return
		}
		parsedToken := tokenValue.(*jwthandling.ManagementUserClaims)

		if !parsedToken.IsAdmin {
			slog.Warn("IsAdminUser Middleware: non admin user tried to access admin endpoint", slog.String("instanceID", parsedToken.InstanceID), slog.String("userID", parsedToken.Subject))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access to admin endpoint forbidden"})
			return
		}
	}
}

// HasAnyRole lets the request pass if the management user has at least one of
// the given roles. Admin users always pass.
func HasAnyRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenValue, ok := c.Get("validatedToken")
		if !ok {
			slog.Warn("HasAnyRole: validatedToken not found in context")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validatedToken not found in context"})
			return
		}
		parsedToken := tokenValue.(*jwthandling.ManagementUserClaims)

		if parsedToken.IsAdmin {
			return
		}

		for _, required := range roles {
			for _, r := range parsedToken.Roles {
				if r == required {
					return
				}
			}
		}

		slog.Warn("HasAnyRole Middleware: user without required role tried to access endpoint", slog.String("instanceID", parsedToken.InstanceID), slog.String("userID", parsedToken.Subject))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing required role"})
	}
}
