package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HasValidAPIKey guards service to service endpoints: the Api-Key header
// must carry one of the configured keys.
func HasValidAPIKey(validKeys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Api-Key")
		if key == "" {
			slog.Warn("request without api key", slog.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "api key missing"})
			return
		}

		for _, validKey := range validKeys {
			if key == validKey {
				c.Next()
				return
			}
		}

		slog.Warn("request with invalid api key", slog.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
	}
}
