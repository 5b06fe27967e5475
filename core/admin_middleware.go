package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminOnly ensures the current actor holds the administration capability.
// It must run behind AccessGuard.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := ActorFrom(c)
		if !ok || !user.IsAdmin() {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "administrator permission required")
			c.Abort()
			return
		}
		c.Next()
	}
}
