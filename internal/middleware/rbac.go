package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/facility-maintenance-api/internal/lifecycle"
	appErrors "github.com/noah-isme/facility-maintenance-api/pkg/errors"
	"github.com/noah-isme/facility-maintenance-api/pkg/response"
)

// RequireCapability rejects actors whose role does not grant want. Per-request
// acting roles (owner, assignee) are checked by the lifecycle engine instead.
func RequireCapability(want lifecycle.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !lifecycle.Can(actor, want) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
