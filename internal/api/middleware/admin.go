package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/fantasy-feed/pkg/utils"
)

const (
	// ActorHeader names the operator performing an admin action
	ActorHeader = "X-Actor"
	// ActorKey is the gin context key holding the admitted actor
	ActorKey = "actor"
)

// AdminOnly admits requests whose X-Actor header is one of actors.
// This is an in-memory allow list, not authentication.
func AdminOnly(actors []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(actors))
	for _, a := range actors {
		if a = strings.TrimSpace(a); a != "" {
			allowed[strings.ToLower(a)] = true
		}
	}

	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if actor == "" {
			utils.SendForbidden(c, "X-Actor header is required")
			c.Abort()
			return
		}
		if !allowed[strings.ToLower(actor)] {
			utils.SendForbidden(c, "Actor is not allowed to perform admin actions")
			c.Abort()
			return
		}

		c.Set(ActorKey, actor)
		c.Next()
	}
}

// Actor returns the actor admitted by AdminOnly
func Actor(c *gin.Context) string {
	if v, ok := c.Get(ActorKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
