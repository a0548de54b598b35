package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ActorHeader  = "X-Forwarded-User"
	ActorKey     = "Actor"
	DefaultActor = "admin"

	maxActorLen = 100
)

// InjectActor stores the operator name set by the fronting proxy, used for
// audit entries and the report author.
func InjectActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if actor == "" {
			actor = DefaultActor
		}
		if r := []rune(actor); len(r) > maxActorLen {
			actor = string(r[:maxActorLen])
		}
		c.Set(ActorKey, actor)
		c.Next()
	}
}

func Actor(c *gin.Context) string {
	if v := c.GetString(ActorKey); v != "" {
		return v
	}
	return DefaultActor
}
