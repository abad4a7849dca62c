package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const contextKey = "acting_context"

// Middleware validates the bearer token and stores the acting context for
// handlers.
func Middleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c.Request)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		actor, err := ParseJWT(token, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(contextKey, actor)
		c.Next()
	}
}

// Actor returns the acting context stored by Middleware.
func Actor(c *gin.Context) (ActingContext, bool) {
	v, exists := c.Get(contextKey)
	if !exists {
		return ActingContext{}, false
	}
	actor, ok := v.(ActingContext)
	return actor, ok
}
