package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resenhas/pkg/apperr"
)

const userIDKey = "auth.user_id"

// Optional reads a bearer token when present and stores the caller id.
// Requests without a valid token continue anonymously.
func Optional(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractTokenFromHeader(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}
		if id, err := tokens.ParseAccess(token); err == nil {
			SetUserID(c, id)
		}
		c.Next()
	}
}

// Required aborts with 401 unless Optional identified the caller.
func Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}

// SetUserID marks c as authenticated as id.
func SetUserID(c *gin.Context, id uint) {
	c.Set(userIDKey, id)
}

// UserID returns the authenticated caller, if any.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

func extractTokenFromHeader(header string) string {
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}
