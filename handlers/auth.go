package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests whose API key does not match the bcrypt hash.
// The key is read from X-API-Key or an "Authorization: Bearer" header.
func APIKeyAuth(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if key == "" {
			respondError(c, http.StatusUnauthorized, "MISSING_API_KEY", "API key is required")
			c.Abort()
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			respondError(c, http.StatusUnauthorized, "INVALID_API_KEY", "Invalid API key")
			c.Abort()
			return
		}
		c.Next()
	}
}
