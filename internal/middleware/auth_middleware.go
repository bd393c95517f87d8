package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmanager/internal/auth"
)

// IdentityKey is the gin context key holding the resolved auth.Identity.
const IdentityKey = "identity"

// TokenVerifier is satisfied by *auth.TokenService.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// OptionalAuth attaches the caller identity when a valid bearer token is
// present. Missing, malformed, invalid or expired tokens leave the request
// anonymous; the request is never aborted.
func OptionalAuth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := auth.BearerToken(c.GetHeader("Authorization")); ok {
			if identity, err := tokens.Verify(token); err == nil {
				c.Set(IdentityKey, identity)
			}
		}
		c.Next()
	}
}

// RequireAuth aborts with 401 unless a valid bearer token is present.
func RequireAuth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing token"})
			return
		}

		identity, err := tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the identity set by OptionalAuth or RequireAuth,
// or nil for an anonymous request.
func IdentityFrom(c *gin.Context) *auth.Identity {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return nil
	}
	identity, ok := v.(auth.Identity)
	if !ok {
		return nil
	}
	return &identity
}
