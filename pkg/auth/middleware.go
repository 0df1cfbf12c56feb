package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type contextKey string

const (
	tokenHeader            = "Authorization"
	tokenPrefix            = "Bearer "
	tokenQueryParam        = "token"
	identityKey            = "identity"
	IdentityKey contextKey = "identity"
)

// Middleware authenticates the request with a bearer token. Browsers cannot
// set headers on WebSocket upgrades, so the token query parameter is accepted
// as a fallback.
func Middleware(signer *Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}

		claims, err := signer.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		identity, err := claims.Identity()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			return
		}

		c.Set(identityKey, identity)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles. Must run after Middleware.
func RequireRole(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromGin(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

func extractToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(tokenHeader)
	if header == "" {
		if q := c.Query(tokenQueryParam); q != "" {
			return q, true
		}
		return "", false
	}
	if !strings.HasPrefix(header, tokenPrefix) {
		return "", false
	}
	return strings.TrimPrefix(header, tokenPrefix), true
}

// WithIdentity stores the identity in ctx.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// IdentityFromContext retrieves the identity from ctx.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(Identity)
	return identity, ok
}

// IdentityFromGin retrieves the identity set by Middleware.
func IdentityFromGin(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}
