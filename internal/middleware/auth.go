// Package middleware holds gin middleware for the admin API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UIDKey is the gin context key holding the caller's Firebase uid.
const UIDKey = "uid"

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Auth requires a valid Firebase ID token in the Authorization header and
// stores its uid under UIDKey. With a nil verifier every request passes
// without a uid, which is how local runs disable auth.
func Auth(verifier TokenVerifier, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		idToken, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(idToken) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(idToken))
		if err != nil {
			log.WithError(err).Warn("rejected id token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UIDKey, token.UID)
		c.Next()
	}
}

// UID returns the authenticated uid, or "" when auth is disabled.
func UID(c *gin.Context) string {
	return c.GetString(UIDKey)
}
