package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ArowuTest/bmd-member-registry/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SessionIDKey is the gin context key holding the authenticated session id
const SessionIDKey = "sessionID"

// SessionParser verifies a session token
type SessionParser interface {
	Parse(token string) (string, error)
}

var _ SessionParser = (*jwt.SessionTokenService)(nil)

// SessionAuthMiddleware requires a valid Bearer session token. Event streams
// may pass the token as ?token= since EventSource cannot set headers.
func SessionAuthMiddleware(tokens SessionParser, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const BearerSchema = "Bearer "
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		switch {
		case authHeader != "":
			if !strings.HasPrefix(authHeader, BearerSchema) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must start with Bearer "})
				return
			}
			tokenString = authHeader[len(BearerSchema):]
		case c.Query("token") != "":
			tokenString = c.Query("token")
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		sessionID, err := tokens.Parse(tokenString)
		if err != nil {
			logger.Warn().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("session token rejected")
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrInvalidToken) && strings.Contains(err.Error(), "expired") {
				msg = "Token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(SessionIDKey, sessionID)
		c.Next()
	}
}
