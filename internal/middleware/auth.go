package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stwalsh4118/acreage/internal/logger"
)

// UserIDKey is the context key for the authenticated user ID.
const UserIDKey = "user_id"

var errMissingSubject = errors.New("token has no subject")

// Auth verifies an optional HS256 bearer token and stores its subject as the
// user ID. Requests without an Authorization header pass through
// unauthenticated; a malformed or invalid token is rejected with 401.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			rejectToken(c, errors.New("authorization header is not a bearer token"))
			return
		}

		var claims jwt.RegisteredClaims
		_, err := parser.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err == nil && claims.Subject == "" {
			err = errMissingSubject
		}
		if err != nil {
			rejectToken(c, err)
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Next()
	}
}

// GetUserID returns the authenticated user ID, or "" for anonymous requests.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func rejectToken(c *gin.Context, err error) {
	if log := GetLogger(c); log != nil {
		log.Warn("Rejected bearer token", logger.Fields{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		})
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":       "UNAUTHORIZED",
			"message":    "Invalid or expired token",
			"request_id": GetRequestID(c),
		},
	})
}
