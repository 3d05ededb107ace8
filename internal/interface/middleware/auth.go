package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ryowuandjanet/go-user-auth/pkg/response"
)

const CtxUserEmailKey = "userEmail"

// TokenVerifier checks an access token and returns its subject.
type TokenVerifier interface {
	Verify(token string, now time.Time) (string, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) (string, bool) {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Unauthorized writes a 401 envelope with the Bearer challenge header.
func Unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error[any](c, http.StatusUnauthorized, message, nil)
}

// RequireBearer only checks that a bearer token is present; it never looks
// inside it.
func RequireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := BearerToken(c); !ok {
			Unauthorized(c, "Not authenticated")
			return
		}
		c.Next()
	}
}

// Auth verifies the bearer token and sets the subject email in the Gin context.
func Auth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			Unauthorized(c, "Not authenticated")
			return
		}
		sub, err := v.Verify(token, time.Now())
		if err != nil {
			Unauthorized(c, "Could not validate credentials")
			return
		}
		c.Set(CtxUserEmailKey, sub)
		c.Next()
	}
}
