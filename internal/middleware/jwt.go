package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/justnotes/internal/pkg/errcode"
	"github.com/xxxsen/justnotes/internal/pkg/jwt"
	"github.com/xxxsen/justnotes/internal/pkg/response"
	"github.com/xxxsen/justnotes/internal/session"
)

const (
	ContextSessionKey = "session"
	ContextEmailKey   = "user_email"
)

type SessionResolver interface {
	Resolve(sessionID string) (*session.Session, error)
}

// SessionAuth accepts a bearer token, or a token query parameter for
// clients that cannot set headers (EventSource).
func SessionAuth(secret []byte, resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			response.Error(c, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(raw, secret)
		if err != nil {
			response.Error(c, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		sess, err := resolver.Resolve(claims.SessionID())
		if err != nil {
			response.Error(c, errcode.ErrUnauthorized, "session expired")
			c.Abort()
			return
		}
		c.Set(ContextSessionKey, sess)
		c.Set(ContextEmailKey, sess.Principal.Email)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		token := c.Query("token")
		return token, token != ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func GetSession(c *gin.Context) *session.Session {
	value, _ := c.Get(ContextSessionKey)
	sess, _ := value.(*session.Session)
	return sess
}

func GetEmail(c *gin.Context) string {
	value, _ := c.Get(ContextEmailKey)
	email, _ := value.(string)
	return email
}
