package middleware

import (
	"context"
	"net/http"

	"screamlink/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"

// SessionHandleKey is the session entry holding the signed-in handle.
const SessionHandleKey = "user_handle"

// UserLoader resolves a session handle to a user.
type UserLoader interface {
	Get(ctx context.Context, handle string) (*models.User, error)
}

// AuthRequired rejects requests without a loaded user
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// LoadUser retrieves user from session and sets to context
func LoadUser(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if handle, ok := session.Get(SessionHandleKey).(string); ok && handle != "" {
			user, err := users.Get(c.Request.Context(), handle)
			if err == nil {
				c.Set(CheckUserKey, user)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the signed-in user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CheckUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// SignIn stores handle in the session.
func SignIn(c *gin.Context, handle string) error {
	session := sessions.Default(c)
	session.Set(SessionHandleKey, handle)
	return session.Save()
}

func SignOut(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}
