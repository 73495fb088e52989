// Package session carries the signed-in user through request handling
package session

import (
	"context"

	"github.com/gin-gonic/gin"
)

// User is the authenticated caller. IsAdmin is derived from configuration on
// every request and never read from the session token.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Image   string `json:"image"`
	IsAdmin bool   `json:"isAdmin"`
}

// DisplayName returns the user's name, or a placeholder when Discord sent none
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return "Unknown"
}

type contextKey struct{}

const ginKey = "session.user"

// WithUser returns a context carrying u
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the user stored by WithUser
func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextKey{}).(*User)
	return u, ok && u != nil
}

// Set attaches u to the gin context and to the request context
func Set(c *gin.Context, u *User) {
	c.Set(ginKey, u)
	c.Request = c.Request.WithContext(WithUser(c.Request.Context(), u))
}

// Get returns the user attached by Set
func Get(c *gin.Context) (*User, bool) {
	v, ok := c.Get(ginKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*User)
	return u, ok && u != nil
}

// MustGet returns the user attached by Set and panics if there is none.
// Only use it behind RequireSession.
func MustGet(c *gin.Context) *User {
	u, ok := Get(c)
	if !ok {
		panic("session: no user on context")
	}
	return u
}
