package core

import (
	"context"

	"github.com/gin-gonic/gin"
)

type actorCtxKey struct{}

// WithActor binds user as the current actor of ctx. The binding lives in the
// request's own context, so concurrent requests never share it.
func WithActor(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, user)
}

// CurrentActor returns the actor bound to ctx, if any.
func CurrentActor(ctx context.Context) (*User, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(actorCtxKey{}).(*User)
	return u, ok && u != nil
}

// ClearActor returns ctx with the actor binding masked.
func ClearActor(ctx context.Context) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, (*User)(nil))
}

// SetActor binds user to the request carried by c and returns a function that
// restores the request as it was. Callers must run the restore func when the
// request is done, error paths included, because gin recycles its contexts.
func SetActor(c *gin.Context, user *User) (restore func()) {
	orig := c.Request
	c.Request = orig.WithContext(WithActor(orig.Context(), user))
	return func() { c.Request = orig }
}

// ActorFrom returns the current actor of a gin request.
func ActorFrom(c *gin.Context) (*User, bool) {
	if c == nil || c.Request == nil {
		return nil, false
	}
	return CurrentActor(c.Request.Context())
}
