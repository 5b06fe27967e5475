package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// AccessTokenCookie carries "Bearer <token>".
	AccessTokenCookie = "access_token"
	bearerScheme      = "Bearer"
	defaultLoginPath  = "/login"
)

var errMissingCarrier = errors.New("missing credential carrier")

// AccessGuard admits a request only when its carrier verifies and the
// subject resolves in the directory. The actor is bound for the duration of
// the handler and unbound afterwards.
type AccessGuard struct {
	tokens    *TokenService
	directory *UserDirectory
	loginPath string
}

// GuardOption customises an AccessGuard.
type GuardOption func(*AccessGuard)

// WithLoginPath sets the redirect target for rejected requests.
func WithLoginPath(path string) GuardOption {
	return func(g *AccessGuard) {
		if path != "" {
			g.loginPath = path
		}
	}
}

func NewAccessGuard(tokens *TokenService, directory *UserDirectory, opts ...GuardOption) *AccessGuard {
	g := &AccessGuard{tokens: tokens, directory: directory, loginPath: defaultLoginPath}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate resolves the actor from the request carrier without touching
// the response.
func (g *AccessGuard) Authenticate(c *gin.Context) (*User, error) {
	raw, err := c.Cookie(AccessTokenCookie)
	if err != nil || raw == "" {
		return nil, errMissingCarrier
	}
	scheme, token, ok := strings.Cut(raw, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return nil, ErrInvalidToken
	}
	subject, err := g.tokens.Verify(strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	return g.directory.Resolve(c.Request.Context(), subject)
}

// admit runs the checks and either returns the actor or ends the request.
func (g *AccessGuard) admit(c *gin.Context) (*User, bool) {
	user, err := g.Authenticate(c)
	if err != nil {
		if !errors.Is(err, errMissingCarrier) {
			log.Printf("access denied path=%s reason=%v", c.Request.URL.Path, err)
		}
		g.redirectToLogin(c)
		return nil, false
	}
	// Client went away while we were resolving: abandon without side effects.
	if c.Request.Context().Err() != nil {
		c.Abort()
		return nil, false
	}
	return user, true
}

// Protect wraps a single handler with the guard contract.
func (g *AccessGuard) Protect(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := g.admit(c)
		if !ok {
			return
		}
		restore := SetActor(c, user)
		defer restore()
		h(c)
	}
}

// Middleware applies the guard contract to every handler behind it.
func (g *AccessGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := g.admit(c)
		if !ok {
			return
		}
		restore := SetActor(c, user)
		defer restore()
		c.Next()
	}
}

func (g *AccessGuard) redirectToLogin(c *gin.Context) {
	target := g.loginPath
	if next := c.Request.URL.RequestURI(); next != "" && next != "/" && c.Request.URL.Path != g.loginPath {
		target += "?next=" + url.QueryEscape(next)
	}
	status := http.StatusSeeOther
	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
		status = http.StatusFound
	}
	c.Redirect(status, target)
	c.Abort()
}

// Reply is what a suspending handler hands back to be written on the
// serving goroutine.
type Reply struct {
	Status   int
	Body     any
	Location string
}

// TaskHandler runs detached from the gin context. ctx carries the actor and
// is cancelled when the client goes away.
type TaskHandler func(ctx context.Context, req *http.Request) (Reply, error)

// Blocking registers a handler that runs to completion on the serving goroutine.
func Blocking(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Context().Err() != nil {
			c.Abort()
			return
		}
		h(c)
	}
}

type taskResult struct {
	reply Reply
	err   error
}

// Suspending registers a handler that runs as its own task. The serving
// goroutine waits for its reply or for the request to be cancelled.
func Suspending(h TaskHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if ctx.Err() != nil {
			c.Abort()
			return
		}
		req := c.Request.Clone(ctx)
		done := make(chan taskResult, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- taskResult{err: fmt.Errorf("task panic: %v", r)}
				}
			}()
			reply, err := h(ctx, req)
			done <- taskResult{reply: reply, err: err}
		}()

		select {
		case <-ctx.Done():
			c.Abort()
		case res := <-done:
			writeReply(c, res)
		}
	}
}

func writeReply(c *gin.Context, res taskResult) {
	if res.err != nil {
		log.Printf("task failed path=%s: %v", c.Request.URL.Path, res.err)
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal error")
		return
	}
	r := res.reply
	if r.Location != "" {
		status := r.Status
		if status == 0 {
			status = http.StatusFound
		}
		c.Redirect(status, r.Location)
		return
	}
	if r.Status == 0 {
		r.Status = http.StatusOK
	}
	if r.Body == nil {
		c.Status(r.Status)
		return
	}
	c.JSON(r.Status, r.Body)
}
