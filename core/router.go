package core

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// Route is one entry of the protected route table. Handler is built with
// Blocking or Suspending, so the execution model is fixed at registration.
type Route struct {
	Method  string
	Path    string
	Admin   bool
	Handler gin.HandlerFunc
}

// Console bundles what the HTTP surface needs.
type Console struct {
	Config    Config
	Sessions  *sessions.CookieStore
	Auth      AuthService
	Guard     *AccessGuard
	Directory *UserDirectory

	InstanceID string
	StartedAt  time.Time
}

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(app Console) *gin.Engine {
	cfg := app.Config
	r := gin.Default()

	// Global middleware: origin/CORS -> session -> CSRF
	r.Use(OriginRefererMiddleware(cfg))
	r.Use(SessionMiddleware(cfg, app.Sessions))
	r.Use(CSRFMiddleware(cfg, app.Sessions))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET(cfg.LoginPath, func(c *gin.Context) {
		next := sanitizeNext(c.Query("next"))
		if _, err := app.Guard.Authenticate(c); err == nil {
			c.Redirect(http.StatusFound, landingTarget(cfg, next))
			return
		}
		c.JSON(http.StatusOK, gin.H{"next": next, "message": popFlash(c, cfg)})
	})

	r.POST(cfg.LoginPath, func(c *gin.Context) {
		username := strings.TrimSpace(c.PostForm("username"))
		password := c.PostForm("password")
		next := sanitizeNext(c.PostForm("next"))
		if username == "" {
			addFlash(c, cfg, "please enter a username")
			c.Redirect(http.StatusSeeOther, loginTarget(cfg, next))
			return
		}

		token, err := app.Auth.Login(c.Request.Context(), username, password)
		if err != nil || token == "" {
			log.Printf("login failed user=%s ip=%s", username, c.ClientIP())
			addFlash(c, cfg, "invalid username or password")
			c.Redirect(http.StatusSeeOther, loginTarget(cfg, next))
			return
		}

		c.SetSameSite(sameSiteFromString(cfg.CookieSameSite))
		c.SetCookie(AccessTokenCookie, bearerScheme+" "+token, int(cfg.TokenWindow.Seconds()), "/", "", cfg.CookieSecure, true)
		log.Printf("login ok user=%s ip=%s", username, c.ClientIP())
		c.Redirect(http.StatusFound, landingTarget(cfg, next))
	})

	// Only the client-held carrier is dropped; the credential itself stays
	// verifiable until it expires.
	r.POST("/logout", func(c *gin.Context) {
		c.SetSameSite(sameSiteFromString(cfg.CookieSameSite))
		c.SetCookie(AccessTokenCookie, "", -1, "/", "", cfg.CookieSecure, true)
		c.JSON(http.StatusOK, gin.H{"code": 0, "message": "Logout successful"})
	})

	protected := r.Group("/", app.Guard.Middleware())
	for _, rt := range consoleRoutes(app) {
		handlers := []gin.HandlerFunc{rt.Handler}
		if rt.Admin {
			handlers = []gin.HandlerFunc{AdminOnly(), rt.Handler}
		}
		protected.Handle(rt.Method, rt.Path, handlers...)
	}

	return r
}

func consoleRoutes(app Console) []Route {
	dir := app.Directory
	return []Route{
		{Method: http.MethodGet, Path: app.Config.LandingPath, Handler: Blocking(func(c *gin.Context) {
			u, _ := ActorFrom(c)
			c.JSON(http.StatusOK, gin.H{
				"current_user": u,
				"admin":        u.IsAdmin(),
				"menus":        u.Menus(),
				"next":         c.Query("next"),
			})
		})},
		{Method: http.MethodGet, Path: "/api/v1/users/me", Handler: Suspending(func(ctx context.Context, _ *http.Request) (Reply, error) {
			u, ok := CurrentActor(ctx)
			if !ok {
				return Reply{}, errors.New("no current actor")
			}
			return Reply{Body: gin.H{"user": u, "admin": u.IsAdmin()}}, nil
		})},
		{Method: http.MethodGet, Path: "/api/v1/admin/users", Admin: true, Handler: Suspending(func(ctx context.Context, _ *http.Request) (Reply, error) {
			users, err := dir.List(ctx)
			if err != nil {
				return Reply{}, err
			}
			return Reply{Body: gin.H{"items": users, "total_items": len(users)}}, nil
		})},
		{Method: http.MethodGet, Path: "/api/v1/admin/status", Admin: true, Handler: Suspending(func(ctx context.Context, _ *http.Request) (Reply, error) {
			return Reply{Body: CollectConsoleStatus(ctx, dir, app.Config.UserStore, app.InstanceID, app.StartedAt)}, nil
		})},
		{Method: http.MethodPost, Path: "/api/v1/admin/users", Admin: true, Handler: Suspending(func(ctx context.Context, req *http.Request) (Reply, error) {
			var body struct {
				Username    string `json:"username"`
				Password    string `json:"password"`
				Permissions string `json:"permissions"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				return Reply{Status: http.StatusBadRequest, Body: gin.H{"code": 1, "message": "invalid json"}}, nil
			}
			if err := dir.Add(ctx, body.Username, body.Password, body.Permissions); err != nil {
				return Reply{Body: gin.H{"code": 1, "message": directoryMessage(err)}}, nil
			}
			return Reply{Status: http.StatusCreated, Body: gin.H{"code": 0}}, nil
		})},
		{Method: http.MethodDelete, Path: "/api/v1/admin/users/:username", Admin: true, Handler: Blocking(func(c *gin.Context) {
			if err := dir.Remove(c.Request.Context(), c.Param("username")); err != nil {
				c.JSON(http.StatusOK, gin.H{"code": 1, "message": directoryMessage(err)})
				return
			}
			c.JSON(http.StatusOK, gin.H{"code": 0})
		})},
	}
}

func directoryMessage(err error) string {
	if errors.Is(err, ErrBootstrapAccount) {
		return "bootstrap accounts cannot be changed"
	}
	return "user store rejected the change"
}

func landingTarget(cfg Config, next string) string {
	if next != "" {
		return next
	}
	return cfg.LandingPath
}

func loginTarget(cfg Config, next string) string {
	if next == "" {
		return cfg.LoginPath
	}
	return cfg.LoginPath + "?next=" + url.QueryEscape(next)
}
