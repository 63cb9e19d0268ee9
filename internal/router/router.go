package router // package router wires the panel's HTTP surface onto echo

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/ae97/panel/internal/handler"
	"github.com/ae97/panel/internal/middleware"
	"github.com/ae97/panel/internal/session"
)

// Deps are the collaborators RegisterRoutes needs.  RateLimit and Cache may
// be nil, in which case requests pass straight through.
type Deps struct {
	Health    handler.HealthHandler
	Auth      *handler.AuthHandler
	Factoids  *handler.FactoidHandler
	Users     *handler.UserHandler
	Sessions  *session.Store
	Verifier  middleware.SessionVerifier
	Renderer  echo.Renderer
	RateLimit echo.MiddlewareFunc
	Cache     *middleware.ResponseCache
	WebRoot   string
	Log       *zap.SugaredLogger
}

// RegisterRoutes installs the global middleware, the /auth pages, the JSON
// API under /api and the single-page app on everything else.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.Renderer = d.Renderer
	e.Use(echomw.Recover())
	e.Use(echomw.Secure())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.Session(d.Sessions))

	e.GET("/healthz", d.Health.Health)

	limit := d.RateLimit
	if limit == nil {
		limit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	auth := e.Group("/auth")
	auth.GET("/login", d.Auth.LoginForm)
	auth.POST("/login", d.Auth.Login, limit)
	auth.GET("/logout", d.Auth.Logout)
	auth.GET("/register", d.Auth.RegisterForm)
	auth.POST("/register", d.Auth.Register, limit)
	auth.GET("/resetpw", d.Auth.ResetForm)
	auth.POST("/resetpw", d.Auth.RequestReset, limit)
	auth.GET("/verify", d.Auth.Verify)

	api := e.Group("/api")
	cached := d.Cache.Middleware()
	write := middleware.RequireSession(d.Verifier)
	api.GET("/games", d.Factoids.ListGames, cached)
	api.GET("/games/:slug", d.Factoids.GetDatabase, cached)
	api.POST("/games", d.Factoids.CreateGame, write)
	api.POST("/games/:slug/factoids", d.Factoids.CreateFactoid, write)
	api.GET("/factoids/:id", d.Factoids.GetFactoid)
	api.GET("/factoids/:id/game", d.Factoids.GetFactoidGame)
	api.PUT("/factoids/:id", d.Factoids.EditFactoid, write)
	api.POST("/factoids/:id/rename", d.Factoids.RenameFactoid, write)
	api.DELETE("/factoids/:id", d.Factoids.DeleteFactoid, write)
	api.GET("/users", d.Users.ListUsers, write)
	api.POST("/users/:uuid/approve", d.Users.Approve, write)
	api.Any("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	})

	e.Use(echomw.StaticWithConfig(echomw.StaticConfig{
		Root:  d.WebRoot,
		HTML5: true,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/healthz" || strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/auth/")
		},
	}))
}
