package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ae97/panel/internal/session"
)

// Session loads the browser session into the context and writes it back,
// if it changed, just before the response headers go out.
func Session(store *session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := store.Load(c)
			c.Set(session.ContextKey, sess)
			c.Response().Before(func() {
				if sess.Dirty() {
					if err := store.Save(c, sess); err != nil {
						c.Logger().Errorf("session save: %v", err)
					}
				}
			})
			return next(c)
		}
	}
}

// SessionVerifier checks a session against the server-side session table.
type SessionVerifier interface {
	VerifySession(ctx context.Context, sess *session.Session) bool
}

const verifyTimeout = 5 * time.Second

// RequireSession rejects API calls that lack a valid panel session.
func RequireSession(v SessionVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), verifyTimeout)
			defer cancel()
			if !v.VerifySession(ctx, session.FromContext(c)) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "login required"})
			}
			return next(c)
		}
	}
}
