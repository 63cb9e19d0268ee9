package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/ae97/panel/internal/session"
)

// userID returns the session's account uuid, or "anon" for guests.  It does
// not check the token, so it is only fit for bucketing.
func userID(c echo.Context) string {
	if s, ok := c.Get(session.ContextKey).(*session.Session); ok && s.UserID != "" {
		return s.UserID
	}
	return "anon"
}
