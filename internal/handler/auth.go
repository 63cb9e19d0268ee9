package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ae97/panel/internal/apperr"
	"github.com/ae97/panel/internal/service"
	"github.com/ae97/panel/internal/session"
	"github.com/ae97/panel/internal/view"
)

// AuthHandler serves the server-rendered /auth pages.
type AuthHandler struct {
	Auth *service.AuthService
	Log  *zap.SugaredLogger
}

func NewAuthHandler(a *service.AuthService, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{Auth: a, Log: log}
}

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

func (h *AuthHandler) render(c echo.Context, status int, page, title, redirect string) error {
	sess := session.FromContext(c)
	return c.Render(status, page, view.Page{
		Title:    title,
		Action:   page,
		Flashes:  sess.TakeFlashes(),
		Redirect: redirect,
	})
}

// fail flashes err and sends the browser back to the form at back.
func (h *AuthHandler) fail(c echo.Context, err error, back string) error {
	sess := session.FromContext(c)
	var ae *apperr.Error
	known := errors.As(err, &ae)
	switch {
	case known && len(ae.Failures) > 0:
		for _, f := range ae.Failures {
			sess.AddFlash("Error: " + f.Message)
		}
	case known || errors.Is(err, service.ErrInternal):
		sess.AddFlash("Error: " + err.Error())
	default:
		h.Log.Errorw("unexpected auth error", "path", c.Path(), "err", err)
		sess.AddFlash("Error: " + service.ErrInternal.Error())
	}
	return c.Redirect(http.StatusFound, back)
}

func (h *AuthHandler) LoginForm(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if h.Auth.VerifySession(ctx, session.FromContext(c)) {
		return c.Redirect(http.StatusFound, "/")
	}
	return h.render(c, http.StatusOK, "login", "Login", localPath(c.QueryParam("redirect")))
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	sess := session.FromContext(c)
	if err := h.Auth.Login(ctx, sess, c.FormValue("email"), c.FormValue("password")); err != nil {
		return h.fail(c, err, "/auth/login")
	}
	return c.Redirect(http.StatusFound, localPath(c.FormValue("redirect")))
}

// Logout renders the logout page with a 302 to the panel root.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	sess := session.FromContext(c)
	if !h.Auth.VerifySession(ctx, sess) {
		return c.Redirect(http.StatusFound, "/")
	}
	h.Auth.Logout(ctx, sess)
	c.Response().Header().Set(echo.HeaderLocation, "/")
	return h.render(c, http.StatusFound, "logout", "Logout", "")
}

func (h *AuthHandler) RegisterForm(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if h.Auth.VerifySession(ctx, session.FromContext(c)) {
		return c.Redirect(http.StatusFound, "/")
	}
	return h.render(c, http.StatusOK, "register", "Register", "")
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	err := h.Auth.Register(ctx, service.RegisterInput{
		Username:       strings.TrimSpace(c.FormValue("username")),
		Email:          strings.TrimSpace(c.FormValue("email")),
		EmailVerify:    strings.TrimSpace(c.FormValue("email-verify")),
		Password:       c.FormValue("password"),
		PasswordVerify: c.FormValue("password-verify"),
	})
	if err != nil {
		return h.fail(c, err, "/auth/register")
	}
	session.FromContext(c).AddFlash(service.MsgRegistered)
	return c.Redirect(http.StatusFound, "/auth/login")
}

// ResetForm shows the reset request form, or completes a reset when the
// emailed uuid and resetkey are present.
func (h *AuthHandler) ResetForm(c echo.Context) error {
	uuid, key := c.QueryParam("uuid"), c.QueryParam("resetkey")
	if uuid == "" || key == "" {
		return h.render(c, http.StatusOK, "resetpw", "Reset password", "")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Auth.ResetPassword(ctx, uuid, key); err != nil {
		return h.fail(c, err, "/auth/resetpw")
	}
	session.FromContext(c).AddFlash(service.MsgPasswordMailed)
	return c.Redirect(http.StatusFound, "/auth/login")
}

func (h *AuthHandler) RequestReset(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Auth.RequestPasswordReset(ctx, strings.TrimSpace(c.FormValue("email"))); err != nil {
		return h.fail(c, err, "/auth/resetpw")
	}
	session.FromContext(c).AddFlash(service.MsgResetSent)
	return c.Redirect(http.StatusFound, "/auth/login")
}

// Verify always lands on the login page, flashing the outcome.
func (h *AuthHandler) Verify(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Auth.VerifyEmail(ctx, c.QueryParam("email"), c.QueryParam("key")); err != nil {
		return h.fail(c, err, "/auth/login")
	}
	session.FromContext(c).AddFlash(service.MsgVerified)
	return c.Redirect(http.StatusFound, "/auth/login")
}

// localPath keeps post-login redirects on this site.
func localPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}
