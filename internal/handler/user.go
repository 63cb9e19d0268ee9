package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ae97/panel/internal/repository"
)

// UserHandler lets a logged-in operator review accounts and approve them.
type UserHandler struct {
	Users    *repository.UserRepo
	Sessions *repository.SessionRepo
	Log      *zap.SugaredLogger
}

func NewUserHandler(users *repository.UserRepo, sessions *repository.SessionRepo, log *zap.SugaredLogger) *UserHandler {
	return &UserHandler{Users: users, Sessions: sessions, Log: log}
}

type approveReq struct {
	Approved *bool `json:"approved" form:"approved"`
}

// ListUsers: GET /api/users
func (h *UserHandler) ListUsers(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		h.Log.Errorw("user list failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, users)
}

// Approve: POST /api/users/:uuid/approve.  A body of {"approved": false}
// revokes approval and logs the account out.
func (h *UserHandler) Approve(c echo.Context) error {
	var req approveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	approved := req.Approved == nil || *req.Approved

	ctx, cancel := requestCtx(c)
	defer cancel()
	id := c.Param("uuid")
	err := h.Users.SetApproved(ctx, id, approved)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		h.Log.Errorw("user approval failed", "uuid", id, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if !approved {
		if err := h.Sessions.Delete(ctx, id); err != nil {
			h.Log.Errorw("session delete failed", "uuid", id, "err", err)
		}
	}
	u, err := h.Users.GetByUUID(ctx, id)
	if err != nil {
		h.Log.Errorw("user reload failed", "uuid", id, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	h.Log.Infow("user approval changed", "uuid", id, "approved", approved)
	return c.JSON(http.StatusOK, u)
}
