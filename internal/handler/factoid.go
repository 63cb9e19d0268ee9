package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ae97/panel/internal/apperr"
	"github.com/ae97/panel/internal/repository"
)

// Purger drops cached API responses after a write.
type Purger interface {
	Purge(ctx context.Context) error
}

// FactoidHandler exposes the factoid repository as the JSON API used by the
// single-page app.
type FactoidHandler struct {
	Factoids *repository.FactoidRepo
	Cache    Purger
	Log      *zap.SugaredLogger
}

func NewFactoidHandler(f *repository.FactoidRepo, cache Purger, log *zap.SugaredLogger) *FactoidHandler {
	return &FactoidHandler{Factoids: f, Cache: cache, Log: log}
}

type gameReq struct {
	IDName      string `json:"idname" form:"idname"`
	DisplayName string `json:"displayname" form:"displayname"`
}

type factoidReq struct {
	Name    string `json:"name" form:"name"`
	Content string `json:"content" form:"content"`
}

func writeErr(c echo.Context, err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	status := http.StatusInternalServerError
	switch ae.Kind {
	case apperr.ValidationFailed:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ae.Message, "failures": ae.Failures})
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Unauthorized:
		status = http.StatusUnauthorized
	case apperr.Conflict:
		status = http.StatusConflict
	}
	return c.JSON(status, echo.Map{"error": ae.Message})
}

func paramID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *FactoidHandler) purge(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(ctx); err != nil {
		h.Log.Warnw("cache purge failed", "err", err)
	}
}

// ListGames: GET /api/games
func (h *FactoidHandler) ListGames(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	return c.JSON(http.StatusOK, h.Factoids.GetDatabaseNames(ctx))
}

// GetDatabase: GET /api/games/:slug
func (h *FactoidHandler) GetDatabase(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	return c.JSON(http.StatusOK, h.Factoids.GetDatabase(ctx, c.Param("slug")))
}

// CreateGame: POST /api/games
func (h *FactoidHandler) CreateGame(c echo.Context) error {
	var req gameReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	ok, err := h.Factoids.CreateDatabase(ctx, req.IDName, req.DisplayName)
	if err != nil {
		return writeErr(c, err)
	}
	if !ok {
		return c.JSON(http.StatusConflict, echo.Map{"error": "game could not be created"})
	}
	h.purge(ctx)
	return c.NoContent(http.StatusCreated)
}

// CreateFactoid: POST /api/games/:slug/factoids
func (h *FactoidHandler) CreateFactoid(c echo.Context) error {
	var req factoidReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	ok, err := h.Factoids.CreateFactoid(ctx, c.Param("slug"), req.Name, req.Content)
	if err != nil {
		return writeErr(c, err)
	}
	if !ok {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "factoid could not be created"})
	}
	h.purge(ctx)
	return c.NoContent(http.StatusCreated)
}

// GetFactoid: GET /api/factoids/:id
func (h *FactoidHandler) GetFactoid(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	f, err := h.Factoids.GetFactoid(ctx, id)
	if err != nil {
		return writeErr(c, err)
	}
	if f == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "factoid not found"})
	}
	return c.JSON(http.StatusOK, f)
}

// GetFactoidGame: GET /api/factoids/:id/game.  Id 0 lists every game.
func (h *FactoidHandler) GetFactoidGame(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	games, err := h.Factoids.GetGame(ctx, id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, games)
}

// EditFactoid: PUT /api/factoids/:id
func (h *FactoidHandler) EditFactoid(c echo.Context) error {
	return h.update(c, func(ctx context.Context, id int64, req factoidReq) (bool, error) {
		return h.Factoids.EditFactoid(ctx, id, req.Content)
	})
}

// RenameFactoid: POST /api/factoids/:id/rename
func (h *FactoidHandler) RenameFactoid(c echo.Context) error {
	return h.update(c, func(ctx context.Context, id int64, req factoidReq) (bool, error) {
		return h.Factoids.RenameFactoid(ctx, id, req.Name)
	})
}

// DeleteFactoid: DELETE /api/factoids/:id
func (h *FactoidHandler) DeleteFactoid(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	deleted, err := h.Factoids.DeleteFactoid(ctx, id)
	if err != nil {
		return writeErr(c, err)
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "factoid not found"})
	}
	h.purge(ctx)
	return c.NoContent(http.StatusNoContent)
}

func (h *FactoidHandler) update(c echo.Context, fn func(context.Context, int64, factoidReq) (bool, error)) error {
	id, ok := paramID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req factoidReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	changed, err := fn(ctx, id, req)
	if err != nil {
		return writeErr(c, err)
	}
	if !changed {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "factoid not found"})
	}
	h.purge(ctx)
	return c.NoContent(http.StatusNoContent)
}
