package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ae97/panel/internal/apperr"
	"github.com/ae97/panel/internal/model"
	"github.com/ae97/panel/internal/repository"
	"github.com/ae97/panel/internal/testutil"
)

type countingPurger struct{ n int }

func (p *countingPurger) Purge(context.Context) error { p.n++; return nil }

func newFactoidHandler(t *testing.T) (*FactoidHandler, *countingPurger) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	p := &countingPurger{}
	h := NewFactoidHandler(repository.NewFactoidRepo(db, testutil.Logger()), p, testutil.Logger())
	return h, p
}

func call(t *testing.T, fn echo.HandlerFunc, method, body string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(append(c.ParamNames(), params[i])...)
		c.SetParamValues(append(c.ParamValues(), params[i+1])...)
	}
	if err := fn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestFactoidAPI(t *testing.T) {
	h, purger := newFactoidHandler(t)

	if rec := call(t, h.CreateGame, http.MethodPost, `{"idname":"global","displayname":"Global"}`); rec.Code != http.StatusCreated {
		t.Fatalf("CreateGame status = %d: %s", rec.Code, rec.Body)
	}
	if rec := call(t, h.CreateGame, http.MethodPost, `{"idname":"global"}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate CreateGame status = %d, want 409", rec.Code)
	}
	if rec := call(t, h.CreateFactoid, http.MethodPost, `{"name":"hello","content":"world"}`, "slug", "global"); rec.Code != http.StatusCreated {
		t.Fatalf("CreateFactoid status = %d: %s", rec.Code, rec.Body)
	}
	if rec := call(t, h.CreateFactoid, http.MethodPost, `{"name":"hello","content":"world"}`, "slug", "nope"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("CreateFactoid on unknown game status = %d, want 422", rec.Code)
	}

	rec := call(t, h.GetDatabase, http.MethodGet, "", "slug", "global")
	var db struct {
		GameRequest model.Game      `json:"gamerequest"`
		Factoids    []model.Factoid `json:"factoids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &db); err != nil {
		t.Fatalf("decode database: %v (%s)", err, rec.Body)
	}
	if db.GameRequest.IDName != "global" || len(db.Factoids) != 1 {
		t.Fatalf("database = %+v", db)
	}
	id := db.Factoids[0].ID
	sid := jsonID(id)

	if rec := call(t, h.EditFactoid, http.MethodPut, `{"content":"moon"}`, "id", sid); rec.Code != http.StatusNoContent {
		t.Errorf("EditFactoid status = %d", rec.Code)
	}
	if rec := call(t, h.RenameFactoid, http.MethodPost, `{"name":"greeting"}`, "id", sid); rec.Code != http.StatusNoContent {
		t.Errorf("RenameFactoid status = %d", rec.Code)
	}

	rec = call(t, h.GetFactoid, http.MethodGet, "", "id", sid)
	var f model.Factoid
	if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
		t.Fatal(err)
	}
	if f.Name != "greeting" || f.Content != "moon" || f.Game != "Global" {
		t.Errorf("factoid = %+v", f)
	}

	rec = call(t, h.GetFactoidGame, http.MethodGet, "", "id", sid)
	if !strings.Contains(rec.Body.String(), `"global"`) {
		t.Errorf("GetFactoidGame body = %s", rec.Body)
	}

	rec = call(t, h.GetFactoidGame, http.MethodGet, "", "id", "0")
	if !strings.HasPrefix(rec.Body.String(), `[{"id":"global"`) {
		t.Errorf("GetFactoidGame(0) body = %s", rec.Body)
	}

	if rec := call(t, h.DeleteFactoid, http.MethodDelete, "", "id", sid); rec.Code != http.StatusNoContent {
		t.Errorf("DeleteFactoid status = %d", rec.Code)
	}
	if rec := call(t, h.DeleteFactoid, http.MethodDelete, "", "id", sid); rec.Code != http.StatusNotFound {
		t.Errorf("second DeleteFactoid status = %d, want 404", rec.Code)
	}
	if rec := call(t, h.GetFactoid, http.MethodGet, "", "id", sid); rec.Code != http.StatusNotFound {
		t.Errorf("GetFactoid after delete status = %d, want 404", rec.Code)
	}

	// two games, one factoid, edit, rename, delete
	if purger.n != 5 {
		t.Errorf("cache purged %d times, want 5", purger.n)
	}
}

func TestFactoidAPIRejectsBadInput(t *testing.T) {
	h, purger := newFactoidHandler(t)

	for _, id := range []string{"abc", "0", "-3"} {
		if rec := call(t, h.GetFactoid, http.MethodGet, "", "id", id); rec.Code != http.StatusBadRequest {
			t.Errorf("GetFactoid(%q) status = %d, want 400", id, rec.Code)
		}
	}
	rec := call(t, h.CreateFactoid, http.MethodPost, `{"name":"","content":"x"}`, "slug", "global")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "failures") {
		t.Errorf("CreateFactoid without name = %d %s", rec.Code, rec.Body)
	}
	if rec := call(t, h.EditFactoid, http.MethodPut, `{"content":"x"}`, "id", "99"); rec.Code != http.StatusNotFound {
		t.Errorf("EditFactoid(missing) status = %d, want 404", rec.Code)
	}
	if purger.n != 0 {
		t.Errorf("failed writes purged the cache %d times", purger.n)
	}
}

func TestWriteErrStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.New(apperr.NotFound, "x"), http.StatusNotFound},
		{apperr.New(apperr.Unauthorized, "x"), http.StatusUnauthorized},
		{apperr.New(apperr.Conflict, "x"), http.StatusConflict},
		{apperr.Invalid([]apperr.Failure{{Field: "id", Message: "bad"}}), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := call(t, func(c echo.Context) error { return writeErr(c, tt.err) }, http.MethodGet, "")
		if rec.Code != tt.want {
			t.Errorf("writeErr(%v) = %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
