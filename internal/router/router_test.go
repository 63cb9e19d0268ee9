package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/ae97/panel/internal/config"
	"github.com/ae97/panel/internal/handler"
	"github.com/ae97/panel/internal/middleware"
	"github.com/ae97/panel/internal/model"
	"github.com/ae97/panel/internal/repository"
	"github.com/ae97/panel/internal/service"
	"github.com/ae97/panel/internal/session"
	"github.com/ae97/panel/internal/testutil"
	"github.com/ae97/panel/internal/utils"
	"github.com/ae97/panel/internal/view"
)

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := testutil.Logger()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>panel app</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	hash, err := utils.HashPassword("hunter22", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	users := repository.NewUserRepo(db)
	if err := users.Create(context.Background(), model.User{UUID: "uuid-1", Username: "dev", Email: "dev@ae97.net", Password: hash, Verified: true, Approved: true}); err != nil {
		t.Fatal(err)
	}

	sessions := repository.NewSessionRepo(db)
	auth := service.NewAuthService(users, sessions, repository.NewVerificationRepo(db), repository.NewResetRepo(db),
		&testutil.RecordingSender{},
		service.AuthConfig{SiteURL: "http://localhost", MailDomain: "localhost", MailFrom: "noreply@localhost", BcryptCost: bcrypt.MinCost},
		log)
	renderer, err := view.New()
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	RegisterRoutes(e, Deps{
		Health:   handler.HealthHandler{DB: db},
		Auth:     handler.NewAuthHandler(auth, log),
		Factoids: handler.NewFactoidHandler(repository.NewFactoidRepo(db, log), nil, log),
		Users:    handler.NewUserHandler(users, sessions, log),
		Sessions: session.NewStore(config.SessionConfig{Name: "panelsession", Secret: "test-secret", MaxAge: 3600}),
		Verifier: auth,
		Renderer: renderer,
		Cache:    (*middleware.ResponseCache)(nil),
		WebRoot:  root,
		Log:      log,
	})
	return e
}

func serve(e *echo.Echo, method, target, body, contentType string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndFallbacks(t *testing.T) {
	e := newServer(t)

	if rec := serve(e, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body)
	}
	if rec := serve(e, http.MethodGet, "/games/retro", "", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "panel app") {
		t.Errorf("spa route = %d %q", rec.Code, rec.Body)
	}
	rec := serve(e, http.MethodGet, "/api/nothing", "", "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Header().Get(echo.HeaderContentType), "json") {
		t.Errorf("unknown api route = %d %q", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}
	if rec := serve(e, http.MethodGet, "/auth/login", "", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `action="/auth/login"`) {
		t.Errorf("login page = %d", rec.Code)
	}
}

func TestWritesNeedALogin(t *testing.T) {
	e := newServer(t)
	game := `{"idname":"global","displayname":"Global"}`

	if rec := serve(e, http.MethodPost, "/api/games", game, echo.MIMEApplicationJSON); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create = %d, want 401", rec.Code)
	}

	form := url.Values{"email": {"dev@ae97.net"}, "password": {"hunter22"}}.Encode()
	rec := serve(e, http.MethodPost, "/auth/login", form, echo.MIMEApplicationForm)
	if rec.Code != http.StatusFound {
		t.Fatalf("login = %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "panelsession" {
		t.Fatalf("login cookies = %+v", cookies)
	}

	if rec := serve(e, http.MethodPost, "/api/games", game, echo.MIMEApplicationJSON, cookies[0]); rec.Code != http.StatusCreated {
		t.Fatalf("create with session = %d %s", rec.Code, rec.Body)
	}
	rec = serve(e, http.MethodGet, "/api/games", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"idname":"global"`) {
		t.Errorf("list games = %d %s", rec.Code, rec.Body)
	}

	serve(e, http.MethodGet, "/auth/logout", "", "", cookies[0])
	if rec := serve(e, http.MethodPost, "/api/games", `{"idname":"retro"}`, echo.MIMEApplicationJSON, cookies[0]); rec.Code != http.StatusUnauthorized {
		t.Errorf("create with revoked session = %d, want 401", rec.Code)
	}
}

func TestUserApprovalNeedsALogin(t *testing.T) {
	e := newServer(t)

	if rec := serve(e, http.MethodGet, "/api/users", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous list = %d, want 401", rec.Code)
	}
	if rec := serve(e, http.MethodPost, "/api/users/uuid-1/approve", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous approve = %d, want 401", rec.Code)
	}

	form := url.Values{"email": {"dev@ae97.net"}, "password": {"hunter22"}}.Encode()
	cookies := serve(e, http.MethodPost, "/auth/login", form, echo.MIMEApplicationForm).Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("login cookies = %+v", cookies)
	}
	rec := serve(e, http.MethodGet, "/api/users", "", "", cookies[0])
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"uuid":"uuid-1"`) {
		t.Errorf("list = %d %s", rec.Code, rec.Body)
	}
	if rec := serve(e, http.MethodPost, "/api/users/uuid-1/approve", "", "", cookies[0]); rec.Code != http.StatusOK {
		t.Errorf("approve = %d %s", rec.Code, rec.Body)
	}
}
