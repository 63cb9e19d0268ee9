package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ae97/panel/internal/config"
)

func newStore(secret string) *Store {
	return NewStore(config.SessionConfig{Name: "panelsession", Secret: secret, MaxAge: 3600})
}

func TestEncodeDecode(t *testing.T) {
	st := newStore("changeme")
	in := &Session{UserID: "u1", Token: "tok", Flashes: []string{"hello"}}
	raw, err := st.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := st.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out.UserID != "u1" || out.Token != "tok" || len(out.Flashes) != 1 || out.Flashes[0] != "hello" {
		t.Errorf("Decode = %+v", out)
	}
}

func TestDecodeRejectsOtherSecret(t *testing.T) {
	raw, err := newStore("one").Encode(&Session{UserID: "u1", Token: "tok"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := newStore("two").Decode(raw); err == nil {
		t.Error("expected signature failure")
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	st := newStore("changeme")
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	s := st.Load(c)
	if s.Authenticated() {
		t.Fatal("fresh session should not be authenticated")
	}
	s.Login("u1", "tok")
	s.AddFlash("welcome")
	if err := st.Save(c, s); err != nil {
		t.Fatal(err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "panelsession" || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	c2 := e.NewContext(req, httptest.NewRecorder())
	got := st.Load(c2)
	if !got.Authenticated() || got.UserID != "u1" {
		t.Errorf("reloaded session = %+v", got)
	}
	if fl := got.TakeFlashes(); len(fl) != 1 || fl[0] != "welcome" {
		t.Errorf("flashes = %v", fl)
	}
	if !got.Dirty() {
		t.Error("taking flashes should mark the session dirty")
	}
}

func TestLoadTamperedCookie(t *testing.T) {
	st := newStore("changeme")
	raw, _ := st.Encode(&Session{UserID: "u1", Token: "tok"})
	parts := strings.Split(raw, ".")
	parts[1] = parts[1] + "x"

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "panelsession", Value: strings.Join(parts, ".")})
	c := echo.New().NewContext(req, httptest.NewRecorder())
	s := st.Load(c)
	if s.Authenticated() {
		t.Error("tampered cookie must not authenticate")
	}
	if !s.Dirty() {
		t.Error("tampered cookie should be replaced on save")
	}
}

func TestSaveEmptyExpiresCookie(t *testing.T) {
	st := newStore("changeme")
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	s := &Session{UserID: "u1", Token: "tok"}
	s.Clear()
	if err := st.Save(c, s); err != nil {
		t.Fatal(err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("cookies = %+v, want expiring cookie", cookies)
	}
}

func TestClearKeepsFlashes(t *testing.T) {
	s := &Session{UserID: "u1", Token: "tok", Flashes: []string{"bye"}}
	s.Clear()
	if s.Authenticated() || len(s.Flashes) != 1 {
		t.Errorf("after Clear: %+v", s)
	}
}
