// Package session keeps per-browser panel state in a signed cookie.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/ae97/panel/internal/config"
)

// ContextKey is where the Session middleware stores the loaded *Session.
const ContextKey = "session"

// Session is the browser's view of who is logged in plus pending flash
// messages.  Holding a token does not make the session valid; the token must
// still match the server-side session row.
type Session struct {
	UserID  string   `json:"uuid,omitempty"`
	Token   string   `json:"session,omitempty"`
	Flashes []string `json:"flashes,omitempty"`

	dirty bool
}

func (s *Session) Authenticated() bool { return s.UserID != "" && s.Token != "" }

func (s *Session) Login(userID, token string) {
	s.UserID, s.Token = userID, token
	s.dirty = true
}

// Clear forgets the identity but keeps pending flashes.
func (s *Session) Clear() {
	s.UserID, s.Token = "", ""
	s.dirty = true
}

func (s *Session) AddFlash(msg string) {
	s.Flashes = append(s.Flashes, msg)
	s.dirty = true
}

// TakeFlashes returns and removes the pending flashes.
func (s *Session) TakeFlashes() []string {
	out := s.Flashes
	if len(out) > 0 {
		s.Flashes = nil
		s.dirty = true
	}
	return out
}

func (s *Session) Dirty() bool { return s.dirty }

type claims struct {
	Session
	jwt.RegisteredClaims
}

// Store signs sessions into an HS256 JWT cookie.
type Store struct {
	name   string
	secret []byte
	maxAge time.Duration
	secure bool
}

func NewStore(cfg config.SessionConfig) *Store {
	maxAge := time.Duration(cfg.MaxAge) * time.Second
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Store{name: cfg.Name, secret: []byte(cfg.Secret), maxAge: maxAge, secure: cfg.Secure}
}

func (st *Store) Name() string { return st.name }

func (st *Store) Encode(s *Session) (string, error) {
	now := time.Now()
	c := claims{
		Session: Session{UserID: s.UserID, Token: s.Token, Flashes: s.Flashes},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(st.maxAge)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(st.secret)
}

// Decode verifies the signature and expiry of raw.
func (st *Store) Decode(raw string) (*Session, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return st.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid session token")
	}
	return &Session{UserID: c.UserID, Token: c.Token, Flashes: c.Flashes}, nil
}

// Load returns the request's session.  A missing, tampered or expired cookie
// loads as an empty session.
func (st *Store) Load(c echo.Context) *Session {
	ck, err := c.Cookie(st.name)
	if err != nil || ck.Value == "" {
		return &Session{}
	}
	s, err := st.Decode(ck.Value)
	if err != nil {
		// drop the bad cookie on the next save
		return &Session{dirty: true}
	}
	return s
}

// Save writes s back to the response.  An empty session expires the cookie.
func (st *Store) Save(c echo.Context, s *Session) error {
	ck := &http.Cookie{
		Name:     st.name,
		Path:     "/",
		HttpOnly: true,
		Secure:   st.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !s.Authenticated() && len(s.Flashes) == 0 {
		ck.MaxAge = -1
		c.SetCookie(ck)
		s.dirty = false
		return nil
	}
	raw, err := st.Encode(s)
	if err != nil {
		return err
	}
	ck.Value = raw
	ck.MaxAge = int(st.maxAge / time.Second)
	c.SetCookie(ck)
	s.dirty = false
	return nil
}

// FromContext returns the session stored by the middleware, or a fresh
// empty one.
func FromContext(c echo.Context) *Session {
	if s, ok := c.Get(ContextKey).(*Session); ok && s != nil {
		return s
	}
	s := &Session{}
	c.Set(ContextKey, s)
	return s
}
