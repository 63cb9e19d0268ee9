package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ae97/panel/internal/apperr"
	"github.com/ae97/panel/internal/mail"
	"github.com/ae97/panel/internal/model"
	"github.com/ae97/panel/internal/repository"
	"github.com/ae97/panel/internal/session"
	"github.com/ae97/panel/internal/utils"
	"github.com/ae97/panel/internal/validate"
)

// Flash messages for successful flows.
const (
	MsgRegistered     = "Your account has been created, an email has been sent to verify"
	MsgResetSent      = "Your reset link has been emailed to you"
	MsgPasswordMailed = "Your new password has been emailed to you"
	MsgVerified       = "Your email has been verified"
)

// ErrInternal is what callers see when storage or mail fails.  The cause
// is logged, never shown.
var ErrInternal = errors.New("Something went wrong, please try again later")

const invalidCredentials = "Invalid email or password"

type AuthConfig struct {
	SiteURL    string // absolute base used in emailed links
	MailDomain string
	MailFrom   string // bare address
	BcryptCost int
	// Admins are approved as soon as their email is verified, so a fresh
	// install has someone who can approve everyone else.
	Admins []string
}

// AuthService implements login, logout, registration, password reset and
// email verification.  The caller's session is always passed in explicitly.
type AuthService struct {
	users    *repository.UserRepo
	sessions *repository.SessionRepo
	codes    *repository.VerificationRepo
	resets   *repository.ResetRepo
	mailer   mail.Sender
	cfg      AuthConfig
	log      *zap.SugaredLogger
}

func NewAuthService(
	users *repository.UserRepo,
	sessions *repository.SessionRepo,
	codes *repository.VerificationRepo,
	resets *repository.ResetRepo,
	mailer mail.Sender,
	cfg AuthConfig,
	log *zap.SugaredLogger,
) *AuthService {
	return &AuthService{users: users, sessions: sessions, codes: codes, resets: resets, mailer: mailer, cfg: cfg, log: log}
}

func (s *AuthService) internal(op string, err error) error {
	s.log.Errorw("auth operation failed", "op", op, "err", err)
	return ErrInternal
}

func (s *AuthService) from() string { return "Noreply <" + s.cfg.MailFrom + ">" }

// VerifySession reports whether sess carries the token currently stored for
// its user.
func (s *AuthService) VerifySession(ctx context.Context, sess *session.Session) bool {
	if !sess.Authenticated() {
		return false
	}
	tok, err := s.sessions.Token(ctx, sess.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Errorw("session lookup failed", "uuid", sess.UserID, "err", err)
		}
		return false
	}
	return utils.SecureEqual(tok, sess.Token)
}

// Login checks the credentials and account state, then issues a fresh token
// into both the session table and sess.
func (s *AuthService) Login(ctx context.Context, sess *session.Session, email, password string) error {
	if err := validate.All(
		validate.Length("email", email, 5, 256, "Please enter a valid email"),
		validate.Length("password", password, 1, 256, "Please enter a password"),
	); err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(apperr.Unauthorized, invalidCredentials)
	}
	if err != nil {
		return s.internal("login", err)
	}
	if len(password) > utils.MaxPasswordBytes {
		// bcrypt would compare only the first 72 bytes
		return apperr.New(apperr.Unauthorized, invalidCredentials)
	}
	ok, err := utils.VerifyPassword(u.Password, password)
	if err != nil {
		return s.internal("login", err)
	}
	if !ok {
		return apperr.New(apperr.Unauthorized, invalidCredentials)
	}
	if !u.Verified {
		return apperr.New(apperr.Unauthorized, "Your email has not been verified")
	}
	if !u.Approved {
		return apperr.New(apperr.Unauthorized, "Your account has not been approved")
	}

	tok, err := utils.RandomString(utils.SessionTokenLen)
	if err != nil {
		return s.internal("login", err)
	}
	if err := s.sessions.Upsert(ctx, u.UUID, tok); err != nil {
		return s.internal("login", err)
	}
	sess.Login(u.UUID, tok)
	s.log.Infow("user logged in", "uuid", u.UUID)
	return nil
}

// Logout drops the stored token and clears sess.  A failed delete is only
// logged; the browser is logged out regardless.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session) {
	if sess.UserID != "" {
		if err := s.sessions.Delete(ctx, sess.UserID); err != nil {
			s.log.Errorw("session delete failed", "uuid", sess.UserID, "err", err)
		}
	}
	sess.Clear()
}

type RegisterInput struct {
	Username       string
	Email          string
	EmailVerify    string
	Password       string
	PasswordVerify string
}

// Register creates an unverified, unapproved account and mails its
// verification link.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) error {
	if err := validate.All(
		validate.Length("username", in.Username, 3, 64, "Invalid username, must be 3-64 characters"),
		validate.EmailLength("email", in.Email, 5, 256, "Invalid email"),
		validate.EmailLength("email-verify", in.EmailVerify, 5, 256, "Invalid confirmation email"),
		validate.Length("password", in.Password, 5, 256, "Invalid password, must be 5-256 characters"),
		validate.MaxBytes("password", in.Password, utils.MaxPasswordBytes, "Invalid password, must be at most 72 bytes"),
		validate.Length("password-verify", in.PasswordVerify, 5, 256, "Invalid confirmation password"),
		validate.Match("email-verify", in.Email, in.EmailVerify, "Emails do not match"),
		validate.Match("password-verify", in.Password, in.PasswordVerify, "Passwords do not match"),
	); err != nil {
		return err
	}

	existing, err := s.users.FindByEmailOrUsername(ctx, in.Email, in.Username)
	if err != nil {
		return s.internal("register", err)
	}
	if err := conflictFor(existing, in); err != nil {
		return err
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return s.internal("register", err)
	}
	u := model.User{UUID: uuid.NewString(), Username: in.Username, Email: in.Email, Password: hash}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// lost a race with a concurrent signup
			return apperr.New(apperr.Conflict, "Email or username already exists, please use another")
		}
		return s.internal("register", err)
	}

	code, err := utils.RandomString(utils.VerifyCodeLen)
	if err != nil {
		return s.internal("register", err)
	}
	if err := s.codes.Create(ctx, in.Email, code); err != nil {
		// without a code the account could never be verified
		if derr := s.users.Delete(ctx, u.UUID); derr != nil {
			s.log.Errorw("orphaned unverifiable account", "uuid", u.UUID, "email", u.Email, "err", derr)
		}
		return s.internal("register", err)
	}

	link := s.cfg.SiteURL + "/auth/verify?" + url.Values{"email": {in.Email}, "key": {code}}.Encode()
	site := html.EscapeString(s.cfg.SiteURL)
	body := fmt.Sprintf(`Someone has registered an account on <a href="%s">%s</a> using this email. `+
		`If this was you, please click the following link to verify your email: <a href="%s">Verify email</a>`,
		site, site, html.EscapeString(link))
	if err := s.mailer.SendMessage(ctx, s.cfg.MailDomain, mail.Message{
		From: s.from(), To: in.Email, Subject: "Account verification", HTML: body,
	}); err != nil {
		// the account exists; an operator can verify it by hand
		s.log.Errorw("verification mail failed", "uuid", u.UUID, "err", err)
	}
	s.log.Infow("user registered", "uuid", u.UUID, "username", u.Username)
	return nil
}

func conflictFor(existing []model.User, in RegisterInput) error {
	email := normEmail(in.Email)
	for _, u := range existing {
		if normEmail(u.Email) == email {
			return apperr.New(apperr.Conflict, "Email already exists, please use another")
		}
	}
	for _, u := range existing {
		if u.Username == in.Username {
			return apperr.New(apperr.Conflict, "Username already exists, please use another")
		}
	}
	return nil
}

// RequestPasswordReset stores a new reset key for the account and mails the
// reset link.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := validate.All(validate.Length("email", email, 5, 256, "Invalid email")); err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(apperr.NotFound, "No user "+email+" found")
	}
	if err != nil {
		return s.internal("reset request", err)
	}
	if !u.Verified {
		return apperr.New(apperr.Unauthorized, "Account "+email+" not verified")
	}

	key, err := utils.RandomString(utils.ResetKeyLen)
	if err != nil {
		return s.internal("reset request", err)
	}
	if err := s.resets.Upsert(ctx, u.UUID, key); err != nil {
		return s.internal("reset request", err)
	}
	link := s.cfg.SiteURL + "/auth/resetpw?" + url.Values{"uuid": {u.UUID}, "resetkey": {key}}.Encode()
	body := fmt.Sprintf(`Someone requested your password to be reset. If you wanted to do this, `+
		`please use <strong><a href="%s">this link</a></strong> to reset your password`, html.EscapeString(link))
	if err := s.mailer.SendMessage(ctx, s.cfg.MailDomain, mail.Message{
		From: s.from(), To: u.Email, Subject: "Password reset for " + s.cfg.MailDomain, HTML: body,
	}); err != nil {
		return s.internal("reset request", err)
	}
	return nil
}

// ResetPassword consumes a reset key, replaces the password with a random
// one and mails it to the account.
func (s *AuthService) ResetPassword(ctx context.Context, userID, key string) error {
	if err := validate.All(
		validate.Required("uuid", userID, "Invalid uuid"),
		validate.Exact("resetkey", key, utils.ResetKeyLen, "Invalid reset key"),
	); err != nil {
		return err
	}
	pr, err := s.resets.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(apperr.NotFound, "No reset was requested for this account")
	}
	if err != nil {
		return s.internal("reset", err)
	}
	if !pr.Verified {
		return apperr.New(apperr.Unauthorized, "Account not verified")
	}
	if !utils.SecureEqual(pr.ResetKey, key) {
		return apperr.New(apperr.Unauthorized, "Reset key has expired")
	}

	plain, err := utils.RandomString(utils.NewPasswordLen)
	if err != nil {
		return s.internal("reset", err)
	}
	hash, err := utils.HashPassword(plain, s.cfg.BcryptCost)
	if err != nil {
		return s.internal("reset", err)
	}
	if err := s.users.SetPassword(ctx, pr.UUID, hash); err != nil {
		return s.internal("reset", err)
	}
	if err := s.mailer.SendMessage(ctx, s.cfg.MailDomain, mail.Message{
		From:    s.from(),
		To:      pr.Email,
		Subject: "New panel password",
		HTML:    "Your password has been changed. Your new password is : " + html.EscapeString(plain),
	}); err != nil {
		// keep the key so the link can be used again
		return s.internal("reset", err)
	}
	if err := s.resets.Delete(ctx, pr.UUID); err != nil {
		s.log.Errorw("reset key delete failed", "uuid", pr.UUID, "err", err)
	}
	s.log.Infow("password reset", "uuid", pr.UUID)
	return nil
}

// VerifyEmail marks the account verified when key equals its stored code.
func (s *AuthService) VerifyEmail(ctx context.Context, email, key string) error {
	if err := validate.All(
		validate.EmailLength("email", email, 5, 256, "Invalid email"),
		validate.Exact("key", key, utils.VerifyCodeLen, "Invalid verify key"),
	); err != nil {
		return err
	}
	code, err := s.codes.Code(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return s.internal("verify", err)
	}
	if err != nil || !utils.SecureEqual(code, key) {
		return apperr.New(apperr.Unauthorized, "Invalid verify key for the email")
	}
	if _, err := s.users.SetVerified(ctx, email); err != nil {
		return s.internal("verify", err)
	}
	if err := s.codes.Delete(ctx, email); err != nil {
		s.log.Errorw("verification code delete failed", "email", email, "err", err)
	}
	if s.isAdmin(email) {
		u, err := s.users.GetByEmail(ctx, email)
		if err == nil {
			err = s.users.SetApproved(ctx, u.UUID, true)
		}
		if err != nil {
			return s.internal("verify", err)
		}
		s.log.Infow("admin account approved", "uuid", u.UUID)
	}
	return nil
}

func (s *AuthService) isAdmin(email string) bool {
	email = normEmail(email)
	for _, a := range s.cfg.Admins {
		if normEmail(a) == email {
			return true
		}
	}
	return false
}

func normEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
