package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ae97/panel/internal/database"
	"github.com/ae97/panel/internal/model"
)

// SessionRepo stores one login token per account.
type SessionRepo struct{ db *sqlx.DB }

func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{db: db} }

// Upsert replaces the account's token.
func (r *SessionRepo) Upsert(ctx context.Context, uuid, token string) error {
	q := database.Upsert(r.db.DriverName(), "session", "uuid", "sessionToken")
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q), uuid, token)
	return err
}

func (r *SessionRepo) Token(ctx context.Context, uuid string) (string, error) {
	var tok string
	err := r.db.GetContext(ctx, &tok, r.db.Rebind(
		`SELECT sessionToken FROM session WHERE uuid = ?`), uuid)
	return tok, notFound(err)
}

func (r *SessionRepo) Delete(ctx context.Context, uuid string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM session WHERE uuid = ?`), uuid)
	return err
}

// VerificationRepo holds the one-time email verification codes.
type VerificationRepo struct{ db *sqlx.DB }

func NewVerificationRepo(db *sqlx.DB) *VerificationRepo { return &VerificationRepo{db: db} }

func (r *VerificationRepo) Create(ctx context.Context, email, code string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO verification (email, code) VALUES (?, ?)`), normEmail(email), code)
	if err != nil && isDuplicate(err) {
		return ErrConflict
	}
	return err
}

func (r *VerificationRepo) Code(ctx context.Context, email string) (string, error) {
	var code string
	err := r.db.GetContext(ctx, &code, r.db.Rebind(
		`SELECT code FROM verification WHERE email = ?`), normEmail(email))
	return code, notFound(err)
}

func (r *VerificationRepo) Delete(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM verification WHERE email = ?`), normEmail(email))
	return err
}

// ResetRepo holds pending password resets, one per account.
type ResetRepo struct{ db *sqlx.DB }

func NewResetRepo(db *sqlx.DB) *ResetRepo { return &ResetRepo{db: db} }

func (r *ResetRepo) Upsert(ctx context.Context, uuid, key string) error {
	q := database.Upsert(r.db.DriverName(), "passwordreset", "uuid", "resetkey")
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q), uuid, key)
	return err
}

// Get returns the pending reset for uuid joined with the account's email and
// verification state.
func (r *ResetRepo) Get(ctx context.Context, uuid string) (model.PasswordReset, error) {
	var pr model.PasswordReset
	err := r.db.GetContext(ctx, &pr, r.db.Rebind(
		`SELECT passwordreset.uuid, passwordreset.resetkey, users.email, users.verified
		 FROM passwordreset INNER JOIN users ON users.uuid = passwordreset.uuid
		 WHERE passwordreset.uuid = ?`), uuid)
	return pr, notFound(err)
}

func (r *ResetRepo) Delete(ctx context.Context, uuid string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM passwordreset WHERE uuid = ?`), uuid)
	return err
}
