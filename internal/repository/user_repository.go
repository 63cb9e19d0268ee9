package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ae97/panel/internal/model"
)

type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `uuid, username, email, password, verified, approved`

// Create inserts an account.  A duplicate uuid, username or email yields
// ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO users (`+userCols+`) VALUES (?, ?, ?, ?, ?, ?)`),
		u.UUID, u.Username, normEmail(u.Email), u.Password, u.Verified, u.Approved)
	if err != nil && isDuplicate(err) {
		return ErrConflict
	}
	return err
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, r.db.Rebind(
		`SELECT `+userCols+` FROM users WHERE email = ?`), normEmail(email))
	return u, notFound(err)
}

func (r *UserRepo) GetByUUID(ctx context.Context, uuid string) (model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, r.db.Rebind(
		`SELECT `+userCols+` FROM users WHERE uuid = ?`), uuid)
	return u, notFound(err)
}

// FindByEmailOrUsername returns every account holding either value.
func (r *UserRepo) FindByEmailOrUsername(ctx context.Context, email, username string) ([]model.User, error) {
	var out []model.User
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(
		`SELECT `+userCols+` FROM users WHERE email = ? OR username = ?`), normEmail(email), username)
	return out, err
}

// SetVerified marks the account with this email verified.
func (r *UserRepo) SetVerified(ctx context.Context, email string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE users SET verified = ? WHERE email = ?`), true, normEmail(email))
	if err != nil {
		return false, err
	}
	return affected(res) > 0, nil
}

func (r *UserRepo) SetPassword(ctx context.Context, uuid, hash string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE users SET password = ? WHERE uuid = ?`), hash, uuid)
	if err != nil {
		return err
	}
	if affected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// SetApproved flips the approval flag; approval is an operator action.
func (r *UserRepo) SetApproved(ctx context.Context, uuid string, approved bool) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE users SET approved = ? WHERE uuid = ?`), approved, uuid)
	if err != nil {
		return err
	}
	if affected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every account ordered by username.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	out := []model.User{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+userCols+` FROM users ORDER BY username`)
	return out, err
}

func (r *UserRepo) Delete(ctx context.Context, uuid string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE uuid = ?`), uuid)
	return err
}

func normEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
