package model

// User mirrors the `users` table.  Password holds the bcrypt hash.
type User struct {
	UUID     string `db:"uuid" json:"uuid"`
	Username string `db:"username" json:"username"`
	Email    string `db:"email" json:"email"`
	Password string `db:"password" json:"-"`
	Verified bool   `db:"verified" json:"verified"`
	Approved bool   `db:"approved" json:"approved"`
}

// PasswordReset is a pending reset joined to the owning account.
type PasswordReset struct {
	UUID     string `db:"uuid"`
	ResetKey string `db:"resetkey"`
	Email    string `db:"email"`
	Verified bool   `db:"verified"`
}
