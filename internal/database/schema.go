package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// EnsureSchema creates the panel tables if they do not exist (idempotent).
// Statements run one at a time since the MySQL driver rejects multi-statement
// exec by default.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema(db.DriverName()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			name := strings.Fields(stmt)
			return fmt.Errorf("ensure schema (%s): %w", strings.Join(name[:min(len(name), 6)], " "), err)
		}
	}
	return nil
}

func schema(driver string) []string {
	serial := "BIGINT AUTO_INCREMENT PRIMARY KEY"
	ref := "BIGINT"
	switch driver {
	case "postgres":
		serial = "BIGSERIAL PRIMARY KEY"
	case "sqlite":
		serial = "INTEGER PRIMARY KEY AUTOINCREMENT"
		ref = "INTEGER"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS games (
  id ` + serial + `,
  idname VARCHAR(64) NOT NULL UNIQUE,
  displayname VARCHAR(255) NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS factoids (
  id ` + serial + `,
  name VARCHAR(255) NOT NULL,
  content TEXT NOT NULL,
  game ` + ref + ` NOT NULL REFERENCES games(id)
)`,
		`CREATE TABLE IF NOT EXISTS users (
  uuid VARCHAR(36) PRIMARY KEY,
  username VARCHAR(64) NOT NULL UNIQUE,
  email VARCHAR(256) NOT NULL UNIQUE,
  password VARCHAR(255) NOT NULL,
  verified BOOLEAN NOT NULL DEFAULT FALSE,
  approved BOOLEAN NOT NULL DEFAULT FALSE
)`,
		`CREATE TABLE IF NOT EXISTS session (
  uuid VARCHAR(36) PRIMARY KEY,
  sessionToken VARCHAR(64) NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS verification (
  email VARCHAR(256) PRIMARY KEY,
  code VARCHAR(32) NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS passwordreset (
  uuid VARCHAR(36) PRIMARY KEY,
  resetkey VARCHAR(64) NOT NULL
)`,
	}
}
