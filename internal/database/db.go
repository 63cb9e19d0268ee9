package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ae97/panel/internal/config"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DSN builds the driver connection string for cfg.
func DSN(cfg config.DBConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	switch cfg.Driver {
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.Name)
	case "sqlite":
		return "file:" + cfg.Name + "?_pragma=foreign_keys(1)"
	default:
		auth := cfg.User
		if cfg.Pass != "" {
			auth = fmt.Sprintf("%s:%s", cfg.User, cfg.Pass)
		}
		// clientFoundRows=true makes RowsAffected count matched rows, not changed ones
		return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
			auth, cfg.Host, cfg.Port, cfg.Name)
	}
}

// Open connects with the configured driver and verifies the connection.
func Open(cfg config.DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(cfg.Driver, DSN(cfg))
	if err != nil {
		return nil, err
	}

	// Pool settings
	if cfg.Driver == "sqlite" {
		// a single writer avoids SQLITE_BUSY and keeps in-memory databases alive
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Upsert returns an insert-or-update statement for a two-column table keyed
// by key.  Placeholders are '?' and must be rebound by the caller.
func Upsert(driver, table, key, col string) string {
	insert := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", table, key, col)
	if driver == "mysql" {
		return fmt.Sprintf("%s ON DUPLICATE KEY UPDATE %s = VALUES(%s)", insert, col, col)
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s", insert, key, col, col)
}
