// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ae97/panel/internal/config"
	"github.com/ae97/panel/internal/database"
	"github.com/ae97/panel/internal/mail"
)

var dbSeq atomic.Int64

// SetupTestDB opens a private in-memory sqlite database with the panel schema.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", name, dbSeq.Add(1))
	db, err := database.Open(config.DBConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return db
}

// Logger returns a logger that discards everything.
func Logger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

// RecordingSender collects every message handed to it.
type RecordingSender struct {
	mu   sync.Mutex
	Sent []mail.Message
	Err  error
}

func (r *RecordingSender) SendMessage(_ context.Context, _ string, m mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Sent = append(r.Sent, m)
	return nil
}

// Last returns the most recent message or the zero value.
func (r *RecordingSender) Last() mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Sent) == 0 {
		return mail.Message{}
	}
	return r.Sent[len(r.Sent)-1]
}
