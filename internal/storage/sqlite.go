package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atomicstack/wiggle-chat/internal/chat"
	"github.com/atomicstack/wiggle-chat/internal/logging"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS message (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         INTEGER NOT NULL,
	name       TEXT    NOT NULL,
	body       TEXT    NOT NULL,
	published  INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS message_name ON message (name);
`

// SQLite is a Store backed by a single database file.
type SQLite struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens (creating when missing) the database at path and applies
// the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	target := strings.TrimSpace(path)
	if target == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create %s: %w", dir, err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", target)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", target, err)
	}
	// single writer connection
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	logging.Info("storage open", zap.String("path", target))
	return &SQLite{db: db, path: target, now: time.Now}, nil
}

// Path returns the database file location.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Get(ctx context.Context) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, id, name, body, published FROM message ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query messages: %w", err)
	}
	defer rows.Close()
	var out []chat.Message
	for rows.Next() {
		var msg chat.Message
		if err := rows.Scan(&msg.Seq, &msg.ID, &msg.Author, &msg.Body, &msg.Published); err != nil {
			return nil, fmt.Errorf("sqlite: scan message: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read messages: %w", err)
	}
	return out, nil
}

func (s *SQLite) Insert(ctx context.Context, msg chat.Message) (chat.Message, error) {
	stored := msg.Clone()
	stored.Author = chat.AuthorOrAnonymous(stored.Author)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO message (id, name, body, published, created_at) VALUES (?, ?, ?, ?, ?)`,
		stored.ID, stored.Author, stored.Body, stored.Published, s.now().UnixMilli())
	if err != nil {
		return chat.Message{}, fmt.Errorf("sqlite: insert message %d: %w", stored.ID, err)
	}
	if stored.Seq, err = res.LastInsertId(); err != nil {
		return chat.Message{}, fmt.Errorf("sqlite: read seq of message %d: %w", stored.ID, err)
	}
	return stored, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
