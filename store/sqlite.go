package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/jonwraymond/chatquery/cache"

	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = ":memory:"

// SQLiteStore reads messages from a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	closed atomic.Bool
}

// OpenSQLite opens the database at dsn and verifies the connection.
// An empty dsn opens MemoryDSN.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dsn == MemoryDSN || strings.Contains(dsn, "mode=memory") {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the message table and its index if missing.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	for _, stmt := range sqliteDialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure sqlite schema: %w", err)
		}
	}
	return nil
}

// Fetch returns the messages matching req, newest first.
func (s *SQLiteStore) Fetch(ctx context.Context, req FetchRequest) (FetchResult, error) {
	if s.closed.Load() {
		return FetchResult{}, ErrClosed
	}
	if err := req.Validate(); err != nil {
		return FetchResult{}, err
	}

	c := newCollector(req)
	q, args := sqliteDialect.selectQuery(req)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return FetchResult{}, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m cache.Message
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.PlainText, &m.Time); err != nil {
			return FetchResult{}, fmt.Errorf("scan message: %w", err)
		}
		c.add(m)
	}
	if err := rows.Err(); err != nil {
		return FetchResult{}, fmt.Errorf("iterate messages: %w", err)
	}

	if req.Pattern == nil {
		cq, cargs := sqliteDialect.countQuery(req)
		if err := s.db.QueryRowContext(ctx, cq, cargs...).Scan(&c.result.Total); err != nil {
			return FetchResult{}, fmt.Errorf("count messages: %w", err)
		}
	}
	return c.result, nil
}

// Close closes the database. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
