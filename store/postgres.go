package store

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonwraymond/chatquery/cache"
)

// PostgresStore reads messages from PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	closed atomic.Bool
}

// OpenPostgres connects a pool to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the message table and its index if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	for _, stmt := range postgresDialect.schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure postgres schema: %w", err)
		}
	}
	return nil
}

// Fetch returns the messages matching req, newest first.
func (s *PostgresStore) Fetch(ctx context.Context, req FetchRequest) (FetchResult, error) {
	if s.closed.Load() {
		return FetchResult{}, ErrClosed
	}
	if err := req.Validate(); err != nil {
		return FetchResult{}, err
	}

	c := newCollector(req)
	q, args := postgresDialect.selectQuery(req)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return FetchResult{}, fmt.Errorf("query messages: %w", err)
	}

	var m cache.Message
	_, err = pgx.ForEachRow(rows, []any{&m.ID, &m.GroupID, &m.UserID, &m.PlainText, &m.Time}, func() error {
		c.add(m)
		return nil
	})
	if err != nil {
		return FetchResult{}, fmt.Errorf("scan messages: %w", err)
	}

	if req.Pattern == nil {
		cq, cargs := postgresDialect.countQuery(req)
		if err := s.pool.QueryRow(ctx, cq, cargs...).Scan(&c.result.Total); err != nil {
			return FetchResult{}, fmt.Errorf("count messages: %w", err)
		}
	}
	return c.result, nil
}

// Close closes the pool. It is safe to call more than once.
func (s *PostgresStore) Close() error {
	if !s.closed.Swap(true) {
		s.pool.Close()
	}
	return nil
}
