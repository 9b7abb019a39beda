package store

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jonwraymond/chatquery/cache"
)

var fixture = []cache.Message{
	{ID: 1, GroupID: 100, UserID: 7, PlainText: "good morning", Time: 1000},
	{ID: 2, GroupID: 100, UserID: 8, PlainText: "lunch at noon?", Time: 1100},
	{ID: 3, GroupID: 100, UserID: 7, PlainText: "lunch sounds good", Time: 1200},
	{ID: 4, GroupID: 200, UserID: 7, PlainText: "other group lunch", Time: 1250},
	{ID: 5, GroupID: 100, UserID: 9, PlainText: "order #42 shipped", Time: 1300},
	{ID: 6, GroupID: 100, UserID: 8, PlainText: "good night", Time: 1400},
}

func insertMessages(t *testing.T, s *SQLiteStore, msgs []cache.Message) {
	t.Helper()
	for _, m := range msgs {
		_, err := s.db.Exec(
			`INSERT INTO chat_messages (id, group_id, user_id, plain_text, "time") VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.GroupID, m.UserID, m.PlainText, m.Time,
		)
		if err != nil {
			t.Fatalf("insert message %d: %v", m.ID, err)
		}
	}
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	s, err := OpenSQLite(ctx, "")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	insertMessages(t, s, fixture)
	return s
}

func ids(msgs []cache.Message) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestSQLiteStore_Fetch(t *testing.T) {
	s := newTestSQLite(t)

	tests := []struct {
		name      string
		req       FetchRequest
		wantIDs   []int64
		wantTotal int
	}{
		{
			name:      "whole group newest first",
			req:       FetchRequest{GroupID: 100, Limit: 10},
			wantIDs:   []int64{6, 5, 3, 2, 1},
			wantTotal: 5,
		},
		{
			name:      "limit keeps newest and counts all",
			req:       FetchRequest{GroupID: 100, Limit: 2},
			wantIDs:   []int64{6, 5},
			wantTotal: 5,
		},
		{
			name:      "user",
			req:       FetchRequest{GroupID: 100, UserID: cache.Int64(7), Limit: 10},
			wantIDs:   []int64{3, 1},
			wantTotal: 2,
		},
		{
			name:      "content substring",
			req:       FetchRequest{GroupID: 100, Content: "lunch", Limit: 10},
			wantIDs:   []int64{3, 2},
			wantTotal: 2,
		},
		{
			name:      "content is case sensitive",
			req:       FetchRequest{GroupID: 100, Content: "Lunch", Limit: 10},
			wantIDs:   []int64{},
			wantTotal: 0,
		},
		{
			name:      "time bounds inclusive",
			req:       FetchRequest{GroupID: 100, After: cache.Int64(1100), Before: cache.Int64(1300), Limit: 10},
			wantIDs:   []int64{5, 3, 2},
			wantTotal: 3,
		},
		{
			name:      "regex",
			req:       FetchRequest{GroupID: 100, Pattern: regexp.MustCompile(`^good`), Limit: 10},
			wantIDs:   []int64{6, 1},
			wantTotal: 2,
		},
		{
			name:      "regex with limit",
			req:       FetchRequest{GroupID: 100, Pattern: regexp.MustCompile(`good`), Limit: 1},
			wantIDs:   []int64{6},
			wantTotal: 3,
		},
		{
			name:      "unknown group",
			req:       FetchRequest{GroupID: 999, Limit: 10},
			wantIDs:   []int64{},
			wantTotal: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Fetch(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if diff := cmp.Diff(tt.wantIDs, ids(got.Messages)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if got.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", got.Total, tt.wantTotal)
			}
		})
	}
}

func TestSQLiteStore_FetchMessageFields(t *testing.T) {
	s := newTestSQLite(t)

	got, err := s.Fetch(context.Background(), FetchRequest{GroupID: 100, UserID: cache.Int64(9), Limit: 1})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if diff := cmp.Diff([]cache.Message{fixture[4]}, got.Messages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStore_FetchInvalid(t *testing.T) {
	s := newTestSQLite(t)

	tests := []struct {
		name string
		req  FetchRequest
	}{
		{"no group", FetchRequest{Limit: 10}},
		{"no limit", FetchRequest{GroupID: 100}},
		{"inverted window", FetchRequest{GroupID: 100, Limit: 10, After: cache.Int64(5), Before: cache.Int64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Fetch(context.Background(), tt.req); !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("Fetch() error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestSQLiteStore_Closed(t *testing.T) {
	s := newTestSQLite(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	ctx := context.Background()
	if _, err := s.Fetch(ctx, FetchRequest{GroupID: 100, Limit: 1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Fetch() after Close error = %v, want ErrClosed", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping() after Close error = %v, want ErrClosed", err)
	}
}

func TestSQLiteStore_FileDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	insertMessages(t, s, fixture[:2])
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	if err := reopened.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() on existing table error = %v", err)
	}
	got, err := reopened.Fetch(ctx, FetchRequest{GroupID: 100, Limit: 10})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.Total != 2 {
		t.Errorf("Total = %d, want 2", got.Total)
	}
	if err := reopened.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
