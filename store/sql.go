package store

import (
	"strconv"
	"strings"
)

// dialect covers the SQL differences between the backends.
type dialect struct {
	name        string
	placeholder func(n int) string
	contains    func(column, arg string) string
	schema      []string
}

var sqliteDialect = dialect{
	name:        DriverSQLite,
	placeholder: func(int) string { return "?" },
	contains: func(column, arg string) string {
		return "instr(" + column + ", " + arg + ") > 0"
	},
	schema: []string{
		`CREATE TABLE IF NOT EXISTS ` + TableName + ` (
	id INTEGER PRIMARY KEY,
	group_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	plain_text TEXT NOT NULL DEFAULT '',
	"time" INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_` + TableName + `_group_time ON ` + TableName + ` (group_id, "time")`,
	},
}

var postgresDialect = dialect{
	name:        DriverPostgres,
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	contains: func(column, arg string) string {
		return "strpos(" + column + ", " + arg + ") > 0"
	},
	schema: []string{
		`CREATE TABLE IF NOT EXISTS ` + TableName + ` (
	id BIGINT PRIMARY KEY,
	group_id BIGINT NOT NULL,
	user_id BIGINT NOT NULL,
	plain_text TEXT NOT NULL DEFAULT '',
	"time" BIGINT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_` + TableName + `_group_time ON ` + TableName + ` (group_id, "time")`,
	},
}

// builder accumulates bind arguments for one statement.
type builder struct {
	d    dialect
	args []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.placeholder(len(b.args))
}

// where renders the SQL conditions of req.
func (b *builder) where(req FetchRequest) string {
	conds := []string{"group_id = " + b.bind(req.GroupID)}
	if req.UserID != nil {
		conds = append(conds, "user_id = "+b.bind(*req.UserID))
	}
	if req.After != nil {
		conds = append(conds, `"time" >= `+b.bind(*req.After))
	}
	if req.Before != nil {
		conds = append(conds, `"time" <= `+b.bind(*req.Before))
	}
	if req.Content != "" {
		conds = append(conds, b.d.contains("plain_text", b.bind(req.Content)))
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// selectQuery renders the SELECT for req, newest first. With a regex every
// candidate row is returned so the caller can count matches; otherwise the
// page is limited in SQL and the total comes from countQuery.
func (d dialect) selectQuery(req FetchRequest) (string, []any) {
	b := &builder{d: d}
	q := `SELECT id, group_id, user_id, plain_text, "time" FROM ` + TableName +
		b.where(req) + ` ORDER BY "time" DESC, id DESC`
	if req.Pattern == nil {
		q += " LIMIT " + b.bind(req.Limit)
	}
	return q, b.args
}

// countQuery renders a COUNT(*) over the SQL conditions of req.
func (d dialect) countQuery(req FetchRequest) (string, []any) {
	b := &builder{d: d}
	q := `SELECT COUNT(*) FROM ` + TableName + b.where(req)
	return q, b.args
}
