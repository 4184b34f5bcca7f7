// Package dbinit applies SQL scripts to a database: the embedded schema at
// startup and operator-supplied files from the CLI.
package dbinit

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed schema.sql
var schema string

// Schema returns the embedded schema script.
func Schema() string {
	return schema
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ApplySchema executes the embedded schema. Every statement is idempotent.
func ApplySchema(ctx context.Context, db Execer) (int, error) {
	return ExecScript(ctx, db, schema)
}

// LoadFile reads and executes the script at path.
func LoadFile(ctx context.Context, db Execer, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read script %s: %w", path, err)
	}
	return ExecScript(ctx, db, string(raw))
}

// ExecScript executes every non-empty statement of script in order and
// returns how many ran. Full-line "--" comments are dropped before splitting
// on semicolons.
func ExecScript(ctx context.Context, db Execer, script string) (int, error) {
	statements := SplitStatements(script)
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return i, fmt.Errorf("execute statement %d (%s): %w", i+1, preview(stmt), err)
		}
	}
	return len(statements), nil
}

// SplitStatements strips comment lines and splits the script into trimmed,
// non-empty statements.
func SplitStatements(script string) []string {
	var b strings.Builder
	for line := range strings.Lines(script) {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
	}

	var out []string
	for part := range strings.SplitSeq(b.String(), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func preview(stmt string) string {
	const limit = 60
	stmt = strings.Join(strings.Fields(stmt), " ")
	if len(stmt) <= limit {
		return stmt
	}
	return stmt[:limit] + "..."
}
