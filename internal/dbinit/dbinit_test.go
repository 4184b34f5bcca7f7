package dbinit

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	statements []string
	failOn     int
}

func (r *recordingExecer) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	r.statements = append(r.statements, query)
	if r.failOn > 0 && len(r.statements) == r.failOn {
		return nil, errors.New("syntax error")
	}
	return nil, nil
}

func TestSplitStatements(t *testing.T) {
	script := `
-- header comment
CREATE TABLE a (id INT);
  -- indented comment
CREATE TABLE b (
    id INT
);

;
`
	got := SplitStatements(script)
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (\n    id INT\n)"}, got)
}

func TestExecScript(t *testing.T) {
	t.Run("runs every statement", func(t *testing.T) {
		exec := &recordingExecer{}
		n, err := ExecScript(context.Background(), exec, "SELECT 1; SELECT 2;")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, exec.statements)
	})

	t.Run("stops at the failing statement", func(t *testing.T) {
		exec := &recordingExecer{failOn: 2}
		n, err := ExecScript(context.Background(), exec, "SELECT 1; SELECT broken; SELECT 3")
		require.Error(t, err)
		assert.Equal(t, 1, n)
		assert.Contains(t, err.Error(), "statement 2 (SELECT broken)")
		assert.Len(t, exec.statements, 2)
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("executes file contents", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.sql")
		require.NoError(t, os.WriteFile(path, []byte("INSERT INTO x VALUES (1);\n"), 0o600))

		exec := &recordingExecer{}
		n, err := LoadFile(context.Background(), exec, path)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(context.Background(), &recordingExecer{}, filepath.Join(t.TempDir(), "nope.sql"))
		require.Error(t, err)
	})
}

func TestEmbeddedSchema(t *testing.T) {
	statements := SplitStatements(Schema())
	require.NotEmpty(t, statements)

	joined := strings.Join(statements, "\n")
	for _, table := range []string{"person_groups", "change_sets", "persons", "person_history", "outbox"} {
		assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
	assert.Contains(t, joined, "DEFERRABLE INITIALLY DEFERRED")
}
