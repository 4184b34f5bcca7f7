package tx

import (
	"context"
	"database/sql"
	"sync"
)

type ctxKey struct{}

type commitKey struct{}

var txKey = ctxKey{}

// Executor is the subset of *sql.DB and *sql.Tx used by stores.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx stores a SQL transaction in context so stores outside the
// transaction runner (the outbox) join the same unit of work.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// ExecutorFrom returns the transaction in ctx, or db when there is none.
func ExecutorFrom(ctx context.Context, db *sql.DB) Executor {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

// OnCommit collects work that must happen only if an in-memory transaction
// commits. Stores without a SQL transaction to join register their writes
// here instead of applying them immediately.
type OnCommit struct {
	mu  sync.Mutex
	fns []func()
}

// WithOnCommit returns a context carrying a fresh OnCommit collector.
func WithOnCommit(ctx context.Context) (context.Context, *OnCommit) {
	c := &OnCommit{}
	return context.WithValue(ctx, commitKey{}, c), c
}

// OnCommitFrom extracts the collector from context if present.
func OnCommitFrom(ctx context.Context) (*OnCommit, bool) {
	c, ok := ctx.Value(commitKey{}).(*OnCommit)
	return c, ok
}

// Add registers fn to run on commit.
func (c *OnCommit) Add(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
}

// Run executes the registered functions in registration order.
func (c *OnCommit) Run() {
	c.mu.Lock()
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
