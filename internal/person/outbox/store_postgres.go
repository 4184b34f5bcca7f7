package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	txcontext "personvault/pkg/platform/tx"
)

// PostgresStore keeps events in the outbox table. Append joins the
// transaction carried by ctx, so an event exists only if the change it
// describes was committed.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Append writes an event to the outbox table for Kafka publishing.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		event.Payload,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Relay claims up to limit unpublished events, hands them to publish and
// marks them published, all in one transaction. Rows claimed by another
// relay are skipped. When publish fails nothing is marked.
func (s *PostgresStore) Relay(ctx context.Context, limit int, publish func(ctx context.Context, events []Event) error) (int, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox relay: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	events, err := claimBatch(ctx, sqlTx, limit)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}
	if err := publish(ctx, events); err != nil {
		return 0, err
	}
	if err := markPublished(ctx, sqlTx, events, s.now()); err != nil {
		return 0, err
	}
	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox relay: %w", err)
	}
	return len(events), nil
}

// Pending counts unpublished events.
func (s *PostgresStore) Pending(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM outbox WHERE published_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending outbox entries: %w", err)
	}
	return n, nil
}

func claimBatch(ctx context.Context, exec txcontext.Executor, limit int) ([]Event, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := exec.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox entries: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return events, nil
}

func markPublished(ctx context.Context, exec txcontext.Executor, events []Event, at time.Time) error {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID.String()
	}
	_, err := exec.ExecContext(ctx,
		`UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`, at, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark outbox entries published: %w", err)
	}
	return nil
}
