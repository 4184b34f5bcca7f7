package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"personvault/internal/person/matching"
	"personvault/internal/person/models"
	"personvault/internal/person/service"
	txcontext "personvault/pkg/platform/tx"
	"personvault/pkg/platform/sentinel"
)

const personColumns = `id, group_id, change_set_id, last_name, first_name, middle_name,
	birth_date, gender, address, phone, email, created_at, is_current`

const historyColumns = `id, group_id, change_set_id, last_name, first_name, middle_name,
	birth_date, gender, address, phone, email, valid_from, valid_to`

// PostgresStore persists identity groups and their record versions in
// PostgreSQL. It is pure I/O: matching and versioning rules live in the
// service.
type PostgresStore struct {
	exec txcontext.Executor
}

// NewPostgres constructs a store issuing statements on the pool.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{exec: db}
}

// NewPostgresTx constructs a store bound to an open transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{exec: tx}
}

func (s *PostgresStore) FindMatchingGroup(ctx context.Context, criteria matching.Criteria) (models.GroupID, error) {
	query, args := buildMatchQuery(criteria)
	var groupID int64
	if err := s.exec.QueryRowContext(ctx, query, args...).Scan(&groupID); err != nil {
		return 0, classify(err, "find matching group")
	}
	return models.GroupID(groupID), nil
}

func (s *PostgresStore) CreateGroup(ctx context.Context, createdAt time.Time) (models.GroupID, error) {
	var id int64
	err := s.exec.QueryRowContext(ctx,
		`INSERT INTO person_groups (created_at) VALUES ($1) RETURNING id`, createdAt,
	).Scan(&id)
	if err != nil {
		return 0, classify(err, "create group")
	}
	return models.GroupID(id), nil
}

func (s *PostgresStore) CreateChangeSet(ctx context.Context, cs *models.ChangeSet) error {
	if cs == nil {
		return fmt.Errorf("change set is required")
	}
	_, err := s.exec.ExecContext(ctx, `
		INSERT INTO change_sets (id, author, reason, created_at)
		VALUES ($1, $2, $3, $4)
	`, cs.ID, cs.Author, cs.Reason, cs.CreatedAt)
	if err != nil {
		return classify(err, "create change set")
	}
	return nil
}

func (s *PostgresStore) FindChangeSet(ctx context.Context, id uuid.UUID) (*models.ChangeSet, error) {
	var cs models.ChangeSet
	err := s.exec.QueryRowContext(ctx, `
		SELECT id, author, reason, created_at
		FROM change_sets
		WHERE id = $1
	`, id).Scan(&cs.ID, &cs.Author, &cs.Reason, &cs.CreatedAt)
	if err != nil {
		return nil, classify(err, "find change set")
	}
	cs.CreatedAt = cs.CreatedAt.UTC()
	return &cs, nil
}

// FindLatestCurrent locks the row it returns so the retirement that follows
// cannot race a concurrent writer that bypassed the advisory lock.
func (s *PostgresStore) FindLatestCurrent(ctx context.Context, groupID models.GroupID) (*models.CurrentRecord, error) {
	query := `SELECT ` + personColumns + `
		FROM persons
		WHERE group_id = $1 AND is_current
		ORDER BY created_at DESC, id DESC
		LIMIT 1
		FOR UPDATE`
	rec, err := scanCurrent(s.exec.QueryRowContext(ctx, query, int64(groupID)))
	if err != nil {
		return nil, classify(err, "find latest current record")
	}
	return rec, nil
}

func (s *PostgresStore) InsertCurrent(ctx context.Context, rec *models.CurrentRecord) error {
	if rec == nil {
		return fmt.Errorf("current record is required")
	}
	var id int64
	err := s.exec.QueryRowContext(ctx, `
		INSERT INTO persons (
			group_id, change_set_id, last_name, first_name, middle_name,
			birth_date, gender, address, phone, email, created_at, is_current
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		int64(rec.GroupID),
		nullUUID(rec.ChangeSetID),
		rec.LastName,
		rec.FirstName,
		rec.MiddleName,
		rec.BirthDate,
		string(rec.Gender),
		rec.Address,
		rec.Phone,
		rec.Email,
		rec.CreatedAt,
		rec.IsCurrent,
	).Scan(&id)
	if err != nil {
		return classify(err, "insert current record")
	}
	rec.ID = models.RecordID(id)
	return nil
}

func (s *PostgresStore) InsertHistory(ctx context.Context, rec *models.HistoryRecord) error {
	if rec == nil {
		return fmt.Errorf("history record is required")
	}
	err := s.exec.QueryRowContext(ctx, `
		INSERT INTO person_history (
			group_id, change_set_id, last_name, first_name, middle_name,
			birth_date, gender, address, phone, email, valid_from, valid_to
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		int64(rec.GroupID),
		nullUUID(rec.ChangeSetID),
		rec.LastName,
		rec.FirstName,
		rec.MiddleName,
		rec.BirthDate,
		string(rec.Gender),
		rec.Address,
		rec.Phone,
		rec.Email,
		rec.ValidFrom,
		rec.ValidTo,
	).Scan(&rec.ID)
	if err != nil {
		return classify(err, "insert history record")
	}
	return nil
}

func (s *PostgresStore) RetireCurrent(ctx context.Context, id models.RecordID) error {
	result, err := s.exec.ExecContext(ctx,
		`UPDATE persons SET is_current = FALSE WHERE id = $1 AND is_current`, int64(id))
	if err != nil {
		return classify(err, "retire current record")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return classify(err, "retire current record rows affected")
	}
	if rows == 0 {
		return fmt.Errorf("retire current record %d: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindCurrentAsOf(ctx context.Context, groupID models.GroupID, at time.Time) (*models.CurrentRecord, error) {
	query := `SELECT ` + personColumns + `
		FROM persons
		WHERE group_id = $1 AND is_current AND created_at <= $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	rec, err := scanCurrent(s.exec.QueryRowContext(ctx, query, int64(groupID), at))
	if err != nil {
		return nil, classify(err, "find current record as of")
	}
	return rec, nil
}

func (s *PostgresStore) FindHistoryAt(ctx context.Context, groupID models.GroupID, at time.Time) (*models.HistoryRecord, error) {
	query := `SELECT ` + historyColumns + `
		FROM person_history
		WHERE group_id = $1 AND valid_from <= $2 AND valid_to > $2
		ORDER BY valid_from DESC, id DESC
		LIMIT 1`
	rec, err := scanHistory(s.exec.QueryRowContext(ctx, query, int64(groupID), at))
	if err != nil {
		return nil, classify(err, "find history record at")
	}
	return rec, nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, groupID models.GroupID) ([]*models.HistoryRecord, error) {
	query := `SELECT ` + historyColumns + `
		FROM person_history
		WHERE group_id = $1
		ORDER BY valid_from ASC, id ASC`
	rows, err := s.exec.QueryContext(ctx, query, int64(groupID))
	if err != nil {
		return nil, classify(err, "list history")
	}
	defer rows.Close()

	var out []*models.HistoryRecord
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, classify(err, "scan history record")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate history")
	}
	return out, nil
}

func (s *PostgresStore) SearchCurrent(ctx context.Context, filter models.SearchFilter) ([]*models.CurrentRecord, error) {
	query, args := buildSearchQuery(filter)
	rows, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "search current records")
	}
	defer rows.Close()

	out := []*models.CurrentRecord{}
	for rows.Next() {
		rec, err := scanCurrent(rows)
		if err != nil {
			return nil, classify(err, "scan current record")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate current records")
	}
	return out, nil
}

// buildMatchQuery renders the matching predicate as one indexed query. The
// smallest group id wins ties.
func buildMatchQuery(c matching.Criteria) (string, []any) {
	var q predicate
	q.raw("is_current")
	q.eq("gender", string(c.Gender))
	q.eq("first_name", c.FirstName)
	if c.MiddleName == nil {
		q.raw("middle_name IS NULL")
	} else {
		q.eq("middle_name", *c.MiddleName)
	}
	if c.LastName != nil {
		q.eq("last_name", *c.LastName)
	}

	contact := []string{q.placeholder("address", c.Address)}
	if c.Phone != nil {
		contact = append(contact, q.placeholder("phone", *c.Phone))
	}
	if c.Email != nil {
		contact = append(contact, q.placeholder("email", *c.Email))
	}
	q.raw("(" + strings.Join(contact, " OR ") + ")")

	return `SELECT group_id FROM persons WHERE ` + q.where() + ` ORDER BY group_id ASC LIMIT 1`, q.args
}

func buildSearchQuery(f models.SearchFilter) (string, []any) {
	var q predicate
	q.raw("is_current")
	for _, field := range []struct {
		column string
		value  string
	}{
		{"last_name", f.LastName},
		{"first_name", f.FirstName},
		{"middle_name", f.MiddleName},
		{"address", f.Address},
		{"phone", f.Phone},
		{"email", f.Email},
	} {
		if field.value != "" {
			q.eq(field.column, field.value)
		}
	}
	limit := q.bind(f.Limit)
	offset := q.bind(f.Offset)
	return `SELECT ` + personColumns + ` FROM persons WHERE ` + q.where() +
		` ORDER BY group_id ASC, id ASC LIMIT ` + limit + ` OFFSET ` + offset, q.args
}

// predicate accumulates AND-ed conditions with positional arguments.
type predicate struct {
	conds []string
	args  []any
}

func (p *predicate) bind(v any) string {
	p.args = append(p.args, v)
	return fmt.Sprintf("$%d", len(p.args))
}

func (p *predicate) placeholder(column string, v any) string {
	return column + " = " + p.bind(v)
}

func (p *predicate) eq(column string, v any) {
	p.conds = append(p.conds, p.placeholder(column, v))
}

func (p *predicate) raw(cond string) {
	p.conds = append(p.conds, cond)
}

func (p *predicate) where() string {
	return strings.Join(p.conds, " AND ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCurrent(row rowScanner) (*models.CurrentRecord, error) {
	var (
		rec       models.CurrentRecord
		id        int64
		groupID   int64
		changeSet uuid.NullUUID
		gender    string
		opt       optionalColumns
	)
	err := row.Scan(&id, &groupID, &changeSet, &rec.LastName, &rec.FirstName, &opt.middle,
		&opt.birth, &gender, &rec.Address, &opt.phone, &opt.email, &rec.CreatedAt, &rec.IsCurrent)
	if err != nil {
		return nil, err
	}
	rec.ID = models.RecordID(id)
	rec.GroupID = models.GroupID(groupID)
	rec.ChangeSetID = changeSet.UUID
	rec.Gender = models.Gender(gender)
	rec.CreatedAt = rec.CreatedAt.UTC()
	opt.apply(&rec.Attributes)
	return &rec, nil
}

func scanHistory(row rowScanner) (*models.HistoryRecord, error) {
	var (
		rec       models.HistoryRecord
		groupID   int64
		changeSet uuid.NullUUID
		gender    string
		opt       optionalColumns
	)
	err := row.Scan(&rec.ID, &groupID, &changeSet, &rec.LastName, &rec.FirstName, &opt.middle,
		&opt.birth, &gender, &rec.Address, &opt.phone, &opt.email, &rec.ValidFrom, &rec.ValidTo)
	if err != nil {
		return nil, err
	}
	rec.GroupID = models.GroupID(groupID)
	rec.ChangeSetID = changeSet.UUID
	rec.Gender = models.Gender(gender)
	rec.ValidFrom = rec.ValidFrom.UTC()
	rec.ValidTo = rec.ValidTo.UTC()
	opt.apply(&rec.Attributes)
	return &rec, nil
}

type optionalColumns struct {
	middle sql.NullString
	birth  sql.NullTime
	phone  sql.NullString
	email  sql.NullString
}

func (o optionalColumns) apply(a *models.Attributes) {
	a.MiddleName = fromNullString(o.middle)
	a.Phone = fromNullString(o.phone)
	a.Email = fromNullString(o.email)
	if o.birth.Valid {
		bd := o.birth.Time.UTC()
		a.BirthDate = &bd
	}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

// PostgresTxRunner runs Apply transactions. It holds a transaction-scoped
// advisory lock on the matching key from before the match query until
// commit, so concurrent writers that could resolve to the same group run one
// after another.
//
// Isolation stays at READ COMMITTED on purpose: each statement takes a fresh
// snapshot, so a writer that waited on the lock sees the group its
// predecessor just committed. A REPEATABLE READ snapshot would be taken when
// the lock statement starts and would miss it.
type PostgresTxRunner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresTxRunner constructs a transaction runner. A zero timeout uses
// the default.
func NewPostgresTxRunner(db *sql.DB, timeout time.Duration) *PostgresTxRunner {
	return &PostgresTxRunner{db: db, timeout: timeout}
}

func (t *PostgresTxRunner) RunInTx(ctx context.Context, lockKey int64, fn func(ctx context.Context, store service.Store) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(err, "begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if _, err := sqlTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey); err != nil {
		return classify(err, "acquire matching lock")
	}

	if err := fn(txcontext.WithTx(ctx, sqlTx), NewPostgresTx(sqlTx)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return classify(err, "commit transaction")
	}
	return nil
}
