package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/logger"
	"github.com/locvowork/staffportal/internal/repository/builder"
)

//go:embed schema.sql
var schemaSQL string

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PostgresStore implements domain.Store over lib/pq. Every unit of work
// runs in one transaction; GetByID takes a row lock.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates missing tables and indexes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// serializable makes the overlap and cycle checks read the same snapshot the
// following writes commit against. Postgres aborts one of two conflicting
// transactions with serialization_failure.
var serializable = &sql.TxOptions{Isolation: sql.LevelSerializable}

// maxTxAttempts bounds the retries of a transaction aborted by a concurrent one.
const maxTxAttempts = 3

// WithinTx runs fn in a serializable transaction, retrying it when Postgres
// aborts it in favour of a concurrent one. fn must not keep state across
// attempts.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r domain.Repos) error) error {
	return retrySerializable(ctx, maxTxAttempts, func() error {
		return s.runTx(ctx, fn)
	})
}

func (s *PostgresStore) runTx(ctx context.Context, fn func(ctx context.Context, r domain.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, serializable)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, pgRepos{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.ErrorLog(ctx, "rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return translate(err, "failed to commit transaction")
	}
	return nil
}

// retrySerializable repeats run while it fails with a serialization failure
// or deadlock. The last such failure is reported as Conflict.
func retrySerializable(ctx context.Context, attempts int, run func() error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = run(); !isRetryable(err) {
			return err
		}
		logger.DebugLog(ctx, "transaction attempt %d aborted: %v", attempt, err)
		if ctx.Err() != nil {
			break
		}
	}
	return &domain.Error{Kind: domain.KindConflict, Message: "concurrent update, please retry", Err: err}
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code.Name() {
	case "serialization_failure", "deadlock_detected":
		return true
	}
	return false
}

type pgRepos struct{ q querier }

func (r pgRepos) Users() domain.UserRepository                 { return pgUsers{r.q} }
func (r pgRepos) ManagerEdges() domain.ManagerEdgeRepository   { return pgEdges{r.q} }
func (r pgRepos) TimeCards() domain.TimeCardRepository         { return pgTimeCards{r.q} }
func (r pgRepos) TimeEntries() domain.TimeEntryRepository      { return pgTimeEntries{r.q} }
func (r pgRepos) TimeOff() domain.TimeOffRepository            { return pgTimeOff{r.q} }
func (r pgRepos) Notifications() domain.NotificationRepository { return pgNotifications{r.q} }
func (r pgRepos) Calendar() domain.CalendarRepository          { return pgCalendar{r.q} }

// translate maps driver errors onto domain kinds and wraps the rest.
func translate(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundf("%s", msg)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return &domain.Error{Kind: domain.KindConflict, Message: msg, Err: err}
		case "foreign_key_violation":
			// Inserts fail on a missing parent; deletes fail on remaining children.
			if strings.Contains(pqErr.Detail, "still referenced") {
				return &domain.Error{Kind: domain.KindConflict, Message: msg, Err: err}
			}
			return &domain.Error{Kind: domain.KindNotFound, Message: msg, Err: err}
		case "serialization_failure", "lock_not_available":
			return &domain.Error{Kind: domain.KindConflict, Message: msg, Err: err}
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// execAffected runs an exec and returns NotFound when no row changed.
func execAffected(ctx context.Context, q querier, b *builder.SQLBuilder, msg string) error {
	n, err := execCount(ctx, q, b, msg)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundf("%s", msg)
	}
	return nil
}

func execCount(ctx context.Context, q querier, b *builder.SQLBuilder, msg string) (int, error) {
	query, args := b.Build()
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translate(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", msg, err)
	}
	return int(n), nil
}

func count(ctx context.Context, q querier, b *builder.SQLBuilder, msg string) (int, error) {
	query, args := b.Count().Build()
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", msg, err)
	}
	return n, nil
}

func page(b *builder.SQLBuilder, p domain.Pagination) *builder.SQLBuilder {
	if p.Limit > 0 {
		b.Limit(p.Limit)
	}
	if p.Offset > 0 {
		b.Offset(p.Offset)
	}
	return b
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// queryAll runs a select and scans every row with scan.
func queryAll[T any](ctx context.Context, q querier, b *builder.SQLBuilder, msg string, scan func(scanner) (T, error)) ([]T, error) {
	query, args := b.Build()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", msg, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	return out, nil
}

// listPage runs the count and the paged select of b.
func listPage[T any](ctx context.Context, q querier, b *builder.SQLBuilder, p domain.Pagination, msg string, scan func(scanner) (T, error)) ([]T, int, error) {
	total, err := count(ctx, q, b, msg)
	if err != nil {
		return nil, 0, err
	}
	items, err := queryAll(ctx, q, page(b, p), msg, scan)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// employeeIDs applies the nil-means-any filter; an empty list matches nothing.
func employeeIDs(b *builder.SQLBuilder, column string, ids []string) {
	switch {
	case ids == nil:
	case len(ids) == 0:
		b.Where("FALSE")
	default:
		b.Where(column+" = ANY(?)", pq.Array(ids))
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
