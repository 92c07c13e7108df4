package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgInvalidTextRepr     = "22P02"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresStore implements Store on PostgreSQL. Outside WithEventLock every
// call runs on the pool; inside, calls share the locking transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) db() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.pool
}

func (s *PostgresStore) Users() UserStore {
	return &UserRepository{db: s.db()}
}

func (s *PostgresStore) Categories() CategoryStore {
	return &CategoryRepository{db: s.db()}
}

func (s *PostgresStore) Events() EventStore {
	return &EventRepository{db: s.db()}
}

func (s *PostgresStore) Requests() RequestStore {
	return &RequestRepository{db: s.db()}
}

// WithEventLock serialises admission decisions for one event.
//
// SELECT ... FOR UPDATE takes a row-level exclusive lock on the event the
// moment it executes. Any other transaction running the same statement on
// that row blocks until this one commits or rolls back, so the
// read-capacity and write-counter steps of two callers never interleave.
// Rows of other events are untouched and proceed in parallel.
func (s *PostgresStore) WithEventLock(ctx context.Context, eventID string, fn EventTxFunc) error {
	if s.tx != nil {
		event, err := lockEvent(ctx, s.tx, eventID)
		if err != nil {
			return err
		}
		return fn(ctx, s, event)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	event, err := lockEvent(ctx, tx, eventID)
	if err != nil {
		return err
	}

	if err := fn(ctx, &PostgresStore{pool: s.pool, tx: tx}, event); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	return nil
}

func lockEvent(ctx context.Context, tx pgx.Tx, eventID string) (*model.Event, error) {
	event, err := scanEvent(tx.QueryRow(ctx, selectEvent+` WHERE id = $1 FOR UPDATE`, eventID))
	if err != nil {
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	return event, nil
}

// mapError translates driver errors into the package sentinels.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case pgInvalidTextRepr, pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.Message)
		case pgCheckViolation:
			if pgErr.ConstraintName == "events_capacity" {
				return ErrNoCapacity
			}
		}
	}
	return err
}
