// Package store is the datastore adapter (C8): connection lifecycle, a
// re-entrant task-scoped session, a process-exclusive transaction scope, and
// the query primitives the rest of the service builds on.
//
// Go has no task-local storage, so the "current session" lives on
// context.Context instead (the design note's own fallback for languages
// without native task-local). Transactions are globally serialised through a
// single mutex, exactly as spec'd: it trades throughput for simple reasoning
// about Pending leases and token writes, which is fine at this scale.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

type sessionKey struct{}

// Store owns the shared connection pool and the single global transaction
// mutex described in spec.md §4.8/§5.
type Store struct {
	db  *sql.DB
	log zerolog.Logger

	txMu sync.Mutex
}

// Open connects to Postgres and verifies the connection with a ping.
func Open(connString string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting query helpers
// work whether or not a transaction is in flight.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Conn returns the live *sql.Tx for ctx if one is open (re-entrant session),
// otherwise the pooled *sql.DB. Most call sites should use Exec/Query/QueryRow
// below instead of reaching for this directly.
func (s *Store) Conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(sessionKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return s.db
}

func (s *Store) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.Conn(ctx).ExecContext(ctx, query, args...)
}

func (s *Store) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.Conn(ctx).QueryContext(ctx, query, args...)
}

func (s *Store) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.Conn(ctx).QueryRowContext(ctx, query, args...)
}

// Transact runs fn inside a transaction, reusing the outermost transaction
// already open on ctx (re-entrant session semantics) rather than nesting a
// second one. It commits on a nil return and rolls back otherwise.
//
// The whole call is serialised behind the Store's single transaction mutex:
// only one transaction is ever in flight across the process, by design (see
// spec.md §5).
func (s *Store) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(sessionKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, sessionKey{}, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("rollback failed after transaction error")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DB exposes the underlying pool for schema setup and components that
// genuinely need raw access (e.g. LISTEN/NOTIFY, which this service doesn't
// use, but tests may want a handle).
func (s *Store) DB() *sql.DB {
	return s.db
}
