// Package sqlite implements the store repositories on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/dvloznov/finance-ingest/internal/store"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repos binds every repository to one querier.
type repos struct {
	q querier
}

func (r repos) Documents() store.DocumentRepository { return &documentRepository{q: r.q} }
func (r repos) Transactions() store.TransactionRepository { return &transactionRepository{q: r.q} }
func (r repos) Categories() store.CategoryRepository { return &categoryRepository{q: r.q} }
func (r repos) Budgets() store.BudgetRepository { return &budgetRepository{q: r.q} }
func (r repos) Notifications() store.NotificationRepository { return &notificationRepository{q: r.q} }

// DB is the SQLite-backed store.Database.
type DB struct {
	repos
	db *sql.DB
}

var _ store.Database = (*DB)(nil)

// dsnParams opens every session with BEGIN IMMEDIATE so that concurrent
// read-then-write sessions queue on busy_timeout instead of failing with
// SQLITE_BUSY_SNAPSHOT when upgrading a WAL read lock.
const dsnParams = "?_txlock=immediate" +
	"&_pragma=journal_mode(wal)" +
	"&_pragma=synchronous(normal)" +
	"&_pragma=foreign_keys(on)" +
	"&_pragma=busy_timeout(5000)"

// Open opens or creates the database at the given path and applies the schema.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("Open: creating db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("Open: opening db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("Open: creating schema: %w", err)
	}

	return &DB{repos: repos{q: db}, db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Begin opens a session backed by one SQLite transaction.
func (d *DB) Begin(ctx context.Context) (store.Session, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Begin: %w", err)
	}
	return &session{repos: repos{q: tx}, tx: tx}, nil
}

type session struct {
	repos
	tx *sql.Tx

	mu   sync.Mutex
	done bool
}

func (s *session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return sql.ErrTxDone
	}
	s.done = true
	return s.tx.Commit()
}

func (s *session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Rollback()
}
