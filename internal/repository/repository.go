package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/store"
)

//go:embed schema.sql
var schema string

// dbtx is satisfied by both *sql.DB and *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository provides database operations
type Repository struct {
	conn        *sql.DB
	db          dbtx
	log         *logrus.Logger
	txSupported bool
	writes      *int64
	hooks       *store.Hooks
}

// NewRepository initializes a new repository. txSupported=false makes atomic
// units run as sequential writes, for connections behind a statement-pooling
// proxy that rejects multi-statement transactions.
func NewRepository(db *sql.DB, log *logrus.Logger, txSupported bool) *Repository {
	return &Repository{
		conn:        db,
		db:          db,
		log:         log,
		txSupported: txSupported,
		writes:      new(int64),
	}
}

// Migrate creates the schema if it does not exist
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *Repository) Transactional() bool {
	return r.txSupported
}

// AfterCommit registers a hook; only valid on the repository handed to an atomic unit
func (r *Repository) AfterCommit(hook store.Hook) {
	r.hooks.Add(hook)
}

func (r *Repository) wrote() {
	atomic.AddInt64(r.writes, 1)
}

// Atomic runs fn in a transaction, or as best-effort sequential writes when
// transactions are unavailable
func (r *Repository) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	unit := &Repository{
		conn:        r.conn,
		db:          r.conn,
		log:         r.log,
		txSupported: r.txSupported,
		writes:      new(int64),
		hooks:       &store.Hooks{},
	}

	if !r.txSupported {
		r.log.Warn("Transactions not supported, running atomic unit as best-effort sequential writes")
		if err := fn(ctx, unit); err != nil {
			if atomic.LoadInt64(unit.writes) > 0 && !apperr.IsValidation(err) {
				return apperr.NewIndeterminate(err)
			}
			return err
		}
		unit.hooks.Run(ctx, r.log)
		return nil
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	unit.db = tx

	if err := fn(ctx, unit); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.log.Errorf("Failed to roll back transaction: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	unit.hooks.Run(ctx, r.log)
	return nil
}

// mapError translates driver errors into store sentinels
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return store.ErrDuplicate
		case "P0001":
			return store.ErrImmutable
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func nullableID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func idPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

var _ store.Store = (*Repository)(nil)
var _ store.Tx = (*Repository)(nil)
