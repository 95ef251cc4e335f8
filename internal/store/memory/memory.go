// Package memory is an in-process store.Store used by tests and local runs.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/store"
)

type tables struct {
	fees     map[uuid.UUID]*models.FeeRecord
	payments map[uuid.UUID]*models.PaymentTransaction
	students map[uuid.UUID]*models.Student
	users    map[uuid.UUID]*models.User
	audit    map[uuid.UUID]*models.AuditEvent
	outbox   map[uuid.UUID]*models.OutboxEmail
}

func newTables() tables {
	return tables{
		fees:     make(map[uuid.UUID]*models.FeeRecord),
		payments: make(map[uuid.UUID]*models.PaymentTransaction),
		students: make(map[uuid.UUID]*models.Student),
		users:    make(map[uuid.UUID]*models.User),
		audit:    make(map[uuid.UUID]*models.AuditEvent),
		outbox:   make(map[uuid.UUID]*models.OutboxEmail),
	}
}

// undoLog records how to revert each row a transactional unit touched.
// Rows written outside the unit are left alone on rollback.
type undoLog struct {
	steps []func()
}

// track saves the current state of rows[id] before a write. It must be
// called with db.mu held and is a no-op outside a transactional unit.
func track[T any](s *Store, rows map[uuid.UUID]*T, id uuid.UUID) {
	if s.undo == nil {
		return
	}
	prev, existed := rows[id]
	var saved T
	if existed {
		saved = *prev
	}
	s.undo.steps = append(s.undo.steps, func() {
		if !existed {
			delete(rows, id)
			return
		}
		row := saved
		rows[id] = &row
	})
}

// rollback must be called with db.mu held.
func (l *undoLog) rollback() {
	for i := len(l.steps) - 1; i >= 0; i-- {
		l.steps[i]()
	}
	l.steps = nil
}

type db struct {
	mu     sync.RWMutex
	txMu   sync.Mutex // serializes atomic units
	t      tables
	faults map[string]error
}

// Store keeps all tables in maps guarded by a mutex.
type Store struct {
	db            *db
	log           *logrus.Logger
	transactional bool
	writes        *int64
	undo          *undoLog
}

// NewStore creates an empty store. With transactional=false atomic units
// degrade to sequential best-effort writes, like a database without
// multi-statement transactions.
func NewStore(log *logrus.Logger, transactional bool) *Store {
	return &Store{
		db:            &db{t: newTables(), faults: make(map[string]error)},
		log:           log,
		transactional: transactional,
		writes:        new(int64),
	}
}

// InjectFault makes every later call of the named method fail with err.
// A nil err clears the fault.
func (s *Store) InjectFault(method string, err error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err == nil {
		delete(s.db.faults, method)
		return
	}
	s.db.faults[method] = err
}

// fault must be called with db.mu held.
func (s *Store) fault(method string) error {
	return s.db.faults[method]
}

func (s *Store) wrote() {
	atomic.AddInt64(s.writes, 1)
}

func (s *Store) Transactional() bool {
	return s.transactional
}

type unit struct {
	*Store
	hooks *store.Hooks
}

func (u *unit) AfterCommit(hook store.Hook) {
	u.hooks.Add(hook)
}

// Atomic implements store.Store.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	view := *s
	view.writes = new(int64)
	u := &unit{Store: &view, hooks: &store.Hooks{}}

	if !s.transactional {
		s.log.Warn("Transactions not supported, running atomic unit as best-effort sequential writes")
		if err := fn(ctx, u); err != nil {
			if atomic.LoadInt64(view.writes) > 0 && !apperr.IsValidation(err) {
				return apperr.NewIndeterminate(err)
			}
			return err
		}
		u.hooks.Run(ctx, s.log)
		return nil
	}

	view.undo = &undoLog{}
	if err := fn(ctx, u); err != nil {
		s.db.mu.Lock()
		view.undo.rollback()
		s.db.mu.Unlock()
		return err
	}
	u.hooks.Run(ctx, s.log)
	return nil
}
