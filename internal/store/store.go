// Package store defines the persistence contract shared by the PostgreSQL
// repository and the in-memory store.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Jagan515/tms-server/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrImmutable is returned when a payment transaction would be modified.
	ErrImmutable = errors.New("payment history records are immutable")
)

// FeeStore persists fee records.
type FeeStore interface {
	// InsertFees inserts all records; any (student, month, year) clash fails with ErrDuplicate.
	InsertFees(ctx context.Context, fees []*models.FeeRecord) error
	// InsertFeeIfAbsent inserts fee unless one exists for its period and reports whether it did.
	InsertFeeIfAbsent(ctx context.Context, fee *models.FeeRecord) (bool, error)
	FeeExists(ctx context.Context, studentID uuid.UUID, month, year int) (bool, error)
	// FindUnpaidFees loads the listed records that are unpaid and belong to studentID.
	FindUnpaidFees(ctx context.Context, studentID uuid.UUID, ids []uuid.UUID) ([]models.FeeRecord, error)
	MarkFeesPaid(ctx context.Context, ids []uuid.UUID, p models.FeePayment) (int64, error)
	// UpdateUnpaidFeesFrom sets amount on unpaid records at or after (year, month).
	UpdateUnpaidFeesFrom(ctx context.Context, studentID uuid.UUID, year, month int, amount decimal.Decimal) (int64, error)
	ListStudentFees(ctx context.Context, studentID uuid.UUID) ([]models.FeeRecord, error)
	ListUnpaidFees(ctx context.Context, studentID uuid.UUID) ([]models.FeeRecord, error)
	ListTeacherFees(ctx context.Context, teacherID uuid.UUID, filter models.RegistryFilter) ([]models.FeeRecord, error)
	// OverdueGroups aggregates unpaid records due before asOf, per student.
	OverdueGroups(ctx context.Context, teacherID uuid.UUID, asOf time.Time) ([]models.OverdueGroup, error)
}

// PaymentStore persists payment transactions. It is append-only.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p *models.PaymentTransaction) error
	GetPaymentByReceipt(ctx context.Context, receipt string) (*models.PaymentTransaction, error)
	ListStudentPayments(ctx context.Context, studentID uuid.UUID) ([]models.PaymentTransaction, error)
	// ListTeacherPayments returns the newest payments first; a non-nil studentIDs narrows the result.
	ListTeacherPayments(ctx context.Context, teacherID uuid.UUID, studentIDs []uuid.UUID, limit int) ([]models.PaymentTransaction, error)
}

// StudentStore is the student directory.
type StudentStore interface {
	CreateStudent(ctx context.Context, s *models.Student) error
	GetStudent(ctx context.Context, id uuid.UUID) (*models.Student, error)
	UpdateStudentFee(ctx context.Context, id uuid.UUID, monthlyFee decimal.Decimal, dueDay int) error
	ListActiveStudents(ctx context.Context) ([]models.Student, error)
	ListBatchStudentIDs(ctx context.Context, teacherID, batchID uuid.UUID) ([]uuid.UUID, error)
}

// UserStore holds login accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuditStore records audit events.
type AuditStore interface {
	CreateAuditEvent(ctx context.Context, e *models.AuditEvent) error
	PurgeAuditEvents(ctx context.Context, before time.Time) (int64, error)
}

// OutboxStore queues emails for background delivery.
type OutboxStore interface {
	EnqueueEmail(ctx context.Context, e *models.OutboxEmail) error
	// PendingEmails returns pending or failed emails with fewer than maxRetries attempts.
	PendingEmails(ctx context.Context, maxRetries, limit int) ([]models.OutboxEmail, error)
	MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkEmailFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// Queries is everything reachable inside or outside an atomic unit.
type Queries interface {
	FeeStore
	PaymentStore
	StudentStore
	UserStore
	AuditStore
	OutboxStore
}

// Tx is the view of the store handed to an atomic unit.
type Tx interface {
	Queries
	// AfterCommit registers hook to run once the unit has committed.
	AfterCommit(hook Hook)
}

// Store is the full persistence surface.
type Store interface {
	Queries
	// Atomic runs fn as one unit. With transaction support every write in fn
	// commits or rolls back together; without it writes apply one by one and
	// a failure after a write is reported as apperr.IndeterminateError.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Transactional() bool
}
