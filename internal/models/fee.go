package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeStatus is the lifecycle state of a fee record
type FeeStatus string

const (
	FeeUnpaid  FeeStatus = "unpaid"
	FeePaid    FeeStatus = "paid"
	FeeSkipped FeeStatus = "skipped"
)

// JoiningMonthReason is stored on the skipped record of a student's first month
const JoiningMonthReason = "Joining month"

// FeeRecord is one month's billing obligation for one student
type FeeRecord struct {
	ID            uuid.UUID       `json:"id"`
	StudentID     uuid.UUID       `json:"student_id"`
	TeacherID     uuid.UUID       `json:"teacher_id"`
	Month         int             `json:"month"`
	Year          int             `json:"year"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	Status        FeeStatus       `json:"status"`
	SkippedReason string          `json:"skipped_reason,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method,omitempty"`
	MarkedBy      *uuid.UUID      `json:"marked_by,omitempty"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Period returns the record's (year, month) as a sortable index
func (f FeeRecord) Period() int {
	return f.Year*12 + f.Month - 1
}

// FeePayment carries the fields stamped on fee records when they are paid
type FeePayment struct {
	PaidAt        time.Time
	Method        PaymentMethod
	MarkedBy      uuid.UUID
	TransactionID uuid.UUID
}
