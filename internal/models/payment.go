package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how a payment was collected
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "Cash"
	MethodOnline PaymentMethod = "Online"
	MethodCheque PaymentMethod = "Cheque"
	MethodCard   PaymentMethod = "Card"
	MethodOther  PaymentMethod = "Other"
)

// Valid reports whether m is one of the accepted payment methods
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodOnline, MethodCheque, MethodCard, MethodOther:
		return true
	}
	return false
}

// CoveredMonth is one fee record settled by a payment
type CoveredMonth struct {
	Month int       `json:"month"`
	Year  int       `json:"year"`
	FeeID uuid.UUID `json:"fee_id"`
}

// PaymentTransaction is an immutable collection event covering one or more fee records
type PaymentTransaction struct {
	ID            uuid.UUID       `json:"id"`
	StudentID     uuid.UUID       `json:"student_id"`
	TeacherID     uuid.UUID       `json:"teacher_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	MonthsCovered []CoveredMonth  `json:"months_covered"`
	PaymentDate   time.Time       `json:"payment_date"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	ReceiptNumber string          `json:"receipt_number"`
	MarkedBy      uuid.UUID       `json:"marked_by"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
