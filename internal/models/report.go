package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OverdueGroup aggregates a student's unpaid fee records whose due date has passed
type OverdueGroup struct {
	StudentID     uuid.UUID
	UnpaidCount   int
	TotalPending  decimal.Decimal
	OldestDueDate time.Time
}

// Defaulter is a student with overdue unpaid months
type Defaulter struct {
	StudentID          uuid.UUID       `json:"student_id"`
	Name               string          `json:"name"`
	RegistrationNumber string          `json:"registration_number"`
	BatchID            *uuid.UUID      `json:"batch_id,omitempty"`
	UnpaidMonths       int             `json:"unpaid_months"`
	TotalPending       decimal.Decimal `json:"total_pending"`
	OldestDueDate      time.Time       `json:"oldest_due_date"`
	OverdueDays        int             `json:"overdue_days"`
}

// DefaulterFilter narrows the defaulter listing
type DefaulterFilter struct {
	MinMonths int
	BatchID   *uuid.UUID
}

// PendingSummary totals a student's outstanding fees
type PendingSummary struct {
	TotalPending decimal.Decimal `json:"total_pending"`
	UnpaidCount  int             `json:"unpaid_count"`
	OldestDue    *time.Time      `json:"oldest_due"`
}

// RegistryFilter narrows the teacher's fee registry
type RegistryFilter struct {
	Month   int
	Year    int
	BatchID *uuid.UUID
}

// GenerationResult reports a bulk monthly generation run
type GenerationResult struct {
	Created int `json:"created"`
	Checked int `json:"total_checked"`
	Failed  int `json:"failed"`
}
