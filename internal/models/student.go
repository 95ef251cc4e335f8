package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StudentStatus marks whether a student is billed by the monthly run
type StudentStatus string

const (
	StudentActive   StudentStatus = "active"
	StudentInactive StudentStatus = "inactive"
)

// Student is the directory entry the fee engines read
type Student struct {
	ID                 uuid.UUID       `json:"id"`
	TeacherID          uuid.UUID       `json:"teacher_id"`
	BatchID            *uuid.UUID      `json:"batch_id,omitempty"`
	Name               string          `json:"name"`
	RegistrationNumber string          `json:"registration_number"`
	GuardianEmail      string          `json:"guardian_email,omitempty"`
	MonthlyFee         decimal.Decimal `json:"monthly_fee"`
	FeeDueDay          int             `json:"fee_due_day"`
	JoiningDate        time.Time       `json:"joining_date"`
	Status             StudentStatus   `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
