package models

import (
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of a queued email
type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxSent    OutboxStatus = "sent"
	OutboxFailed  OutboxStatus = "failed"
)

// OutboxEmail is an email waiting for background delivery
type OutboxEmail struct {
	ID         uuid.UUID    `json:"id"`
	Recipient  string       `json:"recipient"`
	Subject    string       `json:"subject"`
	Body       string       `json:"body"`
	Status     OutboxStatus `json:"status"`
	RetryCount int          `json:"retry_count"`
	LastError  string       `json:"last_error,omitempty"`
	SentAt     *time.Time   `json:"sent_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}
