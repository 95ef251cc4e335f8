package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit action types
const (
	ActionCreate         = "CREATE"
	ActionUpdate         = "UPDATE"
	ActionProcessPayment = "PROCESS_PAYMENT"
	ActionGenerateFees   = "GENERATE_FEES"
)

// AuditEvent records who did what to which entity
type AuditEvent struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	ActionType string         `json:"action_type"`
	EntityType string         `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	OldValue   map[string]any `json:"old_value,omitempty"`
	NewValue   map[string]any `json:"new_value,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
