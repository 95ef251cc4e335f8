package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level of an account
type Role string

const (
	RoleDeveloper Role = "developer"
	RoleTeacher   Role = "teacher"
	RoleStudent   Role = "student"
	RoleParent    Role = "parent"
)

// User represents an account in the system
type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Not serialized
	Role         Role       `json:"role"`
	StudentID    *uuid.UUID `json:"student_id,omitempty"` // set for student and parent accounts
	CreatedAt    time.Time  `json:"created_at"`
}
