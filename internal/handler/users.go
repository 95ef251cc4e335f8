package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/models"
)

type createUserRequest struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role" validate:"required,oneof=developer teacher student parent"`
	StudentID string `json:"studentId" validate:"omitempty,uuid"`
}

// CreateUser provisions an account
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	role := models.Role(req.Role)

	var studentID *uuid.UUID
	if req.StudentID != "" {
		id := uuid.MustParse(req.StudentID)
		studentID = &id
	}
	if (role == models.RoleStudent || role == models.RoleParent) && studentID == nil {
		h.writeError(w, r, apperr.NewValidation("studentId is required for %s accounts", role))
		return
	}

	user, err := h.svc.CreateUser(r.Context(), req.Name, req.Email, req.Password, role, studentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}
