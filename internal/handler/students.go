package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/service"
)

type enrollRequest struct {
	Name               string          `json:"name" validate:"required,max=200"`
	RegistrationNumber string          `json:"registrationNumber" validate:"required,max=50"`
	GuardianEmail      string          `json:"guardianEmail" validate:"omitempty,email"`
	BatchID            string          `json:"batchId" validate:"omitempty,uuid"`
	MonthlyFee         decimal.Decimal `json:"monthlyFee"`
	FeePaymentDay      int             `json:"feePaymentDay" validate:"min=0,max=28"`
	JoiningDate        string          `json:"joiningDate" validate:"omitempty,datetime=2006-01-02"`
	Year               int             `json:"year" validate:"omitempty,min=2000,max=2100"`
}

type updateFeeRequest struct {
	MonthlyFee    *decimal.Decimal `json:"monthlyFee" validate:"required"`
	FeePaymentDay int              `json:"feePaymentDay" validate:"min=0,max=28"`
}

// EnrollStudent creates a student together with the year's fee schedule
func (h *Handler) EnrollStudent(w http.ResponseWriter, r *http.Request) {
	teacherID, err := callerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req enrollRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	in := service.EnrollInput{
		Name:               req.Name,
		RegistrationNumber: req.RegistrationNumber,
		GuardianEmail:      req.GuardianEmail,
		MonthlyFee:         req.MonthlyFee,
		FeeDueDay:          req.FeePaymentDay,
		Year:               req.Year,
	}
	if req.BatchID != "" {
		id := uuid.MustParse(req.BatchID)
		in.BatchID = &id
	}
	if req.JoiningDate != "" {
		joined, err := time.ParseInLocation("2006-01-02", req.JoiningDate, h.svc.Location())
		if err != nil {
			h.writeError(w, r, apperr.NewValidation("invalid joiningDate"))
			return
		}
		in.JoiningDate = joined
	}

	student, created, err := h.svc.EnrollStudent(r.Context(), teacherID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"student": student, "feeRecords": created})
}

// UpdateStudentFee changes a student's monthly rate
func (h *Handler) UpdateStudentFee(w http.ResponseWriter, r *http.Request) {
	teacherID, err := callerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	studentID, err := pathID(r, "studentId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req updateFeeRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	student, adjusted, err := h.svc.UpdateStudentFee(r.Context(), teacherID, studentID, service.UpdateFeeInput{
		MonthlyFee: *req.MonthlyFee,
		FeeDueDay:  req.FeePaymentDay,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"student": student, "adjustedRecords": adjusted})
}
