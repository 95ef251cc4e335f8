package handler

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/middleware"
	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/service"
)

type recordPaymentRequest struct {
	StudentID     string   `json:"studentId" validate:"required,uuid"`
	FeeIDs        []string `json:"feeIds" validate:"required,min=1,dive,uuid"`
	PaymentMethod string   `json:"paymentMethod" validate:"required,oneof=Cash Online Cheque Card Other"`
	Notes         string   `json:"notes" validate:"max=500"`
}

// GenerateMonthly runs the monthly fee generation on demand
func (h *Handler) GenerateMonthly(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GenerateMonthlyFees(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Auto-generation process completed",
		"created":       result.Created,
		"total_checked": result.Checked,
		"failed":        result.Failed,
	})
}

// Registry lists the teacher's fee records
func (h *Handler) Registry(w http.ResponseWriter, r *http.Request) {
	teacherID, err := callerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	month, err := queryInt(r, "month")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	year, err := queryInt(r, "year")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	batchID, err := queryID(r, "batchId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fees, err := h.svc.Registry(r.Context(), teacherID, models.RegistryFilter{Month: month, Year: year, BatchID: batchID})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fees": nonNil(fees)})
}

// RecordPayment marks selected months paid
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	teacherID, err := callerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req recordPaymentRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	in := service.PaymentInput{
		StudentID:  uuid.MustParse(req.StudentID),
		FeeIDs:     lo.Map(req.FeeIDs, func(id string, _ int) uuid.UUID { return uuid.MustParse(id) }),
		Method:     models.PaymentMethod(req.PaymentMethod),
		Notes:      req.Notes,
		RecordedBy: teacherID,
	}
	payment, err := h.svc.RecordPayment(r.Context(), teacherID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Payment recorded successfully",
		"history": payment,
	})
}

// Defaulters lists students with overdue fees
func (h *Handler) Defaulters(w http.ResponseWriter, r *http.Request) {
	teacherID, err := callerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	minMonths, err := queryInt(r, "minMonths")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	batchID, err := queryID(r, "batchId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	defaulters, err := h.svc.Defaulters(r.Context(), teacherID, models.DefaulterFilter{MinMonths: minMonths, BatchID: batchID})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"defaulters": defaulters})
}

// PaymentHistory lists the teacher's recent payments
func (h *Handler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	teacherID, err := callerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	batchID, err := queryID(r, "batchId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	history, err := h.svc.TeacherPaymentHistory(r.Context(), teacherID, batchID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": nonNil(history)})
}

// authorizeStudent checks the caller may read the student's fee data
func (h *Handler) authorizeStudent(r *http.Request, studentID uuid.UUID) error {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		return apperr.NewForbidden("not authenticated")
	}
	switch claims.Role {
	case models.RoleTeacher:
		teacherID, err := claims.UserID()
		if err != nil {
			return apperr.NewForbidden("invalid caller")
		}
		_, err = h.svc.StudentForTeacher(r.Context(), teacherID, studentID)
		return err
	case models.RoleStudent, models.RoleParent:
		linked, ok := claims.LinkedStudent()
		if !ok || linked != studentID {
			return apperr.NewForbidden("access limited to your own records")
		}
		return nil
	}
	return apperr.NewForbidden("access denied")
}

// StudentFees returns one student's fee records and pending summary
func (h *Handler) StudentFees(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "studentId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.authorizeStudent(r, studentID); err != nil {
		h.writeError(w, r, err)
		return
	}

	fees, err := h.svc.StudentFees(r.Context(), studentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	summary, err := h.svc.PendingSummary(r.Context(), studentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fees": nonNil(fees), "summary": summary})
}

// StudentPaymentHistory returns one student's payments
func (h *Handler) StudentPaymentHistory(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "studentId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.authorizeStudent(r, studentID); err != nil {
		h.writeError(w, r, err)
		return
	}

	history, err := h.svc.StudentPaymentHistory(r.Context(), studentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": nonNil(history)})
}

// ReceiptXML exports a payment receipt for accounting
func (h *Handler) ReceiptXML(w http.ResponseWriter, r *http.Request) {
	teacherID, err := callerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	payment, err := h.svc.PaymentByReceipt(r.Context(), teacherID, mux.Vars(r)["receipt"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	student, err := h.svc.StudentForTeacher(r.Context(), teacherID, payment.StudentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	doc, err := h.receipts.Render(payment, student)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

const maxReceiptSize = 1 << 20

// VerifyReceipt checks the signature of an exported XML receipt
func (h *Handler) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReceiptSize))
	if err != nil {
		h.writeError(w, r, apperr.NewValidation("invalid receipt body: %v", err))
		return
	}
	valid, err := h.receipts.Verify(data)
	if err != nil {
		h.writeError(w, r, apperr.NewValidation("%v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
