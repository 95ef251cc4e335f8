package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/store"
	"github.com/Jagan515/tms-server/internal/utils"
)

// PaymentInput selects the fee records a teacher is collecting for
type PaymentInput struct {
	StudentID  uuid.UUID
	FeeIDs     []uuid.UUID
	Method     models.PaymentMethod
	Notes      string
	RecordedBy uuid.UUID
}

func (in PaymentInput) validate() error {
	if in.StudentID == uuid.Nil {
		return apperr.NewValidation("student is required")
	}
	if len(in.FeeIDs) == 0 {
		return apperr.NewValidation("at least one month must be selected")
	}
	if !in.Method.Valid() {
		return apperr.NewValidation("invalid payment method %q", in.Method)
	}
	if in.RecordedBy == uuid.Nil {
		return apperr.NewValidation("recording user is required")
	}
	return nil
}

func sumFees(fees []models.FeeRecord) decimal.Decimal {
	return lo.Reduce(fees, func(acc decimal.Decimal, f models.FeeRecord, _ int) decimal.Decimal {
		return acc.Add(f.Amount)
	}, decimal.Zero)
}

// RecordPayment marks the selected unpaid fee records paid and writes one
// payment transaction covering them, all in one atomic unit.
func (s *Service) RecordPayment(ctx context.Context, teacherID uuid.UUID, in PaymentInput) (*models.PaymentTransaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		payment *models.PaymentTransaction
		fees    []models.FeeRecord
	)
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		student, err := s.getStudent(ctx, tx, in.StudentID)
		if err != nil {
			return err
		}
		if student.TeacherID != teacherID {
			return apperr.NewForbidden("student does not belong to this teacher")
		}

		fees, err = tx.FindUnpaidFees(ctx, in.StudentID, in.FeeIDs)
		if err != nil {
			return err
		}
		if len(fees) != len(in.FeeIDs) {
			return apperr.NewValidation("one or more selected months are invalid or already paid")
		}

		now := s.now()
		receipt, err := utils.GenerateReceiptNumber(now)
		if err != nil {
			return err
		}
		payment = &models.PaymentTransaction{
			ID:          uuid.New(),
			StudentID:   in.StudentID,
			TeacherID:   teacherID,
			TotalAmount: sumFees(fees),
			MonthsCovered: lo.Map(fees, func(f models.FeeRecord, _ int) models.CoveredMonth {
				return models.CoveredMonth{Month: f.Month, Year: f.Year, FeeID: f.ID}
			}),
			PaymentDate:   now,
			PaymentMethod: in.Method,
			ReceiptNumber: receipt,
			MarkedBy:      in.RecordedBy,
			Notes:         in.Notes,
		}

		// Fees are marked before the ledger row is written: an interrupted
		// best-effort unit leaves months paid, never payable twice.
		ids := lo.Map(fees, func(f models.FeeRecord, _ int) uuid.UUID { return f.ID })
		marked, err := tx.MarkFeesPaid(ctx, ids, models.FeePayment{
			PaidAt:        now,
			Method:        in.Method,
			MarkedBy:      in.RecordedBy,
			TransactionID: payment.ID,
		})
		if err != nil {
			return err
		}
		if marked != int64(len(ids)) {
			return fmt.Errorf("marked %d of %d fee records paid, records changed concurrently", marked, len(ids))
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		recorded := *payment
		tx.AfterCommit(func(ctx context.Context) {
			s.audit(ctx, models.AuditEvent{
				UserID:     in.RecordedBy,
				ActionType: models.ActionProcessPayment,
				EntityType: "fee",
				EntityID:   recorded.ID,
				NewValue: map[string]any{
					"total_amount":   recorded.TotalAmount.String(),
					"payment_method": string(recorded.PaymentMethod),
				},
				Metadata: map[string]any{
					"student_id":  recorded.StudentID.String(),
					"months_paid": len(recorded.MonthsCovered),
					"receipt":     recorded.ReceiptNumber,
				},
			})
		})
		tx.AfterCommit(func(ctx context.Context) {
			s.queuePaymentReceipt(ctx, recorded)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"student_id": payment.StudentID,
		"receipt":    payment.ReceiptNumber,
		"amount":     payment.TotalAmount.String(),
		"months":     len(payment.MonthsCovered),
	}).Info("Payment recorded")
	return payment, nil
}
