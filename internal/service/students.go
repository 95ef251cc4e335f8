package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/store"
	"github.com/Jagan515/tms-server/internal/utils"
)

// EnrollInput is a new student's profile
type EnrollInput struct {
	Name               string
	RegistrationNumber string
	GuardianEmail      string
	BatchID            *uuid.UUID
	MonthlyFee         decimal.Decimal
	FeeDueDay          int // zero falls back to the joining day
	JoiningDate        time.Time
	Year               int
}

// EnrollStudent creates the student and its fee schedule in one unit
func (s *Service) EnrollStudent(ctx context.Context, teacherID uuid.UUID, in EnrollInput) (*models.Student, int, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.RegistrationNumber) == "" {
		return nil, 0, apperr.NewValidation("name and registration number are required")
	}
	if in.MonthlyFee.IsNegative() {
		return nil, 0, apperr.NewValidation("monthly fee cannot be negative")
	}
	if in.FeeDueDay < 0 || in.FeeDueDay > utils.MaxDueDay {
		return nil, 0, apperr.NewValidation("fee due day must be between 1 and %d", utils.MaxDueDay)
	}
	if in.JoiningDate.IsZero() {
		in.JoiningDate = s.now()
	}
	dueDay := in.FeeDueDay
	if dueDay == 0 {
		dueDay = min(in.JoiningDate.In(s.location()).Day(), utils.MaxDueDay)
	}

	student := &models.Student{
		ID:                 uuid.New(),
		TeacherID:          teacherID,
		BatchID:            in.BatchID,
		Name:               strings.TrimSpace(in.Name),
		RegistrationNumber: strings.TrimSpace(in.RegistrationNumber),
		GuardianEmail:      strings.TrimSpace(in.GuardianEmail),
		MonthlyFee:         in.MonthlyFee,
		FeeDueDay:          dueDay,
		JoiningDate:        in.JoiningDate,
		Status:             models.StudentActive,
	}

	var created int
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateStudent(ctx, student); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.NewValidation("registration number %s already exists", student.RegistrationNumber)
			}
			return err
		}
		if student.MonthlyFee.IsPositive() {
			n, err := s.BackfillStudentFees(ctx, tx, BackfillInput{
				StudentID:   student.ID,
				TeacherID:   teacherID,
				MonthlyFee:  student.MonthlyFee,
				Year:        in.Year,
				JoiningDate: student.JoiningDate,
				DueDay:      student.FeeDueDay,
			})
			if err != nil {
				return err
			}
			created = n
		}

		tx.AfterCommit(func(ctx context.Context) {
			s.audit(ctx, models.AuditEvent{
				UserID:     teacherID,
				ActionType: models.ActionCreate,
				EntityType: "student",
				EntityID:   student.ID,
				NewValue: map[string]any{
					"monthly_fee": student.MonthlyFee.String(),
					"fee_due_day": student.FeeDueDay,
				},
				Metadata: map[string]any{"registration_number": student.RegistrationNumber, "fee_records": created},
			})
		})
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.log.WithFields(logrus.Fields{"student_id": student.ID, "fee_records": created}).Info("Student enrolled")
	return student, created, nil
}

// UpdateFeeInput changes a student's billing terms
type UpdateFeeInput struct {
	MonthlyFee decimal.Decimal
	FeeDueDay  int // zero keeps the current due day
}

// UpdateStudentFee stores the new rate and, when it changed, reprices the
// student's current and future unpaid months in the same unit
func (s *Service) UpdateStudentFee(ctx context.Context, teacherID, studentID uuid.UUID, in UpdateFeeInput) (*models.Student, int64, error) {
	if in.MonthlyFee.IsNegative() {
		return nil, 0, apperr.NewValidation("monthly fee cannot be negative")
	}
	if in.FeeDueDay < 0 || in.FeeDueDay > utils.MaxDueDay {
		return nil, 0, apperr.NewValidation("fee due day must be between 1 and %d", utils.MaxDueDay)
	}

	var (
		updated  *models.Student
		adjusted int64
	)
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		st, err := s.getStudent(ctx, tx, studentID)
		if err != nil {
			return err
		}
		if st.TeacherID != teacherID {
			return apperr.NewForbidden("not authorized to edit this student")
		}

		oldFee := st.MonthlyFee
		dueDay := st.FeeDueDay
		if in.FeeDueDay != 0 {
			dueDay = in.FeeDueDay
		}
		if err := tx.UpdateStudentFee(ctx, studentID, in.MonthlyFee, dueDay); err != nil {
			return err
		}
		if !oldFee.Equal(in.MonthlyFee) {
			s.log.WithFields(logrus.Fields{"student_id": studentID, "old_fee": oldFee.String(), "new_fee": in.MonthlyFee.String()}).
				Info("Monthly fee changed, adjusting future records")
			adjusted, err = s.AdjustFutureFees(ctx, tx, studentID, in.MonthlyFee)
			if err != nil {
				return err
			}
		}

		st.MonthlyFee = in.MonthlyFee
		st.FeeDueDay = dueDay
		updated = st
		count := adjusted
		tx.AfterCommit(func(ctx context.Context) {
			s.audit(ctx, models.AuditEvent{
				UserID:     teacherID,
				ActionType: models.ActionUpdate,
				EntityType: "student",
				EntityID:   studentID,
				OldValue:   map[string]any{"monthly_fee": oldFee.String()},
				NewValue:   map[string]any{"monthly_fee": in.MonthlyFee.String(), "fee_due_day": dueDay},
				Metadata:   map[string]any{"adjusted_records": count},
			})
		})
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return updated, adjusted, nil
}
