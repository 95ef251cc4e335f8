package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/store"
	"github.com/Jagan515/tms-server/internal/utils"
)

// feeForMonth builds the record owed for (year, month) by a student who
// joined in (joinYear, joinMonth). It returns nil for months before joining.
func feeForMonth(studentID, teacherID uuid.UUID, monthlyFee decimal.Decimal, year, month, joinYear, joinMonth, dueDay int, loc *time.Location) *models.FeeRecord {
	period := utils.PeriodIndex(year, month)
	joined := utils.PeriodIndex(joinYear, joinMonth)

	fee := &models.FeeRecord{
		StudentID: studentID,
		TeacherID: teacherID,
		Month:     month,
		Year:      year,
	}
	switch {
	case period == joined:
		fee.Amount = decimal.Zero
		fee.Status = models.FeeSkipped
		fee.SkippedReason = models.JoiningMonthReason
	case period > joined:
		due := utils.DueDate(year, month, dueDay, loc)
		fee.Amount = monthlyFee
		fee.Status = models.FeeUnpaid
		fee.DueDate = &due
	default:
		return nil
	}
	return fee
}

// GenerateMonthlyFees makes sure every active student has a record for the
// current month. Re-running it for the same month creates nothing.
func (s *Service) GenerateMonthlyFees(ctx context.Context) (models.GenerationResult, error) {
	var result models.GenerationResult
	loc := s.location()
	year, month := utils.YearMonth(s.now(), loc)

	students, err := s.store.ListActiveStudents(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list active students: %w", err)
	}

	for _, st := range students {
		result.Checked++
		created, err := s.generateCurrentMonth(ctx, st, year, month)
		if err != nil {
			result.Failed++
			s.log.WithFields(logrus.Fields{"student_id": st.ID, "month": month, "year": year}).
				Errorf("Failed to generate monthly fee: %v", err)
			continue
		}
		if created {
			result.Created++
		}
	}

	s.log.WithFields(logrus.Fields{
		"month": month, "year": year,
		"created": result.Created, "checked": result.Checked, "failed": result.Failed,
	}).Info("Monthly fee generation completed")
	return result, nil
}

func (s *Service) generateCurrentMonth(ctx context.Context, st models.Student, year, month int) (bool, error) {
	exists, err := s.store.FeeExists(ctx, st.ID, month, year)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	loc := s.location()
	joinYear, joinMonth := utils.YearMonth(st.JoiningDate, loc)
	dueDay := utils.ResolveDueDay(st.FeeDueDay, s.config.DefaultDueDay)
	fee := feeForMonth(st.ID, st.TeacherID, st.MonthlyFee, year, month, joinYear, joinMonth, dueDay, loc)
	if fee == nil {
		return false, nil
	}
	// a concurrent run may have inserted the period since the check
	return s.store.InsertFeeIfAbsent(ctx, fee)
}

// BackfillInput describes the fee schedule of a newly enrolled student
type BackfillInput struct {
	StudentID   uuid.UUID
	TeacherID   uuid.UUID
	MonthlyFee  decimal.Decimal
	Year        int // zero means the joining year
	JoiningDate time.Time
	DueDay      int
}

// BackfillStudentFees creates one record per month from joining through
// December of the target year. It must run inside the enrollment unit.
func (s *Service) BackfillStudentFees(ctx context.Context, q store.FeeStore, in BackfillInput) (int, error) {
	if in.MonthlyFee.IsNegative() {
		return 0, apperr.NewValidation("monthly fee cannot be negative")
	}

	loc := s.location()
	joinYear, joinMonth := utils.YearMonth(in.JoiningDate, loc)
	year := in.Year
	if year == 0 {
		year = joinYear
	}
	if year < joinYear {
		return 0, apperr.NewValidation("fee year %d precedes joining year %d", year, joinYear)
	}
	dueDay := utils.ResolveDueDay(in.DueDay, s.config.DefaultDueDay)

	var fees []*models.FeeRecord
	for month := 1; month <= 12; month++ {
		if fee := feeForMonth(in.StudentID, in.TeacherID, in.MonthlyFee, year, month, joinYear, joinMonth, dueDay, loc); fee != nil {
			fees = append(fees, fee)
		}
	}
	if len(fees) == 0 {
		return 0, nil
	}
	if err := q.InsertFees(ctx, fees); err != nil {
		return 0, fmt.Errorf("failed to insert fee schedule: %w", err)
	}

	s.log.WithFields(logrus.Fields{"student_id": in.StudentID, "year": year, "records": len(fees)}).
		Info("Fee schedule generated")
	return len(fees), nil
}
