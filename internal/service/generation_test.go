package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/models"
)

type GenerationSuite struct {
	serviceSuite
}

func TestGeneration(t *testing.T) {
	suite.Run(t, new(GenerationSuite))
}

func (s *GenerationSuite) createStudent(joined time.Time, fee int64, dueDay int, status models.StudentStatus) *models.Student {
	st := &models.Student{
		TeacherID:          s.teacherID,
		Name:               "Student " + joined.Format("0102"),
		RegistrationNumber: "REG-" + uuid.NewString()[:8],
		MonthlyFee:         decimal.NewFromInt(fee),
		FeeDueDay:          dueDay,
		JoiningDate:        joined,
		Status:             status,
	}
	s.Require().NoError(s.store.CreateStudent(s.ctx, st))
	return st
}

func (s *GenerationSuite) TestBackfillJoiningYear() {
	student := s.enroll("Asha Rao", "T-001", nil)

	fees := s.feesByMonth(student.ID)
	s.Len(fees, 7)

	june := fees[6]
	s.Equal(models.FeeSkipped, june.Status)
	s.True(june.Amount.IsZero())
	s.Equal(models.JoiningMonthReason, june.SkippedReason)
	s.Nil(june.DueDate)

	for month := 7; month <= 12; month++ {
		f := fees[month]
		s.Equal(models.FeeUnpaid, f.Status, "month %d", month)
		s.True(f.Amount.Equal(decimal.NewFromInt(1000)), "month %d", month)
		s.Require().NotNil(f.DueDate)
		s.Equal(date(2025, month, 15), *f.DueDate)
	}
	for month := 1; month <= 5; month++ {
		_, ok := fees[month]
		s.False(ok, "no record before joining, month %d", month)
	}
}

func (s *GenerationSuite) TestBackfillLaterYearIsFullYear() {
	n, err := s.svc.BackfillStudentFees(s.ctx, s.store, BackfillInput{
		StudentID:   uuid.New(),
		TeacherID:   s.teacherID,
		MonthlyFee:  decimal.NewFromInt(500),
		Year:        2026,
		JoiningDate: date(2025, 6, 15),
		DueDay:      10,
	})
	s.Require().NoError(err)
	s.Equal(12, n)
}

func (s *GenerationSuite) TestBackfillRejectsInvalidInput() {
	studentID := uuid.New()

	_, err := s.svc.BackfillStudentFees(s.ctx, s.store, BackfillInput{
		StudentID:   studentID,
		TeacherID:   s.teacherID,
		MonthlyFee:  decimal.NewFromInt(500),
		Year:        2024,
		JoiningDate: date(2025, 6, 15),
	})
	s.True(apperr.IsValidation(err))

	_, err = s.svc.BackfillStudentFees(s.ctx, s.store, BackfillInput{
		StudentID:   studentID,
		TeacherID:   s.teacherID,
		MonthlyFee:  decimal.NewFromInt(-1),
		JoiningDate: date(2025, 6, 15),
	})
	s.True(apperr.IsValidation(err))

	fees, err := s.store.ListStudentFees(s.ctx, studentID)
	s.Require().NoError(err)
	s.Empty(fees)
}

func (s *GenerationSuite) TestBackfillUsesDefaultDueDay() {
	studentID := uuid.New()
	_, err := s.svc.BackfillStudentFees(s.ctx, s.store, BackfillInput{
		StudentID:   studentID,
		TeacherID:   s.teacherID,
		MonthlyFee:  decimal.NewFromInt(500),
		JoiningDate: date(2025, 10, 3),
	})
	s.Require().NoError(err)

	fees := s.feesByMonth(studentID)
	s.Require().NotNil(fees[11].DueDate)
	s.Equal(date(2025, 11, 15), *fees[11].DueDate)
}

func (s *GenerationSuite) TestMonthlyGenerationIsIdempotent() {
	s.enroll("Asha Rao", "T-001", nil)
	earlier := s.createStudent(date(2025, 3, 10), 800, 10, models.StudentActive)
	joinedThisMonth := s.createStudent(date(2025, 7, 3), 900, 3, models.StudentActive)
	s.createStudent(date(2025, 8, 1), 900, 1, models.StudentActive)
	s.createStudent(date(2025, 1, 1), 900, 1, models.StudentInactive)

	result, err := s.svc.GenerateMonthlyFees(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.GenerationResult{Created: 2, Checked: 4, Failed: 0}, result)

	july := s.feesByMonth(earlier.ID)[7]
	s.Equal(models.FeeUnpaid, july.Status)
	s.True(july.Amount.Equal(decimal.NewFromInt(800)))
	s.Require().NotNil(july.DueDate)
	s.Equal(date(2025, 7, 10), *july.DueDate)

	joining := s.feesByMonth(joinedThisMonth.ID)[7]
	s.Equal(models.FeeSkipped, joining.Status)
	s.True(joining.Amount.IsZero())

	result, err = s.svc.GenerateMonthlyFees(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.GenerationResult{Created: 0, Checked: 4, Failed: 0}, result)
	s.Len(s.feesByMonth(earlier.ID), 1)
}

func (s *GenerationSuite) TestMonthlyGenerationCountsFailures() {
	s.createStudent(date(2025, 3, 10), 800, 10, models.StudentActive)
	s.createStudent(date(2025, 4, 10), 800, 10, models.StudentActive)
	s.store.InjectFault("FeeExists", errors.New("timeout"))

	result, err := s.svc.GenerateMonthlyFees(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.GenerationResult{Created: 0, Checked: 2, Failed: 2}, result)
}

func (s *GenerationSuite) TestMonthlyGenerationFailsWhenStudentsUnavailable() {
	s.store.InjectFault("ListActiveStudents", errors.New("timeout"))

	_, err := s.svc.GenerateMonthlyFees(s.ctx)
	s.Error(err)
}

func TestFeeForMonth(t *testing.T) {
	studentID, teacherID := uuid.New(), uuid.New()
	fee := decimal.NewFromInt(1000)

	assert.Nil(t, feeForMonth(studentID, teacherID, fee, 2025, 5, 2025, 6, 15, time.UTC))
	assert.Nil(t, feeForMonth(studentID, teacherID, fee, 2024, 12, 2025, 6, 15, time.UTC))

	f := feeForMonth(studentID, teacherID, fee, 2026, 1, 2025, 12, 28, time.UTC)
	require.NotNil(t, f)
	assert.Equal(t, models.FeeUnpaid, f.Status)
	assert.Equal(t, date(2026, 1, 28), *f.DueDate)

	f = feeForMonth(studentID, teacherID, fee, 2025, 12, 2025, 12, 28, time.UTC)
	require.NotNil(t, f)
	assert.Equal(t, models.FeeSkipped, f.Status)
}
