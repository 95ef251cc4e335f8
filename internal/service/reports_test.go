package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/models"
)

type ReportSuite struct {
	serviceSuite
	batchID uuid.UUID
	asha    *models.Student
	bala    *models.Student
}

func TestReports(t *testing.T) {
	suite.Run(t, new(ReportSuite))
}

// SetupTest leaves Asha owing July to September and Bala owing September only, as of 2025-09-20
func (s *ReportSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.batchID = uuid.New()
	s.asha = s.enroll("Asha Rao", "T-001", &s.batchID)
	s.bala = s.enroll("Bala Iyer", "T-002", nil)
	s.pay(s.bala.ID, 7, 8)
	s.clock.Set(date(2025, 9, 20).Add(10 * time.Hour))
}

func (s *ReportSuite) TestDefaultersHonourMinMonths() {
	defaulters, err := s.svc.Defaulters(s.ctx, s.teacherID, models.DefaulterFilter{MinMonths: 2})
	s.Require().NoError(err)
	s.Require().Len(defaulters, 1)

	d := defaulters[0]
	s.Equal(s.asha.ID, d.StudentID)
	s.Equal("T-001", d.RegistrationNumber)
	s.Equal(3, d.UnpaidMonths)
	s.True(d.TotalPending.Equal(decimal.NewFromInt(3000)))
	s.Equal(date(2025, 7, 15), d.OldestDueDate)
	s.Equal(67, d.OverdueDays)
}

func (s *ReportSuite) TestDefaultersSortedByOverdueDays() {
	defaulters, err := s.svc.Defaulters(s.ctx, s.teacherID, models.DefaulterFilter{})
	s.Require().NoError(err)
	s.Require().Len(defaulters, 2)
	s.Equal(s.asha.ID, defaulters[0].StudentID)
	s.Equal(s.bala.ID, defaulters[1].StudentID)
	s.Equal(1, defaulters[1].UnpaidMonths)
	s.Equal(5, defaulters[1].OverdueDays)
}

func (s *ReportSuite) TestDefaultersBatchFilter() {
	defaulters, err := s.svc.Defaulters(s.ctx, s.teacherID, models.DefaulterFilter{BatchID: &s.batchID})
	s.Require().NoError(err)
	s.Require().Len(defaulters, 1)
	s.Equal(s.asha.ID, defaulters[0].StudentID)

	other := uuid.New()
	defaulters, err = s.svc.Defaulters(s.ctx, s.teacherID, models.DefaulterFilter{BatchID: &other})
	s.Require().NoError(err)
	s.Empty(defaulters)
}

func (s *ReportSuite) TestDefaultersAreScopedToTeacher() {
	defaulters, err := s.svc.Defaulters(s.ctx, uuid.New(), models.DefaulterFilter{})
	s.Require().NoError(err)
	s.Empty(defaulters)
}

func (s *ReportSuite) TestDefaultersStorageFailure() {
	s.store.InjectFault("OverdueGroups", errors.New("timeout"))
	_, err := s.svc.Defaulters(s.ctx, s.teacherID, models.DefaulterFilter{})
	s.Error(err)
}

func (s *ReportSuite) TestPendingSummary() {
	summary, err := s.svc.PendingSummary(s.ctx, s.asha.ID)
	s.Require().NoError(err)
	s.Equal(6, summary.UnpaidCount)
	s.True(summary.TotalPending.Equal(decimal.NewFromInt(6000)))
	s.Require().NotNil(summary.OldestDue)
	s.Equal(date(2025, 7, 15), *summary.OldestDue)

	summary, err = s.svc.PendingSummary(s.ctx, s.bala.ID)
	s.Require().NoError(err)
	s.Equal(4, summary.UnpaidCount)
	s.Equal(date(2025, 9, 15), *summary.OldestDue)
}

func (s *ReportSuite) TestPendingSummaryWithNothingOwed() {
	summary, err := s.svc.PendingSummary(s.ctx, uuid.New())
	s.Require().NoError(err)
	s.Zero(summary.UnpaidCount)
	s.True(summary.TotalPending.IsZero())
	s.Nil(summary.OldestDue)
}

func (s *ReportSuite) TestRegistryPutsUnpaidFirst() {
	fees, err := s.svc.Registry(s.ctx, s.teacherID, models.RegistryFilter{Month: 7, Year: 2025})
	s.Require().NoError(err)
	s.Require().Len(fees, 2)
	s.Equal(s.asha.ID, fees[0].StudentID)
	s.Equal(models.FeeUnpaid, fees[0].Status)
	s.Equal(s.bala.ID, fees[1].StudentID)
	s.Equal(models.FeePaid, fees[1].Status)

	fees, err = s.svc.Registry(s.ctx, s.teacherID, models.RegistryFilter{BatchID: &s.batchID})
	s.Require().NoError(err)
	s.Len(fees, 7)
	for _, f := range fees {
		s.Equal(s.asha.ID, f.StudentID)
	}
}

func (s *ReportSuite) TestRegistryRejectsInvalidFilter() {
	for _, filter := range []models.RegistryFilter{{Month: 13}, {Month: -1}, {Year: -2025}, {Month: 7, Year: -1}} {
		_, err := s.svc.Registry(s.ctx, s.teacherID, filter)
		s.True(apperr.IsValidation(err), "%+v", filter)
	}
}

func (s *ReportSuite) TestStudentFeesNewestFirst() {
	fees, err := s.svc.StudentFees(s.ctx, s.asha.ID)
	s.Require().NoError(err)
	s.Require().Len(fees, 7)
	s.Equal(12, fees[0].Month)
	s.Equal(6, fees[6].Month)

	_, err = s.svc.StudentFees(s.ctx, uuid.New())
	s.True(apperr.IsNotFound(err))
}

func (s *ReportSuite) TestPaymentHistory() {
	s.pay(s.asha.ID, 7)

	all, err := s.svc.TeacherPaymentHistory(s.ctx, s.teacherID, nil)
	s.Require().NoError(err)
	s.Len(all, 2)
	s.Equal(s.asha.ID, all[0].StudentID, "newest first")

	batch, err := s.svc.TeacherPaymentHistory(s.ctx, s.teacherID, &s.batchID)
	s.Require().NoError(err)
	s.Require().Len(batch, 1)
	s.Equal(s.asha.ID, batch[0].StudentID)

	empty := uuid.New()
	none, err := s.svc.TeacherPaymentHistory(s.ctx, s.teacherID, &empty)
	s.Require().NoError(err)
	s.Empty(none)

	history, err := s.svc.StudentPaymentHistory(s.ctx, s.bala.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Len(history[0].MonthsCovered, 2)
}

func (s *ReportSuite) TestPaymentByReceipt() {
	history, err := s.svc.StudentPaymentHistory(s.ctx, s.bala.ID)
	s.Require().NoError(err)
	receipt := history[0].ReceiptNumber

	p, err := s.svc.PaymentByReceipt(s.ctx, s.teacherID, receipt)
	s.Require().NoError(err)
	s.Equal(s.bala.ID, p.StudentID)

	_, err = s.svc.PaymentByReceipt(s.ctx, uuid.New(), receipt)
	s.True(apperr.IsForbidden(err))

	_, err = s.svc.PaymentByReceipt(s.ctx, s.teacherID, "RCP-0-000000")
	s.True(apperr.IsNotFound(err))
}

func (s *ReportSuite) TestStudentForTeacher() {
	st, err := s.svc.StudentForTeacher(s.ctx, s.teacherID, s.asha.ID)
	s.Require().NoError(err)
	s.Equal("Asha Rao", st.Name)

	_, err = s.svc.StudentForTeacher(s.ctx, uuid.New(), s.asha.ID)
	s.True(apperr.IsForbidden(err))
}
