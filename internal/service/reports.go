package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/store"
	"github.com/Jagan515/tms-server/internal/utils"
)

const teacherHistoryLimit = 50

// Defaulters lists the teacher's students with overdue unpaid months
func (s *Service) Defaulters(ctx context.Context, teacherID uuid.UUID, filter models.DefaulterFilter) ([]models.Defaulter, error) {
	minMonths := max(filter.MinMonths, 1)
	now := s.now()

	groups, err := s.store.OverdueGroups(ctx, teacherID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate overdue fees: %w", err)
	}

	defaulters := make([]models.Defaulter, 0, len(groups))
	for _, g := range lo.Filter(groups, func(g models.OverdueGroup, _ int) bool { return g.UnpaidCount >= minMonths }) {
		st, err := s.store.GetStudent(ctx, g.StudentID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.BatchID != nil && (st.BatchID == nil || *st.BatchID != *filter.BatchID) {
			continue
		}
		defaulters = append(defaulters, models.Defaulter{
			StudentID:          st.ID,
			Name:               st.Name,
			RegistrationNumber: st.RegistrationNumber,
			BatchID:            st.BatchID,
			UnpaidMonths:       g.UnpaidCount,
			TotalPending:       g.TotalPending,
			OldestDueDate:      g.OldestDueDate,
			OverdueDays:        utils.WholeDaysBetween(g.OldestDueDate, now),
		})
	}

	sort.SliceStable(defaulters, func(i, j int) bool {
		if defaulters[i].OverdueDays != defaulters[j].OverdueDays {
			return defaulters[i].OverdueDays > defaulters[j].OverdueDays
		}
		return defaulters[i].RegistrationNumber < defaulters[j].RegistrationNumber
	})
	return defaulters, nil
}

// PendingSummary totals the student's unpaid fees
func (s *Service) PendingSummary(ctx context.Context, studentID uuid.UUID) (models.PendingSummary, error) {
	unpaid, err := s.store.ListUnpaidFees(ctx, studentID)
	if err != nil {
		return models.PendingSummary{}, fmt.Errorf("failed to list unpaid fees: %w", err)
	}

	summary := models.PendingSummary{
		TotalPending: sumFees(unpaid),
		UnpaidCount:  len(unpaid),
	}
	for _, f := range unpaid {
		if f.DueDate == nil {
			continue
		}
		if summary.OldestDue == nil || f.DueDate.Before(*summary.OldestDue) {
			due := *f.DueDate
			summary.OldestDue = &due
		}
	}
	return summary, nil
}

// StudentFees returns every fee record of the student, newest month first
func (s *Service) StudentFees(ctx context.Context, studentID uuid.UUID) ([]models.FeeRecord, error) {
	if _, err := s.getStudent(ctx, s.store, studentID); err != nil {
		return nil, err
	}
	return s.store.ListStudentFees(ctx, studentID)
}

// Registry lists the teacher's fee records with unpaid ones first
func (s *Service) Registry(ctx context.Context, teacherID uuid.UUID, filter models.RegistryFilter) ([]models.FeeRecord, error) {
	if filter.Month < 0 || filter.Month > 12 {
		return nil, apperr.NewValidation("month must be between 1 and 12")
	}
	if filter.Year < 0 {
		return nil, apperr.NewValidation("invalid year %d", filter.Year)
	}
	return s.store.ListTeacherFees(ctx, teacherID, filter)
}

// StudentPaymentHistory returns the student's payments, newest first
func (s *Service) StudentPaymentHistory(ctx context.Context, studentID uuid.UUID) ([]models.PaymentTransaction, error) {
	return s.store.ListStudentPayments(ctx, studentID)
}

// TeacherPaymentHistory returns the teacher's recent payments, optionally for one batch
func (s *Service) TeacherPaymentHistory(ctx context.Context, teacherID uuid.UUID, batchID *uuid.UUID) ([]models.PaymentTransaction, error) {
	var studentIDs []uuid.UUID
	if batchID != nil {
		ids, err := s.store.ListBatchStudentIDs(ctx, teacherID, *batchID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve batch students: %w", err)
		}
		studentIDs = ids
	}
	return s.store.ListTeacherPayments(ctx, teacherID, studentIDs, teacherHistoryLimit)
}

// PaymentByReceipt finds one of the teacher's payments by receipt number
func (s *Service) PaymentByReceipt(ctx context.Context, teacherID uuid.UUID, receipt string) (*models.PaymentTransaction, error) {
	p, err := s.store.GetPaymentByReceipt(ctx, receipt)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &apperr.NotFoundError{Entity: "receipt", ID: receipt}
	}
	if err != nil {
		return nil, err
	}
	if p.TeacherID != teacherID {
		return nil, apperr.NewForbidden("receipt belongs to another teacher")
	}
	return p, nil
}

// StudentForTeacher checks that the student exists and is taught by teacherID
func (s *Service) StudentForTeacher(ctx context.Context, teacherID, studentID uuid.UUID) (*models.Student, error) {
	st, err := s.getStudent(ctx, s.store, studentID)
	if err != nil {
		return nil, err
	}
	if st.TeacherID != teacherID {
		return nil, apperr.NewForbidden("student does not belong to this teacher")
	}
	return st, nil
}
