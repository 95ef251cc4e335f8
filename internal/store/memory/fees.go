package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/store"
)

func (s *Store) findFee(studentID uuid.UUID, month, year int) *models.FeeRecord {
	for _, f := range s.db.t.fees {
		if f.StudentID == studentID && f.Month == month && f.Year == year {
			return f
		}
	}
	return nil
}

func (s *Store) insertFee(fee *models.FeeRecord) {
	now := time.Now().UTC()
	if fee.ID == uuid.Nil {
		fee.ID = uuid.New()
	}
	track(s, s.db.t.fees, fee.ID)
	fee.CreatedAt = now
	fee.UpdatedAt = now
	f := *fee
	s.db.t.fees[f.ID] = &f
	s.wrote()
}

func (s *Store) InsertFees(ctx context.Context, fees []*models.FeeRecord) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.fault("InsertFees"); err != nil {
		return err
	}

	seen := make(map[[3]any]bool, len(fees))
	for _, fee := range fees {
		key := [3]any{fee.StudentID, fee.Month, fee.Year}
		if seen[key] || s.findFee(fee.StudentID, fee.Month, fee.Year) != nil {
			return store.ErrDuplicate
		}
		seen[key] = true
	}
	for _, fee := range fees {
		s.insertFee(fee)
	}
	return nil
}

func (s *Store) InsertFeeIfAbsent(ctx context.Context, fee *models.FeeRecord) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.fault("InsertFeeIfAbsent"); err != nil {
		return false, err
	}
	if s.findFee(fee.StudentID, fee.Month, fee.Year) != nil {
		return false, nil
	}
	s.insertFee(fee)
	return true, nil
}

func (s *Store) FeeExists(ctx context.Context, studentID uuid.UUID, month, year int) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if err := s.fault("FeeExists"); err != nil {
		return false, err
	}
	return s.findFee(studentID, month, year) != nil, nil
}

func (s *Store) FindUnpaidFees(ctx context.Context, studentID uuid.UUID, ids []uuid.UUID) ([]models.FeeRecord, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if err := s.fault("FindUnpaidFees"); err != nil {
		return nil, err
	}

	var out []models.FeeRecord
	for _, id := range lo.Uniq(ids) {
		f, ok := s.db.t.fees[id]
		if ok && f.StudentID == studentID && f.Status == models.FeeUnpaid {
			out = append(out, *f)
		}
	}
	sortByPeriod(out)
	return out, nil
}

func (s *Store) MarkFeesPaid(ctx context.Context, ids []uuid.UUID, p models.FeePayment) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.fault("MarkFeesPaid"); err != nil {
		return 0, err
	}

	var n int64
	for _, id := range ids {
		f, ok := s.db.t.fees[id]
		if !ok || f.Status != models.FeeUnpaid {
			continue
		}
		track(s, s.db.t.fees, id)
		paidAt, markedBy, txID := p.PaidAt, p.MarkedBy, p.TransactionID
		f.Status = models.FeePaid
		f.PaidAt = &paidAt
		f.PaymentMethod = p.Method
		f.MarkedBy = &markedBy
		f.TransactionID = &txID
		f.UpdatedAt = time.Now().UTC()
		n++
		s.wrote()
	}
	return n, nil
}

func (s *Store) UpdateUnpaidFeesFrom(ctx context.Context, studentID uuid.UUID, year, month int, amount decimal.Decimal) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.fault("UpdateUnpaidFeesFrom"); err != nil {
		return 0, err
	}

	from := year*12 + month - 1
	var n int64
	for _, f := range s.db.t.fees {
		if f.StudentID != studentID || f.Status != models.FeeUnpaid || f.Period() < from {
			continue
		}
		track(s, s.db.t.fees, f.ID)
		f.Amount = amount
		f.UpdatedAt = time.Now().UTC()
		n++
		s.wrote()
	}
	return n, nil
}

func (s *Store) ListStudentFees(ctx context.Context, studentID uuid.UUID) ([]models.FeeRecord, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := s.feesWhere(func(f *models.FeeRecord) bool { return f.StudentID == studentID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period() > out[j].Period() })
	return out, nil
}

func (s *Store) ListUnpaidFees(ctx context.Context, studentID uuid.UUID) ([]models.FeeRecord, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := s.feesWhere(func(f *models.FeeRecord) bool {
		return f.StudentID == studentID && f.Status == models.FeeUnpaid
	})
	sortByPeriod(out)
	return out, nil
}

var statusRank = map[models.FeeStatus]int{
	models.FeeUnpaid:  0,
	models.FeePaid:    1,
	models.FeeSkipped: 2,
}

func (s *Store) ListTeacherFees(ctx context.Context, teacherID uuid.UUID, filter models.RegistryFilter) ([]models.FeeRecord, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := s.feesWhere(func(f *models.FeeRecord) bool {
		if f.TeacherID != teacherID {
			return false
		}
		if filter.Month != 0 && f.Month != filter.Month {
			return false
		}
		if filter.Year != 0 && f.Year != filter.Year {
			return false
		}
		if filter.BatchID != nil {
			st, ok := s.db.t.students[f.StudentID]
			if !ok || st.BatchID == nil || *st.BatchID != *filter.BatchID {
				return false
			}
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if statusRank[a.Status] != statusRank[b.Status] {
			return statusRank[a.Status] < statusRank[b.Status]
		}
		if a.Period() != b.Period() {
			return a.Period() < b.Period()
		}
		return a.StudentID.String() < b.StudentID.String()
	})
	return out, nil
}

func (s *Store) OverdueGroups(ctx context.Context, teacherID uuid.UUID, asOf time.Time) ([]models.OverdueGroup, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if err := s.fault("OverdueGroups"); err != nil {
		return nil, err
	}

	overdue := s.feesWhere(func(f *models.FeeRecord) bool {
		return f.TeacherID == teacherID && f.Status == models.FeeUnpaid &&
			f.DueDate != nil && f.DueDate.Before(asOf)
	})
	grouped := lo.GroupBy(overdue, func(f models.FeeRecord) uuid.UUID { return f.StudentID })

	groups := make([]models.OverdueGroup, 0, len(grouped))
	for studentID, fees := range grouped {
		oldest := lo.MinBy(fees, func(a, b models.FeeRecord) bool { return a.DueDate.Before(*b.DueDate) })
		groups = append(groups, models.OverdueGroup{
			StudentID:     studentID,
			UnpaidCount:   len(fees),
			TotalPending:  sumAmounts(fees),
			OldestDueDate: *oldest.DueDate,
		})
	}
	return groups, nil
}

// feesWhere must be called with db.mu held.
func (s *Store) feesWhere(pred func(f *models.FeeRecord) bool) []models.FeeRecord {
	var out []models.FeeRecord
	for _, f := range s.db.t.fees {
		if pred(f) {
			out = append(out, *f)
		}
	}
	return out
}

func sortByPeriod(fees []models.FeeRecord) {
	sort.SliceStable(fees, func(i, j int) bool { return fees[i].Period() < fees[j].Period() })
}

func sumAmounts(fees []models.FeeRecord) decimal.Decimal {
	return lo.Reduce(fees, func(acc decimal.Decimal, f models.FeeRecord, _ int) decimal.Decimal {
		return acc.Add(f.Amount)
	}, decimal.Zero)
}
