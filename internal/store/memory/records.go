package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/store"
)

func (s *Store) CreatePayment(ctx context.Context, p *models.PaymentTransaction) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.fault("CreatePayment"); err != nil {
		return err
	}

	if p.ID != uuid.Nil {
		if _, exists := s.db.t.payments[p.ID]; exists {
			return store.ErrImmutable
		}
	}
	for _, existing := range s.db.t.payments {
		if existing.ReceiptNumber == p.ReceiptNumber {
			return store.ErrDuplicate
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	track(s, s.db.t.payments, p.ID)
	p.CreatedAt = time.Now().UTC()
	cp := *p
	cp.MonthsCovered = append([]models.CoveredMonth(nil), p.MonthsCovered...)
	s.db.t.payments[cp.ID] = &cp
	s.wrote()
	return nil
}

func (s *Store) GetPaymentByReceipt(ctx context.Context, receipt string) (*models.PaymentTransaction, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, p := range s.db.t.payments {
		if p.ReceiptNumber == receipt {
			cp := copyPayment(p)
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListStudentPayments(ctx context.Context, studentID uuid.UUID) ([]models.PaymentTransaction, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := s.paymentsWhere(func(p *models.PaymentTransaction) bool { return p.StudentID == studentID })
	return out, nil
}

func (s *Store) ListTeacherPayments(ctx context.Context, teacherID uuid.UUID, studentIDs []uuid.UUID, limit int) ([]models.PaymentTransaction, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := s.paymentsWhere(func(p *models.PaymentTransaction) bool {
		if p.TeacherID != teacherID {
			return false
		}
		return studentIDs == nil || lo.Contains(studentIDs, p.StudentID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// paymentsWhere returns matches newest first. Must be called with db.mu held.
func (s *Store) paymentsWhere(pred func(p *models.PaymentTransaction) bool) []models.PaymentTransaction {
	var out []models.PaymentTransaction
	for _, p := range s.db.t.payments {
		if pred(p) {
			out = append(out, copyPayment(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaymentDate.After(out[j].PaymentDate) })
	return out
}

func copyPayment(p *models.PaymentTransaction) models.PaymentTransaction {
	cp := *p
	cp.MonthsCovered = append([]models.CoveredMonth(nil), p.MonthsCovered...)
	return cp
}

func (s *Store) CreateStudent(ctx context.Context, st *models.Student) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.fault("CreateStudent"); err != nil {
		return err
	}

	for _, existing := range s.db.t.students {
		if existing.RegistrationNumber == st.RegistrationNumber {
			return store.ErrDuplicate
		}
	}
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	track(s, s.db.t.students, st.ID)
	now := time.Now().UTC()
	st.CreatedAt, st.UpdatedAt = now, now
	cp := *st
	s.db.t.students[cp.ID] = &cp
	s.wrote()
	return nil
}

func (s *Store) GetStudent(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if err := s.fault("GetStudent"); err != nil {
		return nil, err
	}

	st, ok := s.db.t.students[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *Store) UpdateStudentFee(ctx context.Context, id uuid.UUID, monthlyFee decimal.Decimal, dueDay int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.fault("UpdateStudentFee"); err != nil {
		return err
	}

	st, ok := s.db.t.students[id]
	if !ok {
		return store.ErrNotFound
	}
	track(s, s.db.t.students, id)
	st.MonthlyFee = monthlyFee
	st.FeeDueDay = dueDay
	st.UpdatedAt = time.Now().UTC()
	s.wrote()
	return nil
}

func (s *Store) ListActiveStudents(ctx context.Context) ([]models.Student, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if err := s.fault("ListActiveStudents"); err != nil {
		return nil, err
	}

	var out []models.Student
	for _, st := range s.db.t.students {
		if st.Status == models.StudentActive {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationNumber < out[j].RegistrationNumber })
	return out, nil
}

func (s *Store) ListBatchStudentIDs(ctx context.Context, teacherID, batchID uuid.UUID) ([]uuid.UUID, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	ids := []uuid.UUID{}
	for _, st := range s.db.t.students {
		if st.TeacherID == teacherID && st.BatchID != nil && *st.BatchID == batchID {
			ids = append(ids, st.ID)
		}
	}
	return ids, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, existing := range s.db.t.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	track(s, s.db.t.users, u.ID)
	u.CreatedAt = time.Now().UTC()
	cp := *u
	s.db.t.users[cp.ID] = &cp
	s.wrote()
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, u := range s.db.t.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateAuditEvent(ctx context.Context, e *models.AuditEvent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.fault("CreateAuditEvent"); err != nil {
		return err
	}

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	track(s, s.db.t.audit, e.ID)
	cp := *e
	s.db.t.audit[cp.ID] = &cp
	s.wrote()
	return nil
}

func (s *Store) PurgeAuditEvents(ctx context.Context, before time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var n int64
	for id, e := range s.db.t.audit {
		if e.CreatedAt.Before(before) {
			track(s, s.db.t.audit, id)
			delete(s.db.t.audit, id)
			n++
		}
	}
	return n, nil
}

// AuditEvents returns every recorded audit event, oldest first.
func (s *Store) AuditEvents() []models.AuditEvent {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]models.AuditEvent, 0, len(s.db.t.audit))
	for _, e := range s.db.t.audit {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) EnqueueEmail(ctx context.Context, e *models.OutboxEmail) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.fault("EnqueueEmail"); err != nil {
		return err
	}

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	track(s, s.db.t.outbox, e.ID)
	e.Status = models.OutboxPending
	e.CreatedAt = time.Now().UTC()
	cp := *e
	s.db.t.outbox[cp.ID] = &cp
	s.wrote()
	return nil
}

func (s *Store) PendingEmails(ctx context.Context, maxRetries, limit int) ([]models.OutboxEmail, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []models.OutboxEmail
	for _, e := range s.db.t.outbox {
		if e.Status != models.OutboxSent && e.RetryCount < maxRetries {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	e, ok := s.db.t.outbox[id]
	if !ok {
		return store.ErrNotFound
	}
	track(s, s.db.t.outbox, id)
	e.Status = models.OutboxSent
	e.SentAt = &at
	s.wrote()
	return nil
}

func (s *Store) MarkEmailFailed(ctx context.Context, id uuid.UUID, reason string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	e, ok := s.db.t.outbox[id]
	if !ok {
		return store.ErrNotFound
	}
	track(s, s.db.t.outbox, id)
	e.Status = models.OutboxFailed
	e.RetryCount++
	e.LastError = reason
	s.wrote()
	return nil
}

// OutboxEmails returns every queued email, oldest first.
func (s *Store) OutboxEmails() []models.OutboxEmail {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]models.OutboxEmail, 0, len(s.db.t.outbox))
	for _, e := range s.db.t.outbox {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

var _ store.Store = (*Store)(nil)
var _ store.Tx = (*unit)(nil)
