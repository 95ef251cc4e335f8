package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/Jagan515/tms-server/internal/config"
	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/store/memory"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fakeMailer struct {
	mu   sync.Mutex
	fail error
	sent []string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, to)
	return nil
}

func (m *fakeMailer) setFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *fakeMailer) sentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

// serviceSuite wires a Service to an in-memory store with a controllable clock
type serviceSuite struct {
	suite.Suite
	ctx       context.Context
	store     *memory.Store
	svc       *Service
	clock     *fakeClock
	mailer    *fakeMailer
	cfg       *config.Config
	teacherID uuid.UUID
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:       "test-secret",
		HMACSecret:      "test-hmac",
		Location:        time.UTC,
		DefaultDueDay:   15,
		AuditRetention:  time.Hour,
		EmailMaxRetries: 3,
		FeeSchedule:     "0 0 1 * *",
		EmailSchedule:   "@every 1m",
		AuditSchedule:   "*/5 * * * *",
	}
}

func (s *serviceSuite) SetupTest() {
	s.setup(true)
}

func (s *serviceSuite) setup(transactional bool) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	s.ctx = context.Background()
	s.cfg = testConfig()
	s.store = memory.NewStore(log, transactional)
	s.mailer = &fakeMailer{}
	s.clock = &fakeClock{t: date(2025, 7, 20).Add(10 * time.Hour)}
	s.svc = NewService(s.store, s.mailer, log, s.cfg)
	s.svc.SetClock(s.clock.Now)
	s.teacherID = uuid.New()
}

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// enroll registers a student who joined on 2025-06-15 paying 1000 a month due on the 15th
func (s *serviceSuite) enroll(name, regNo string, batchID *uuid.UUID) *models.Student {
	st, _, err := s.svc.EnrollStudent(s.ctx, s.teacherID, EnrollInput{
		Name:               name,
		RegistrationNumber: regNo,
		GuardianEmail:      regNo + "@parents.test",
		BatchID:            batchID,
		MonthlyFee:         decimal.NewFromInt(1000),
		FeeDueDay:          15,
		JoiningDate:        date(2025, 6, 15),
	})
	s.Require().NoError(err)
	return st
}

func (s *serviceSuite) feesByMonth(studentID uuid.UUID) map[int]models.FeeRecord {
	fees, err := s.store.ListStudentFees(s.ctx, studentID)
	s.Require().NoError(err)
	out := make(map[int]models.FeeRecord, len(fees))
	for _, f := range fees {
		if f.Year == 2025 {
			out[f.Month] = f
		}
	}
	return out
}

func (s *serviceSuite) feeIDs(studentID uuid.UUID, months ...int) []uuid.UUID {
	byMonth := s.feesByMonth(studentID)
	ids := make([]uuid.UUID, 0, len(months))
	for _, m := range months {
		f, ok := byMonth[m]
		s.Require().True(ok, "no fee record for month %d", m)
		ids = append(ids, f.ID)
	}
	return ids
}

func (s *serviceSuite) pay(studentID uuid.UUID, months ...int) *models.PaymentTransaction {
	p, err := s.svc.RecordPayment(s.ctx, s.teacherID, PaymentInput{
		StudentID:  studentID,
		FeeIDs:     s.feeIDs(studentID, months...),
		Method:     models.MethodCash,
		RecordedBy: s.teacherID,
	})
	s.Require().NoError(err)
	return p
}

func (s *serviceSuite) auditActions() []string {
	var out []string
	for _, e := range s.store.AuditEvents() {
		out = append(out, e.ActionType)
	}
	return out
}
