package memory

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/store"
)

func newTestStore(transactional bool) *Store {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewStore(log, transactional)
}

func unpaidFee(studentID uuid.UUID, month int) *models.FeeRecord {
	due := time.Date(2025, time.Month(month), 15, 0, 0, 0, 0, time.UTC)
	return &models.FeeRecord{
		StudentID: studentID,
		TeacherID: uuid.New(),
		Month:     month,
		Year:      2025,
		Amount:    decimal.NewFromInt(1000),
		Status:    models.FeeUnpaid,
		DueDate:   &due,
	}
}

func TestInsertFeesRejectsDuplicatePeriod(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(true)
	studentID := uuid.New()

	require.NoError(t, s.InsertFees(ctx, []*models.FeeRecord{unpaidFee(studentID, 7)}))

	err := s.InsertFees(ctx, []*models.FeeRecord{unpaidFee(studentID, 8), unpaidFee(studentID, 7)})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	fees, err := s.ListStudentFees(ctx, studentID)
	require.NoError(t, err)
	assert.Len(t, fees, 1, "a rejected batch inserts nothing")
}

func TestAtomicRollbackKeepsConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(true)
	member, outsider := uuid.New(), uuid.New()
	paid := unpaidFee(member, 6)
	require.NoError(t, s.InsertFees(ctx, []*models.FeeRecord{paid}))
	require.NoError(t, s.EnqueueEmail(ctx, &models.OutboxEmail{Recipient: "parent@example.com", Subject: "Receipt"}))

	errBoom := errors.New("boom")
	err := s.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.InsertFees(ctx, []*models.FeeRecord{unpaidFee(member, 7)}))
		_, err := tx.MarkFeesPaid(ctx, []uuid.UUID{paid.ID}, models.FeePayment{PaidAt: time.Now(), Method: models.MethodCash})
		require.NoError(t, err)

		done := make(chan error)
		go func() {
			_, err := s.InsertFeeIfAbsent(ctx, unpaidFee(outsider, 7))
			if err == nil {
				err = s.CreateAuditEvent(ctx, &models.AuditEvent{UserID: uuid.New(), ActionType: models.ActionCreate, EntityType: "student"})
			}
			done <- err
		}()
		require.NoError(t, <-done)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	memberFees, err := s.ListStudentFees(ctx, member)
	require.NoError(t, err)
	require.Len(t, memberFees, 1, "the unit's insert is undone")
	assert.Equal(t, models.FeeUnpaid, memberFees[0].Status, "the unit's update is undone")

	outsiderFees, err := s.ListStudentFees(ctx, outsider)
	require.NoError(t, err)
	assert.Len(t, outsiderFees, 1, "writes outside the unit survive its rollback")
	assert.Len(t, s.AuditEvents(), 1)
	assert.Len(t, s.OutboxEmails(), 1)
}

func TestInsertFeeIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(true)
	studentID := uuid.New()

	created, err := s.InsertFeeIfAbsent(ctx, unpaidFee(studentID, 7))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.InsertFeeIfAbsent(ctx, unpaidFee(studentID, 7))
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := s.FeeExists(ctx, studentID, 7, 2025)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMarkFeesPaidSkipsPaidRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(true)
	fee := unpaidFee(uuid.New(), 7)
	require.NoError(t, s.InsertFees(ctx, []*models.FeeRecord{fee}))

	payment := models.FeePayment{PaidAt: time.Now(), Method: models.MethodCash, MarkedBy: uuid.New(), TransactionID: uuid.New()}
	n, err := s.MarkFeesPaid(ctx, []uuid.UUID{fee.ID}, payment)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.MarkFeesPaid(ctx, []uuid.UUID{fee.ID}, payment)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestCreatePaymentIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(true)

	p := &models.PaymentTransaction{StudentID: uuid.New(), ReceiptNumber: "RCP-1-000001", TotalAmount: decimal.NewFromInt(1000)}
	require.NoError(t, s.CreatePayment(ctx, p))

	again := *p
	again.TotalAmount = decimal.NewFromInt(1)
	assert.ErrorIs(t, s.CreatePayment(ctx, &again), store.ErrImmutable)

	clash := &models.PaymentTransaction{StudentID: uuid.New(), ReceiptNumber: "RCP-1-000001"}
	assert.ErrorIs(t, s.CreatePayment(ctx, clash), store.ErrDuplicate)

	stored, err := s.GetPaymentByReceipt(ctx, "RCP-1-000001")
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(1000)))
}

func TestAtomicRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(true)
	studentID := uuid.New()
	hookRan := make(chan struct{}, 1)

	err := s.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertFees(ctx, []*models.FeeRecord{unpaidFee(studentID, 7)}); err != nil {
			return err
		}
		tx.AfterCommit(func(context.Context) { hookRan <- struct{}{} })
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.False(t, apperr.IsIndeterminate(err))

	fees, err := s.ListStudentFees(ctx, studentID)
	require.NoError(t, err)
	assert.Empty(t, fees)

	select {
	case <-hookRan:
		t.Fatal("hook ran for a failed unit")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAtomicRunsHooksAfterCommit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(true)
	hookRan := make(chan struct{}, 1)

	err := s.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		tx.AfterCommit(func(context.Context) { hookRan <- struct{}{} })
		return tx.InsertFees(ctx, []*models.FeeRecord{unpaidFee(uuid.New(), 7)})
	})
	require.NoError(t, err)

	select {
	case <-hookRan:
	case <-time.After(time.Second):
		t.Fatal("hook did not run")
	}
}

func TestBestEffortAtomic(t *testing.T) {
	ctx := context.Background()

	t.Run("failure after a write is indeterminate", func(t *testing.T) {
		s := newTestStore(false)
		studentID := uuid.New()
		err := s.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
			if err := tx.InsertFees(ctx, []*models.FeeRecord{unpaidFee(studentID, 7)}); err != nil {
				return err
			}
			return errors.New("connection reset")
		})
		assert.True(t, apperr.IsIndeterminate(err))

		fees, err := s.ListStudentFees(ctx, studentID)
		require.NoError(t, err)
		assert.Len(t, fees, 1, "best-effort writes are not undone")
	})

	t.Run("failure before any write is returned as is", func(t *testing.T) {
		s := newTestStore(false)
		err := s.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
			return errors.New("connection reset")
		})
		assert.EqualError(t, err, "connection reset")
	})

	t.Run("validation failure is never indeterminate", func(t *testing.T) {
		s := newTestStore(false)
		err := s.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
			if err := tx.InsertFees(ctx, []*models.FeeRecord{unpaidFee(uuid.New(), 7)}); err != nil {
				return err
			}
			return apperr.NewValidation("bad input")
		})
		assert.True(t, apperr.IsValidation(err))
		assert.False(t, apperr.IsIndeterminate(err))
	})
}

func TestInjectFault(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(true)
	injected := errors.New("disk full")

	s.InjectFault("InsertFees", injected)
	assert.ErrorIs(t, s.InsertFees(ctx, []*models.FeeRecord{unpaidFee(uuid.New(), 7)}), injected)

	s.InjectFault("InsertFees", nil)
	assert.NoError(t, s.InsertFees(ctx, []*models.FeeRecord{unpaidFee(uuid.New(), 7)}))
}

func TestListTeacherFeesOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(true)
	teacherID := uuid.New()
	studentID := uuid.New()

	mk := func(month int, status models.FeeStatus) *models.FeeRecord {
		f := unpaidFee(studentID, month)
		f.TeacherID = teacherID
		f.Status = status
		if status == models.FeeSkipped {
			f.Amount = decimal.Zero
		}
		return f
	}
	require.NoError(t, s.InsertFees(ctx, []*models.FeeRecord{
		mk(6, models.FeeSkipped), mk(7, models.FeePaid), mk(9, models.FeeUnpaid), mk(8, models.FeeUnpaid),
	}))

	fees, err := s.ListTeacherFees(ctx, teacherID, models.RegistryFilter{})
	require.NoError(t, err)
	require.Len(t, fees, 4)
	assert.Equal(t, []int{8, 9, 7, 6}, []int{fees[0].Month, fees[1].Month, fees[2].Month, fees[3].Month})

	fees, err = s.ListTeacherFees(ctx, teacherID, models.RegistryFilter{Month: 9, Year: 2025})
	require.NoError(t, err)
	require.Len(t, fees, 1)
	assert.Equal(t, models.FeeUnpaid, fees[0].Status)
}
