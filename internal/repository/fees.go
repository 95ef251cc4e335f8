package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Jagan515/tms-server/internal/models"
)

const feeColumns = `
	f.id, f.student_id, f.teacher_id, f.month, f.year, f.amount, f.due_date, f.status,
	f.skipped_reason, f.paid_at, f.payment_method, f.marked_by, f.transaction_id, f.notes,
	f.created_at, f.updated_at`

const insertFeeQuery = `
	INSERT INTO tms.fee_records (id, student_id, teacher_id, month, year, amount, due_date, status, skipped_reason, notes)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func scanFee(row interface{ Scan(...any) error }) (models.FeeRecord, error) {
	var (
		f                       models.FeeRecord
		dueDate, paidAt         sql.NullTime
		markedBy, transactionID uuid.NullUUID
		status, method          string
	)
	err := row.Scan(&f.ID, &f.StudentID, &f.TeacherID, &f.Month, &f.Year, &f.Amount, &dueDate, &status,
		&f.SkippedReason, &paidAt, &method, &markedBy, &transactionID, &f.Notes,
		&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return f, err
	}
	f.Status = models.FeeStatus(status)
	f.PaymentMethod = models.PaymentMethod(method)
	f.DueDate = timePtr(dueDate)
	f.PaidAt = timePtr(paidAt)
	f.MarkedBy = idPtr(markedBy)
	f.TransactionID = idPtr(transactionID)
	return f, nil
}

func (r *Repository) queryFees(ctx context.Context, query string, args ...any) ([]models.FeeRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fee records: %w", err)
	}
	defer rows.Close()

	var fees []models.FeeRecord
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fee record: %w", err)
		}
		fees = append(fees, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fee records: %w", err)
	}
	return fees, nil
}

func feeArgs(fee *models.FeeRecord) []any {
	var due sql.NullTime
	if fee.DueDate != nil {
		due = sql.NullTime{Time: *fee.DueDate, Valid: true}
	}
	return []any{fee.ID, fee.StudentID, fee.TeacherID, fee.Month, fee.Year, fee.Amount, due,
		string(fee.Status), fee.SkippedReason, fee.Notes}
}

// InsertFees inserts a student's fee schedule
func (r *Repository) InsertFees(ctx context.Context, fees []*models.FeeRecord) error {
	for _, fee := range fees {
		if fee.ID == uuid.Nil {
			fee.ID = uuid.New()
		}
		if _, err := r.db.ExecContext(ctx, insertFeeQuery, feeArgs(fee)...); err != nil {
			return fmt.Errorf("failed to insert fee %d/%d: %w", fee.Month, fee.Year, mapError(err))
		}
		r.wrote()
	}
	return nil
}

// InsertFeeIfAbsent inserts a fee record unless the period is already billed
func (r *Repository) InsertFeeIfAbsent(ctx context.Context, fee *models.FeeRecord) (bool, error) {
	if fee.ID == uuid.Nil {
		fee.ID = uuid.New()
	}
	res, err := r.db.ExecContext(ctx, insertFeeQuery+` ON CONFLICT (student_id, month, year) DO NOTHING`, feeArgs(fee)...)
	if err != nil {
		return false, fmt.Errorf("failed to insert fee: %w", mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		r.wrote()
	}
	return n > 0, nil
}

// FeeExists checks whether a period is already billed for a student
func (r *Repository) FeeExists(ctx context.Context, studentID uuid.UUID, month, year int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM tms.fee_records WHERE student_id = $1 AND month = $2 AND year = $3)`
	if err := r.db.QueryRowContext(ctx, query, studentID, month, year).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check fee: %w", err)
	}
	return exists, nil
}

// FindUnpaidFees loads the selected fee records that are still unpaid for the student
func (r *Repository) FindUnpaidFees(ctx context.Context, studentID uuid.UUID, ids []uuid.UUID) ([]models.FeeRecord, error) {
	query := `SELECT ` + feeColumns + `
		FROM tms.fee_records f
		WHERE f.id = ANY($1::uuid[]) AND f.student_id = $2 AND f.status = 'unpaid'
		ORDER BY f.year, f.month
		FOR UPDATE`
	return r.queryFees(ctx, query, pq.Array(idStrings(ids)), studentID)
}

// MarkFeesPaid stamps payment details on fee records
func (r *Repository) MarkFeesPaid(ctx context.Context, ids []uuid.UUID, p models.FeePayment) (int64, error) {
	query := `
		UPDATE tms.fee_records
		SET status = 'paid', paid_at = $2, payment_method = $3, marked_by = $4, transaction_id = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ANY($1::uuid[]) AND status = 'unpaid'`
	res, err := r.db.ExecContext(ctx, query, pq.Array(idStrings(ids)), p.PaidAt, string(p.Method), p.MarkedBy, p.TransactionID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark fees paid: %w", mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		r.wrote()
	}
	return n, nil
}

// UpdateUnpaidFeesFrom rewrites the amount on unpaid records at or after the given period
func (r *Repository) UpdateUnpaidFeesFrom(ctx context.Context, studentID uuid.UUID, year, month int, amount decimal.Decimal) (int64, error) {
	query := `
		UPDATE tms.fee_records
		SET amount = $4, updated_at = CURRENT_TIMESTAMP
		WHERE student_id = $1 AND status = 'unpaid'
			AND (year > $2 OR (year = $2 AND month >= $3))`
	res, err := r.db.ExecContext(ctx, query, studentID, year, month, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to update future fees: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		r.wrote()
	}
	return n, nil
}

// ListStudentFees returns a student's fee records, newest period first
func (r *Repository) ListStudentFees(ctx context.Context, studentID uuid.UUID) ([]models.FeeRecord, error) {
	query := `SELECT ` + feeColumns + ` FROM tms.fee_records f WHERE f.student_id = $1 ORDER BY f.year DESC, f.month DESC`
	return r.queryFees(ctx, query, studentID)
}

// ListUnpaidFees returns a student's unpaid fee records, oldest period first
func (r *Repository) ListUnpaidFees(ctx context.Context, studentID uuid.UUID) ([]models.FeeRecord, error) {
	query := `SELECT ` + feeColumns + `
		FROM tms.fee_records f
		WHERE f.student_id = $1 AND f.status = 'unpaid'
		ORDER BY f.year, f.month`
	return r.queryFees(ctx, query, studentID)
}

// ListTeacherFees returns the teacher's fee registry with unpaid records first
func (r *Repository) ListTeacherFees(ctx context.Context, teacherID uuid.UUID, filter models.RegistryFilter) ([]models.FeeRecord, error) {
	query := `SELECT ` + feeColumns + `
		FROM tms.fee_records f
		JOIN tms.students s ON s.id = f.student_id
		WHERE f.teacher_id = $1
			AND ($2 = 0 OR f.month = $2)
			AND ($3 = 0 OR f.year = $3)
			AND ($4::uuid IS NULL OR s.batch_id = $4)
		ORDER BY CASE f.status WHEN 'unpaid' THEN 0 WHEN 'paid' THEN 1 ELSE 2 END,
			f.year, f.month, f.student_id`
	return r.queryFees(ctx, query, teacherID, filter.Month, filter.Year, nullableID(filter.BatchID))
}

// OverdueGroups aggregates unpaid fee records due before asOf per student
func (r *Repository) OverdueGroups(ctx context.Context, teacherID uuid.UUID, asOf time.Time) ([]models.OverdueGroup, error) {
	query := `
		SELECT student_id, COUNT(*), SUM(amount), MIN(due_date)
		FROM tms.fee_records
		WHERE teacher_id = $1 AND status = 'unpaid' AND due_date < $2
		GROUP BY student_id`
	rows, err := r.db.QueryContext(ctx, query, teacherID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate overdue fees: %w", err)
	}
	defer rows.Close()

	var groups []models.OverdueGroup
	for rows.Next() {
		var g models.OverdueGroup
		if err := rows.Scan(&g.StudentID, &g.UnpaidCount, &g.TotalPending, &g.OldestDueDate); err != nil {
			return nil, fmt.Errorf("failed to scan overdue group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read overdue groups: %w", err)
	}
	return groups, nil
}
