package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Jagan515/tms-server/internal/models"
)

const paymentColumns = `
	id, student_id, teacher_id, total_amount, months_covered, payment_date, payment_method,
	receipt_number, marked_by, notes, created_at`

func scanPayment(row interface{ Scan(...any) error }) (models.PaymentTransaction, error) {
	var (
		p       models.PaymentTransaction
		covered []byte
		method  string
	)
	err := row.Scan(&p.ID, &p.StudentID, &p.TeacherID, &p.TotalAmount, &covered, &p.PaymentDate, &method,
		&p.ReceiptNumber, &p.MarkedBy, &p.Notes, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.PaymentMethod = models.PaymentMethod(method)
	if err := json.Unmarshal(covered, &p.MonthsCovered); err != nil {
		return p, fmt.Errorf("failed to decode months covered: %w", err)
	}
	return p, nil
}

func (r *Repository) queryPayments(ctx context.Context, query string, args ...any) ([]models.PaymentTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []models.PaymentTransaction
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payments: %w", err)
	}
	return payments, nil
}

// CreatePayment appends a payment transaction to the ledger
func (r *Repository) CreatePayment(ctx context.Context, p *models.PaymentTransaction) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	covered, err := json.Marshal(p.MonthsCovered)
	if err != nil {
		return fmt.Errorf("failed to encode months covered: %w", err)
	}
	query := `
		INSERT INTO tms.payment_transactions (id, student_id, teacher_id, total_amount, months_covered,
			payment_date, payment_method, receipt_number, marked_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`
	err = r.db.QueryRowContext(ctx, query, p.ID, p.StudentID, p.TeacherID, p.TotalAmount, string(covered),
		p.PaymentDate, string(p.PaymentMethod), p.ReceiptNumber, p.MarkedBy, p.Notes).
		Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", mapError(err))
	}
	r.wrote()
	return nil
}

// GetPaymentByReceipt finds a payment by its receipt number
func (r *Repository) GetPaymentByReceipt(ctx context.Context, receipt string) (*models.PaymentTransaction, error) {
	query := `SELECT ` + paymentColumns + ` FROM tms.payment_transactions WHERE receipt_number = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, receipt))
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// ListStudentPayments returns a student's payments, newest first
func (r *Repository) ListStudentPayments(ctx context.Context, studentID uuid.UUID) ([]models.PaymentTransaction, error) {
	query := `SELECT ` + paymentColumns + `
		FROM tms.payment_transactions
		WHERE student_id = $1
		ORDER BY payment_date DESC`
	return r.queryPayments(ctx, query, studentID)
}

// ListTeacherPayments returns a teacher's payments, newest first
func (r *Repository) ListTeacherPayments(ctx context.Context, teacherID uuid.UUID, studentIDs []uuid.UUID, limit int) ([]models.PaymentTransaction, error) {
	query := `SELECT ` + paymentColumns + `
		FROM tms.payment_transactions
		WHERE teacher_id = $1 AND ($2::uuid[] IS NULL OR student_id = ANY($2::uuid[]))
		ORDER BY payment_date DESC
		LIMIT $3`
	var ids any
	if studentIDs != nil {
		ids = pq.Array(idStrings(studentIDs))
	}
	if limit <= 0 {
		limit = 50
	}
	return r.queryPayments(ctx, query, teacherID, ids, limit)
}
