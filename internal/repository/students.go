package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/store"
)

const studentColumns = `
	id, teacher_id, batch_id, name, registration_number, guardian_email, monthly_fee, fee_due_day,
	joining_date, status, created_at, updated_at`

func scanStudent(row interface{ Scan(...any) error }) (models.Student, error) {
	var (
		s       models.Student
		batchID uuid.NullUUID
		status  string
	)
	err := row.Scan(&s.ID, &s.TeacherID, &batchID, &s.Name, &s.RegistrationNumber, &s.GuardianEmail,
		&s.MonthlyFee, &s.FeeDueDay, &s.JoiningDate, &status, &s.CreatedAt, &s.UpdatedAt)
	s.BatchID = idPtr(batchID)
	s.Status = models.StudentStatus(status)
	return s, err
}

// CreateStudent inserts a student directory entry
func (r *Repository) CreateStudent(ctx context.Context, s *models.Student) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	query := `
		INSERT INTO tms.students (id, teacher_id, batch_id, name, registration_number, guardian_email,
			monthly_fee, fee_due_day, joining_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, s.ID, s.TeacherID, nullableID(s.BatchID), s.Name,
		s.RegistrationNumber, s.GuardianEmail, s.MonthlyFee, s.FeeDueDay, s.JoiningDate, string(s.Status)).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create student: %w", mapError(err))
	}
	r.wrote()
	return nil
}

// GetStudent retrieves a student by id
func (r *Repository) GetStudent(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM tms.students WHERE id = $1`
	s, err := scanStudent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

// UpdateStudentFee changes a student's monthly rate and due day
func (r *Repository) UpdateStudentFee(ctx context.Context, id uuid.UUID, monthlyFee decimal.Decimal, dueDay int) error {
	query := `
		UPDATE tms.students
		SET monthly_fee = $2, fee_due_day = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, monthlyFee, dueDay)
	if err != nil {
		return fmt.Errorf("failed to update student fee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	r.wrote()
	return nil
}

// ListActiveStudents returns every student billed by the monthly run
func (r *Repository) ListActiveStudents(ctx context.Context) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM tms.students WHERE status = 'active' ORDER BY registration_number`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read students: %w", err)
	}
	return students, nil
}

// ListBatchStudentIDs resolves the students of one of the teacher's batches
func (r *Repository) ListBatchStudentIDs(ctx context.Context, teacherID, batchID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM tms.students WHERE teacher_id = $1 AND batch_id = $2`, teacherID, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch students: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan student id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	query := `
		INSERT INTO tms.users (id, name, email, password_hash, role, student_id, created_at)
		VALUES ($1, $2, lower($3), $4, $5, $6, CURRENT_TIMESTAMP)
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), nullableID(u.StudentID)).
		Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	r.wrote()
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var (
		u         models.User
		role      string
		studentID uuid.NullUUID
	)
	query := `
		SELECT id, name, email, password_hash, role, student_id, created_at
		FROM tms.users
		WHERE email = lower($1)`
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &studentID, &u.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	u.Role = models.Role(role)
	u.StudentID = idPtr(studentID)
	return &u, nil
}
