package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/store"
)

// jsonOrNil encodes v for a JSONB column; lib/pq would send []byte as bytea
func jsonOrNil(v map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// CreateAuditEvent records an audit event
func (r *Repository) CreateAuditEvent(ctx context.Context, e *models.AuditEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	oldValue, err := jsonOrNil(e.OldValue)
	if err != nil {
		return fmt.Errorf("failed to encode old value: %w", err)
	}
	newValue, err := jsonOrNil(e.NewValue)
	if err != nil {
		return fmt.Errorf("failed to encode new value: %w", err)
	}
	metadata, err := jsonOrNil(e.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO tms.audit_events (id, user_id, action_type, entity_type, entity_id, old_value, new_value, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.db.ExecContext(ctx, query, e.ID, e.UserID, e.ActionType, e.EntityType, e.EntityID,
		oldValue, newValue, metadata, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}
	r.wrote()
	return nil
}

// PurgeAuditEvents deletes audit events created before the cutoff
func (r *Repository) PurgeAuditEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tms.audit_events WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit events: %w", err)
	}
	return res.RowsAffected()
}

// EnqueueEmail adds an email to the outbox
func (r *Repository) EnqueueEmail(ctx context.Context, e *models.OutboxEmail) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Status = models.OutboxPending
	query := `
		INSERT INTO tms.email_outbox (id, recipient, subject, body, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, e.ID, e.Recipient, e.Subject, e.Body, string(e.Status)).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue email: %w", err)
	}
	r.wrote()
	return nil
}

// PendingEmails returns emails still awaiting delivery
func (r *Repository) PendingEmails(ctx context.Context, maxRetries, limit int) ([]models.OutboxEmail, error) {
	query := `
		SELECT id, recipient, subject, body, status, retry_count, last_error, created_at
		FROM tms.email_outbox
		WHERE status IN ('pending', 'failed') AND retry_count < $1
		ORDER BY created_at
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var emails []models.OutboxEmail
	for rows.Next() {
		var (
			e      models.OutboxEmail
			status string
		)
		if err := rows.Scan(&e.ID, &e.Recipient, &e.Subject, &e.Body, &status, &e.RetryCount, &e.LastError, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox email: %w", err)
		}
		e.Status = models.OutboxStatus(status)
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// MarkEmailSent records a successful delivery
func (r *Repository) MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.execOutbox(ctx, `UPDATE tms.email_outbox SET status = 'sent', sent_at = $2 WHERE id = $1`, id, at)
}

// MarkEmailFailed records a failed delivery attempt
func (r *Repository) MarkEmailFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.execOutbox(ctx, `
		UPDATE tms.email_outbox
		SET status = 'failed', retry_count = retry_count + 1, last_error = $2
		WHERE id = $1`, id, reason)
}

func (r *Repository) execOutbox(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update outbox: %w", err)
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
