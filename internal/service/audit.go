package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Jagan515/tms-server/internal/models"
)

// audit records an event best-effort; failures are logged and dropped
func (s *Service) audit(ctx context.Context, e models.AuditEvent) {
	if e.UserID == uuid.Nil || e.ActionType == "" || e.EntityType == "" {
		s.log.WithFields(logrus.Fields{"action": e.ActionType, "entity": e.EntityType}).
			Warn("Missing mandatory audit fields, audit event dropped")
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if err := s.store.CreateAuditEvent(ctx, &e); err != nil {
		s.log.WithFields(logrus.Fields{"action": e.ActionType, "entity_id": e.EntityID}).
			Errorf("Failed to record audit event: %v", err)
	}
}

// PurgeAuditLogs deletes audit events older than the configured retention
func (s *Service) PurgeAuditLogs(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.config.AuditRetention)
	n, err := s.store.PurgeAuditEvents(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit logs: %w", err)
	}
	if n > 0 {
		s.log.Debugf("Purged %d audit events older than %s", n, cutoff.Format("2006-01-02 15:04:05"))
	}
	return n, nil
}
