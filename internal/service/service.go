package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/config"
	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/store"
)

// Mailer delivers a single email
type Mailer interface {
	Send(to, subject, body string) error
}

// Service handles business logic
type Service struct {
	store  store.Store
	mailer Mailer
	log    *logrus.Logger
	config *config.Config
	now    func() time.Time
}

// NewService initializes a new service
func NewService(st store.Store, mailer Mailer, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{store: st, mailer: mailer, log: log, config: cfg, now: time.Now}
}

// SetClock replaces the time source used for month boundaries and timestamps
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) location() *time.Location {
	if s.config.Location == nil {
		return time.UTC
	}
	return s.config.Location
}

func (s *Service) getStudent(ctx context.Context, q store.StudentStore, id uuid.UUID) (*models.Student, error) {
	st, err := q.GetStudent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NewNotFound("student", id)
	}
	return st, err
}

// Location is the calendar used for month boundaries
func (s *Service) Location() *time.Location {
	return s.location()
}
