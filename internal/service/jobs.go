package service

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// RegisterJobs schedules monthly fee generation, email delivery and audit purging
func (s *Service) RegisterJobs(c *cron.Cron) error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"fee generation", s.config.FeeSchedule, func(ctx context.Context) error {
			_, err := s.GenerateMonthlyFees(ctx)
			return err
		}},
		{"email queue", s.config.EmailSchedule, func(ctx context.Context) error {
			_, _, err := s.ProcessEmailQueue(ctx)
			return err
		}},
		{"audit purge", s.config.AuditSchedule, func(ctx context.Context) error {
			_, err := s.PurgeAuditLogs(ctx)
			return err
		}},
	}

	for _, job := range jobs {
		job := job // per-iteration copy; go.mod targets go1.21 loop semantics
		if _, err := c.AddFunc(job.spec, func() {
			if err := job.run(context.Background()); err != nil {
				s.log.Errorf("[CRON] %s failed: %v", job.name, err)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule %s (%q): %w", job.name, job.spec, err)
		}
		s.log.Infof("[CRON] Scheduled %s: %s", job.name, job.spec)
	}
	return nil
}
