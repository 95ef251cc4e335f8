package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/utils"
)

const emailBatchSize = 20

func periodLabel(month, year int) string {
	return fmt.Sprintf("%s %d", utils.MonthAbbrev(month), year)
}

// queuePaymentReceipt composes the guardian's receipt email and puts it in
// the outbox. Runs after the payment committed; failures are only logged.
func (s *Service) queuePaymentReceipt(ctx context.Context, p models.PaymentTransaction) {
	logger := s.log.WithFields(logrus.Fields{"student_id": p.StudentID, "receipt": p.ReceiptNumber})

	student, err := s.store.GetStudent(ctx, p.StudentID)
	if err != nil {
		logger.Errorf("Receipt email skipped, failed to load student: %v", err)
		return
	}
	if student.GuardianEmail == "" {
		logger.Debug("Receipt email skipped, no guardian email")
		return
	}

	nextDue := "None"
	unpaid, err := s.store.ListUnpaidFees(ctx, p.StudentID)
	if err != nil {
		logger.Warnf("Failed to look up next unpaid month: %v", err)
	} else if len(unpaid) > 0 {
		next := unpaid[0]
		nextDue = fmt.Sprintf("%s (%s)", periodLabel(next.Month, next.Year), next.Amount.StringFixed(2))
	}

	covered := lo.Map(p.MonthsCovered, func(m models.CoveredMonth, _ int) string {
		return periodLabel(m.Month, m.Year)
	})
	body := fmt.Sprintf(
		"Dear Parent,\n\n"+
			"Received: %s\n"+
			"Months: %s\n"+
			"Receipt: %s\n"+
			"Payment method: %s\n"+
			"Next due: %s\n",
		p.TotalAmount.StringFixed(2), strings.Join(covered, ", "), p.ReceiptNumber, p.PaymentMethod, nextDue,
	)

	email := &models.OutboxEmail{
		Recipient: student.GuardianEmail,
		Subject:   "Tuition Fee Receipt - " + student.Name,
		Body:      body,
	}
	if err := s.store.EnqueueEmail(ctx, email); err != nil {
		logger.Errorf("Failed to queue receipt email: %v", err)
	}
}

// ProcessEmailQueue delivers pending outbox emails, counting failed
// attempts against each email's retry budget
func (s *Service) ProcessEmailQueue(ctx context.Context) (sent, failed int, err error) {
	pending, err := s.store.PendingEmails(ctx, s.config.EmailMaxRetries, emailBatchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load email queue: %w", err)
	}

	for _, e := range pending {
		if sendErr := s.mailer.Send(e.Recipient, e.Subject, e.Body); sendErr != nil {
			failed++
			s.log.WithFields(logrus.Fields{"email_id": e.ID, "attempt": e.RetryCount + 1}).
				Errorf("Failed to deliver email to %s: %v", e.Recipient, sendErr)
			if err := s.store.MarkEmailFailed(ctx, e.ID, sendErr.Error()); err != nil {
				s.log.Errorf("Failed to record email failure: %v", err)
			}
			continue
		}
		sent++
		if err := s.store.MarkEmailSent(ctx, e.ID, s.now()); err != nil {
			s.log.Errorf("Failed to record email delivery: %v", err)
		}
	}
	return sent, failed, nil
}
