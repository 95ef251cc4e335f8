package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/store"
	"github.com/Jagan515/tms-server/internal/utils"
)

// AdjustFutureFees rewrites the amount of the student's unpaid records for
// the current month onwards. Paid, skipped and past records keep their
// amount. It must run inside the profile-update unit.
func (s *Service) AdjustFutureFees(ctx context.Context, q store.FeeStore, studentID uuid.UUID, newAmount decimal.Decimal) (int64, error) {
	if newAmount.IsNegative() {
		return 0, apperr.NewValidation("monthly fee cannot be negative")
	}
	year, month := utils.YearMonth(s.now(), s.location())
	n, err := q.UpdateUnpaidFeesFrom(ctx, studentID, year, month, newAmount)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust future fees: %w", err)
	}
	return n, nil
}
