package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmorales-gt/crediventa/internal/models"
	"github.com/jmorales-gt/crediventa/internal/store"
)

const daysPerYear = 365

// AccrualSummary reports one nightly run of the late-interest job.
type AccrualSummary struct {
	CreditsScanned int
	Accrued        int
	MarkedLate     int
	Failed         int
}

// RunMoraAccrual walks every ACTIVE or IN_ARREARS credit and charges late
// interest on overdue installments. The job is idempotent within a calendar
// day: each installment records the date it last accrued and is skipped until
// the next day, so re-running after a crash never double-charges. Each
// installment is processed in its own transaction; one failure is logged and
// the batch moves on.
func (s *Service) RunMoraAccrual(ctx context.Context) (AccrualSummary, error) {
	today := s.startOfDay(s.now())
	var sum AccrualSummary

	credits, err := s.store.ListAccruable(ctx)
	if err != nil {
		return sum, fmt.Errorf("failed to list credits for accrual: %w", err)
	}
	sum.CreditsScanned = len(credits)

	for i := range credits {
		credit := &credits[i]
		rate, err := s.resolveRate(ctx, credit)
		if err != nil {
			sum.Failed++
			s.log.WithError(err).Errorf("accrual: could not resolve rate for credit %d", credit.ID)
			continue
		}

		for j := range credit.Installments {
			inst := &credit.Installments[j]
			switch s.accrueOne(ctx, credit, inst, rate, today) {
			case accrualCharged:
				sum.Accrued++
			case accrualMarkedLate:
				sum.MarkedLate++
			case accrualFailed:
				sum.Failed++
			}
		}
	}

	s.log.WithFields(map[string]any{
		"scanned": sum.CreditsScanned,
		"accrued": sum.Accrued,
		"late":    sum.MarkedLate,
		"failed":  sum.Failed,
	}).Info("mora accrual finished")
	return sum, nil
}

// resolveRate returns the annual percentage used for mora. A credit that
// carries interest but no explicit rate falls back to the published bank
// reference rate.
func (s *Service) resolveRate(ctx context.Context, credit *models.Credit) (decimal.Decimal, error) {
	if credit.InterestKind == models.InterestNone {
		return decimal.Zero, nil
	}
	if credit.InterestRate.IsPositive() {
		return credit.InterestRate, nil
	}
	if s.rates == nil {
		return decimal.Zero, nil
	}
	ref, err := s.rates.AnnualLendingRate(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(ref), nil
}

type accrualOutcome int

const (
	accrualSkipped accrualOutcome = iota
	accrualCharged
	accrualMarkedLate
	accrualFailed
)

// accrueOne charges one installment for the days elapsed since its last
// accrual (or its due date, whichever is later). The lock re-check inside the
// transaction guards against a payment or a concurrent run settling the row
// between the listing and the charge.
func (s *Service) accrueOne(ctx context.Context, credit *models.Credit, inst *models.Installment,
	rate decimal.Decimal, today time.Time) accrualOutcome {
	if inst.Status.Terminal() || !inst.Outstanding().IsPositive() {
		return accrualSkipped
	}
	due := s.startOfDay(inst.DueDate)
	if !today.After(due) {
		return accrualSkipped
	}
	if inst.LastAccrualDate != nil && !today.After(s.startOfDay(*inst.LastAccrualDate)) {
		return accrualSkipped
	}

	if rate.IsZero() {
		// No interest: flag the delinquency once and leave the amount alone.
		if inst.Status == models.InstallmentLate {
			return accrualSkipped
		}
		err := s.store.Transact(ctx, func(tx store.Tx) error {
			locked, err := tx.LockInstallment(ctx, inst.ID)
			if err != nil {
				return err
			}
			if locked.Status.Terminal() || locked.Status == models.InstallmentLate {
				return nil
			}
			if err := tx.MarkInstallmentLate(ctx, inst.ID, today); err != nil {
				return err
			}
			if err := tx.SetCreditStatus(ctx, credit.ID, models.CreditInArrears); err != nil {
				return err
			}
			return tx.InsertAudit(ctx, &models.AuditEntry{
				CreditID: &credit.ID,
				Action:   models.AuditMoraAccrued,
				Comment:  fmt.Sprintf("installment #%d marked late", inst.Sequence),
			})
		})
		if err != nil {
			s.log.WithError(err).Errorf("accrual: failed to mark installment %d late", inst.ID)
			return accrualFailed
		}
		s.notifyCollector(ctx, credit, inst, decimal.Zero)
		return accrualMarkedLate
	}

	from := due
	if inst.LastAccrualDate != nil {
		if last := s.startOfDay(*inst.LastAccrualDate); last.After(from) {
			from = last
		}
	}
	days := calendarDaysBetween(from, today)
	if days <= 0 {
		return accrualSkipped
	}

	// outstanding * (rate / 100 / 365) * days, kept at 4 decimal places.
	dailyRate := rate.Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(daysPerYear))
	delta := inst.Outstanding().Mul(dailyRate).Mul(decimal.NewFromInt(int64(days))).Round(4)
	if !delta.IsPositive() {
		return accrualSkipped
	}

	err := s.store.Transact(ctx, func(tx store.Tx) error {
		locked, err := tx.LockInstallment(ctx, inst.ID)
		if err != nil {
			return err
		}
		if locked.Status.Terminal() || !locked.Outstanding().IsPositive() {
			return nil
		}
		if locked.LastAccrualDate != nil && !today.After(s.startOfDay(*locked.LastAccrualDate)) {
			return nil
		}
		if err := tx.AccrueInstallmentPenalty(ctx, inst.ID, delta, today); err != nil {
			return err
		}
		if err := tx.SetCreditStatus(ctx, credit.ID, models.CreditInArrears); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, &models.AuditEntry{
			CreditID: &credit.ID,
			Action:   models.AuditMoraAccrued,
			Comment:  fmt.Sprintf("installment #%d accrued %s over %d days", inst.Sequence, delta, days),
		})
	})
	if err != nil {
		s.log.WithError(err).Errorf("accrual: failed to charge installment %d", inst.ID)
		return accrualFailed
	}
	s.notifyCollector(ctx, credit, inst, delta)
	return accrualCharged
}

// calendarDaysBetween counts whole calendar days between two midnights.
// Counting on the date components keeps the result stable across daylight
// saving transitions when the job runs in a zone that observes them.
func calendarDaysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func (s *Service) notifyCollector(ctx context.Context, credit *models.Credit, inst *models.Installment, delta decimal.Decimal) {
	msg := fmt.Sprintf("Installment #%d of credit #%d is overdue", inst.Sequence, credit.ID)
	if delta.IsPositive() {
		msg = fmt.Sprintf("%s; %s of late interest was charged", msg, delta)
	}
	s.notifyUser(ctx, credit.CollectorID, "WARNING", "Overdue installment", msg,
		map[string]any{"credit_id": credit.ID, "installment": inst.Sequence})
}
