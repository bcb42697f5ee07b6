// Package schedule holds the pure installment-plan logic: the amortization
// calculator and the validation of client-proposed plans. Nothing in this
// package touches persisted state.
package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmorales-gt/crediventa/internal/apperr"
	"github.com/jmorales-gt/crediventa/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Entry is one computed installment of an amortized schedule.
type Entry struct {
	Sequence int             `json:"sequence"`
	DueDate  time.Time       `json:"due_date"`
	Amount   decimal.Decimal `json:"amount"`
}

// Amortize splits a financed principal into n installments that sum exactly
// to the principal, accurate to the smallest currency unit. The principal is
// converted to integer minor units (rounding half away from zero), divided
// evenly, and the remainder cents are distributed one per installment to the
// first installments in sequence order. Due dates fall every intervalDays
// after start, at midnight in loc.
func Amortize(principal decimal.Decimal, n int, start time.Time, intervalDays int, loc *time.Location) ([]Entry, error) {
	if n < 1 {
		return nil, apperr.Validationf("installment count must be >= 1")
	}
	if intervalDays <= 0 {
		return nil, apperr.Validationf("days between payments must be > 0")
	}
	if principal.IsNegative() {
		return nil, apperr.Validationf("principal must not be negative")
	}

	cents := principal.Mul(hundred).Round(0).IntPart()
	base := cents / int64(n)
	remainder := cents - base*int64(n)

	day := start.In(loc)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)

	entries := make([]Entry, 0, n)
	for k := 1; k <= n; k++ {
		amount := base
		if int64(k) <= remainder {
			amount++
		}
		entries = append(entries, Entry{
			Sequence: k,
			DueDate:  day.AddDate(0, 0, intervalDays*k),
			Amount:   decimal.New(amount, -2),
		})
	}
	return entries, nil
}

// DefaultPlan builds the proposed installments for a plan that was not
// hand-edited by the requester: an amortized split of total minus down
// payment, preceded by the sequence-0 down payment entry when one applies.
func DefaultPlan(total, downPayment decimal.Decimal, n int, start time.Time, intervalDays int, loc *time.Location) ([]models.ProposedInstallment, error) {
	entries, err := Amortize(total.Sub(downPayment), n, start, intervalDays, loc)
	if err != nil {
		return nil, err
	}

	plan := make([]models.ProposedInstallment, 0, n+1)
	if downPayment.IsPositive() {
		plan = append(plan, models.ProposedInstallment{
			Sequence: 0,
			DueDate:  start,
			Amount:   downPayment,
			Label:    models.LabelDownPayment,
			Origin:   models.OriginAuto,
		})
	}
	for _, e := range entries {
		plan = append(plan, models.ProposedInstallment{
			Sequence: e.Sequence,
			DueDate:  e.DueDate,
			Amount:   e.Amount,
			Label:    models.LabelNormal,
			Origin:   models.OriginAuto,
		})
	}
	return plan, nil
}
