package schedule

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jmorales-gt/crediventa/internal/apperr"
	"github.com/jmorales-gt/crediventa/internal/models"
)

// Core are the authorization fields the validator checks before any plan
// entry is looked at. Clients must already exist; no inline creation here.
type Core struct {
	ClientID          int64
	BranchID          int64
	RequestedByID     int64
	LineCount         int
	InstallmentsTotal int
	DaysBetween       int
	InterestKind      models.InterestKind
	PlanMode          models.PlanMode
	DownPayment       decimal.Decimal
}

// ValidateCore rejects a proposal whose header fields are malformed.
func ValidateCore(c Core) error {
	if c.ClientID <= 0 {
		return apperr.Validationf("client id is required (pre-existing client)")
	}
	if c.BranchID <= 0 {
		return apperr.Validationf("branch id is required")
	}
	if c.RequestedByID <= 0 {
		return apperr.Validationf("requester id is required")
	}
	if c.LineCount < 1 {
		return apperr.Validationf("at least one proposed line is required")
	}
	if c.InstallmentsTotal < 1 {
		return apperr.Validationf("installment count must be >= 1")
	}
	if c.DaysBetween <= 0 {
		return apperr.Validationf("days between payments must be > 0")
	}
	if !c.InterestKind.Valid() {
		return apperr.Validationf("unknown interest kind %q", c.InterestKind)
	}
	if !c.PlanMode.Valid() {
		return apperr.Validationf("unknown plan mode %q", c.PlanMode)
	}
	if c.PlanMode.RequiresDownPayment() && !c.DownPayment.IsPositive() {
		return apperr.Validationf("plan mode %s requires a positive down payment", c.PlanMode)
	}
	return nil
}

// ValidatePlan checks a client-submitted installment plan and returns it
// sorted ascending by sequence number. It fails fast on the first violation,
// naming the offending entry's 1-based position. Rules: non-negative integer
// sequence numbers, unique; valid calendar dates; non-negative amounts; at
// most one DOWN_PAYMENT entry and it must carry sequence 0.
func ValidatePlan(items []models.ProposedInstallment) ([]models.ProposedInstallment, error) {
	if len(items) == 0 {
		return nil, apperr.Validationf("at least one proposed installment is required")
	}

	seen := make(map[int]bool, len(items))
	downPayments := 0
	out := make([]models.ProposedInstallment, len(items))
	for idx, it := range items {
		pos := idx + 1
		if it.Sequence < 0 {
			return nil, apperr.Validationf("installment %d: invalid sequence number", pos)
		}
		if seen[it.Sequence] {
			return nil, apperr.Validationf("installment %d: duplicate sequence number %d", pos, it.Sequence)
		}
		seen[it.Sequence] = true

		if it.DueDate.IsZero() {
			return nil, apperr.Validationf("installment %d: invalid due date", pos)
		}
		if it.Amount.IsNegative() {
			return nil, apperr.Validationf("installment %d: invalid amount", pos)
		}

		if it.Label != models.LabelDownPayment {
			it.Label = models.LabelNormal
		}
		if it.Origin != models.OriginManual {
			it.Origin = models.OriginAuto
		}
		if it.Label == models.LabelDownPayment {
			downPayments++
			if downPayments > 1 {
				return nil, apperr.Validationf("installment %d: more than one down payment entry", pos)
			}
			if it.Sequence != 0 {
				return nil, apperr.Validationf("installment %d: down payment must carry sequence 0", pos)
			}
		}
		out[idx] = it
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

// PlanTotal sums all installment amounts. The result is the authoritative
// financed total of a proposal, overriding any client-submitted figure.
func PlanTotal(items []models.ProposedInstallment) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}

// DownPaymentOf returns the amount of the DOWN_PAYMENT-labeled entry, or
// zero when the plan has none.
func DownPaymentOf(items []models.ProposedInstallment) decimal.Decimal {
	for _, it := range items {
		if it.Label == models.LabelDownPayment {
			return it.Amount
		}
	}
	return decimal.Zero
}
