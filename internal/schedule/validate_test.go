package schedule

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorales-gt/crediventa/internal/apperr"
	"github.com/jmorales-gt/crediventa/internal/models"
)

func validCore() Core {
	return Core{
		ClientID:          1,
		BranchID:          1,
		RequestedByID:     1,
		LineCount:         1,
		InstallmentsTotal: 3,
		DaysBetween:       30,
		InterestKind:      models.InterestNone,
		PlanMode:          models.PlanEqual,
	}
}

func TestValidateCore(t *testing.T) {
	assert.NoError(t, ValidateCore(validCore()))

	c := validCore()
	c.ClientID = 0
	assert.True(t, apperr.Is(ValidateCore(c), apperr.Validation))

	c = validCore()
	c.LineCount = 0
	assert.True(t, apperr.Is(ValidateCore(c), apperr.Validation))

	c = validCore()
	c.InterestKind = "EXOTIC"
	assert.True(t, apperr.Is(ValidateCore(c), apperr.Validation))

	c = validCore()
	c.PlanMode = models.PlanFirstLarger
	assert.True(t, apperr.Is(ValidateCore(c), apperr.Validation),
		"FIRST_LARGER without a positive down payment must be rejected")

	c.DownPayment = decimal.RequireFromString("100")
	assert.NoError(t, ValidateCore(c))
}

func planEntry(seq int, amount string, label models.InstallmentLabel) models.ProposedInstallment {
	return models.ProposedInstallment{
		Sequence: seq,
		DueDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, seq*30),
		Amount:   decimal.RequireFromString(amount),
		Label:    label,
	}
}

func TestValidatePlanSortsBySequence(t *testing.T) {
	plan, err := ValidatePlan([]models.ProposedInstallment{
		planEntry(2, "100.00", models.LabelNormal),
		planEntry(0, "50.00", models.LabelDownPayment),
		planEntry(1, "100.00", models.LabelNormal),
	})
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.Equal(t, 0, plan[0].Sequence)
	assert.Equal(t, 1, plan[1].Sequence)
	assert.Equal(t, 2, plan[2].Sequence)
}

func TestValidatePlanRejectsDuplicateSequence(t *testing.T) {
	_, err := ValidatePlan([]models.ProposedInstallment{
		planEntry(1, "100.00", models.LabelNormal),
		planEntry(1, "100.00", models.LabelNormal),
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Validation))
	assert.Contains(t, err.Error(), "installment 2", "error names the first offending position")
}

func TestValidatePlanDownPaymentRules(t *testing.T) {
	// Down payment off sequence 0.
	_, err := ValidatePlan([]models.ProposedInstallment{
		planEntry(1, "50.00", models.LabelDownPayment),
	})
	assert.True(t, apperr.Is(err, apperr.Validation))

	// Two down payments.
	_, err = ValidatePlan([]models.ProposedInstallment{
		planEntry(0, "50.00", models.LabelDownPayment),
		planEntry(1, "50.00", models.LabelDownPayment),
	})
	assert.True(t, apperr.Is(err, apperr.Validation))

	// Negative amount.
	_, err = ValidatePlan([]models.ProposedInstallment{
		planEntry(1, "-1.00", models.LabelNormal),
	})
	assert.True(t, apperr.Is(err, apperr.Validation))

	// Empty plan.
	_, err = ValidatePlan(nil)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestValidatePlanDefaultsLabelAndOrigin(t *testing.T) {
	plan, err := ValidatePlan([]models.ProposedInstallment{
		{Sequence: 1, DueDate: time.Now(), Amount: decimal.RequireFromString("10")},
	})
	require.NoError(t, err)
	assert.Equal(t, models.LabelNormal, plan[0].Label)
	assert.Equal(t, models.OriginAuto, plan[0].Origin)
}

func TestPlanTotalAndDownPaymentOf(t *testing.T) {
	plan := []models.ProposedInstallment{
		planEntry(0, "200.00", models.LabelDownPayment),
		planEntry(1, "400.00", models.LabelNormal),
		planEntry(2, "400.00", models.LabelNormal),
	}
	assert.True(t, PlanTotal(plan).Equal(decimal.RequireFromString("1000.00")))
	assert.True(t, DownPaymentOf(plan).Equal(decimal.RequireFromString("200.00")))
	assert.True(t, DownPaymentOf(plan[1:]).IsZero())
}
