package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorales-gt/crediventa/internal/apperr"
	"github.com/jmorales-gt/crediventa/internal/models"
)

func TestApplyPaymentSettlesInstallment(t *testing.T) {
	env := newTestEnv()
	credit := env.approvedCredit(t, models.PlanEqual, "0")
	first := credit.Installments[0]

	payment, err := env.svc.ApplyPayment(context.Background(), PaymentRequest{
		CreditID:   credit.ID,
		BranchID:   1,
		OperatorID: 10,
		Method:     "CASH",
		Details: []AllocationRequest{{
			InstallmentID: first.ID,
			Capital:       first.ExpectedAmount,
		}},
	})
	require.NoError(t, err)
	assert.Contains(t, payment.Reference, "ABO-2024-")
	assert.NotEmpty(t, payment.Receipt)
	assert.True(t, payment.Total.Equal(first.ExpectedAmount))

	after, err := env.svc.GetCredit(context.Background(), credit.ID)
	require.NoError(t, err)
	assert.True(t, after.TotalPaid.Equal(first.ExpectedAmount))
	assert.Equal(t, models.InstallmentPaid, after.Installments[0].Status)
	require.NotNil(t, after.Installments[0].PaidDate)

	require.Len(t, env.movements.recorded, 1)
	assert.Equal(t, "CREDIT_COLLECTION", env.movements.recorded[0].Reason)
}

func TestApplyPaymentMarksPartialCoverageAsPaid(t *testing.T) {
	env := newTestEnv()
	credit := env.approvedCredit(t, models.PlanEqual, "0")
	first := credit.Installments[0]

	_, err := env.svc.ApplyPayment(context.Background(), PaymentRequest{
		CreditID:   credit.ID,
		BranchID:   1,
		OperatorID: 10,
		Method:     "CASH",
		Details: []AllocationRequest{{
			InstallmentID: first.ID,
			Capital:       money("10.00"),
		}},
	})
	require.NoError(t, err)

	after, err := env.svc.GetCredit(context.Background(), credit.ID)
	require.NoError(t, err)
	got := after.Installments[0]
	assert.Equal(t, models.InstallmentPaid, got.Status,
		"any allocation marks the installment PAID regardless of coverage")
	assert.True(t, got.PaidAmount.Equal(money("10.00")))
	assert.Nil(t, got.PaidDate, "paid date is reserved for full coverage")
}

func TestApplyPaymentFullFaceValueWithPenaltySetsPaidDate(t *testing.T) {
	env := newTestEnv()
	credit := env.approvedCredit(t, models.PlanEqual, "0")
	first := credit.Installments[0]

	// Let the first installment run late so it carries accrued mora.
	env.now = time.Date(2024, 7, 11, 12, 0, 0, 0, time.UTC)
	sum, err := env.svc.RunMoraAccrual(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sum.Accrued)

	// Paying exactly the face value settles the installment: the penalty
	// does not raise the bar for the paid date.
	_, err = env.svc.ApplyPayment(context.Background(), PaymentRequest{
		CreditID:   credit.ID,
		BranchID:   1,
		OperatorID: 10,
		Method:     "CASH",
		Details: []AllocationRequest{{
			InstallmentID: first.ID,
			Capital:       first.ExpectedAmount,
		}},
	})
	require.NoError(t, err)

	after, err := env.svc.GetCredit(context.Background(), credit.ID)
	require.NoError(t, err)
	got := after.Installments[0]
	assert.Equal(t, models.InstallmentPaid, got.Status)
	assert.True(t, got.AccruedPenalty.IsPositive())
	require.NotNil(t, got.PaidDate)

	// And the settlement remains reversible.
	err = env.svc.ReversePayment(context.Background(), first.ID, AdminCredentials{
		AdminID:  20,
		Password: "hunter2",
	})
	require.NoError(t, err)
}

func TestApplyPaymentExplicitTotalOverridesComponents(t *testing.T) {
	env := newTestEnv()
	credit := env.approvedCredit(t, models.PlanEqual, "0")
	first := credit.Installments[0]

	payment, err := env.svc.ApplyPayment(context.Background(), PaymentRequest{
		CreditID:   credit.ID,
		BranchID:   1,
		OperatorID: 10,
		Method:     "CASH",
		Details: []AllocationRequest{{
			InstallmentID: first.ID,
			Capital:       money("100.00"),
			Penalty:       money("5.00"),
			Total:         money("90.00"),
		}},
	})
	require.NoError(t, err)
	assert.True(t, payment.Total.Equal(money("90.00")))
}

func TestApplyPaymentWithoutDetailsFails(t *testing.T) {
	env := newTestEnv()
	credit := env.approvedCredit(t, models.PlanEqual, "0")

	_, err := env.svc.ApplyPayment(context.Background(), PaymentRequest{
		CreditID:   credit.ID,
		BranchID:   1,
		OperatorID: 10,
		Method:     "CASH",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestApplyPaymentToTerminalInstallmentConflicts(t *testing.T) {
	env := newTestEnv()
	credit := env.approvedCredit(t, models.PlanEqual, "0")
	first := credit.Installments[0]

	// Settle it once.
	_, err := env.svc.ApplyPayment(context.Background(), PaymentRequest{
		CreditID:   credit.ID,
		BranchID:   1,
		OperatorID: 10,
		Method:     "CASH",
		Details:    []AllocationRequest{{InstallmentID: first.ID, Capital: first.ExpectedAmount}},
	})
	require.NoError(t, err)

	// A second payment against the settled installment is rejected.
	_, err = env.svc.ApplyPayment(context.Background(), PaymentRequest{
		CreditID:   credit.ID,
		BranchID:   1,
		OperatorID: 10,
		Method:     "CASH",
		Details:    []AllocationRequest{{InstallmentID: first.ID, Capital: money("1.00")}},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestApplyPaymentRejectsNegativeAllocation(t *testing.T) {
	env := newTestEnv()
	credit := env.approvedCredit(t, models.PlanEqual, "0")
	first := credit.Installments[0]

	_, err := env.svc.ApplyPayment(context.Background(), PaymentRequest{
		CreditID:   credit.ID,
		BranchID:   1,
		OperatorID: 10,
		Method:     "CASH",
		Details:    []AllocationRequest{{InstallmentID: first.ID, Capital: money("-5.00")}},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestApplyPaymentUnknownCredit(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.ApplyPayment(context.Background(), PaymentRequest{
		CreditID: 404,
		Details:  []AllocationRequest{{InstallmentID: 1, Capital: money("1.00")}},
	})
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
