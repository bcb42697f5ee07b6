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

func (e *testEnv) approvedCredit(t *testing.T, mode models.PlanMode, down string) *models.Credit {
	t.Helper()
	e.addUser(20, models.RoleAdmin, 1)
	e.addUser(10, models.RoleSeller, 1)
	auth := e.pendingAuthorization(mode, down)

	req := ApproveRequest{
		AuthorizationID: auth.ID,
		AdminID:         20,
	}
	if mode.RequiresDownPayment() {
		req.PaymentMethod = "CASH"
		req.CashRegisterID = ptr(int64(3))
	}
	credit, err := e.svc.ApproveAuthorization(context.Background(), req)
	require.NoError(t, err)
	return credit
}

func TestApproveAuthorizationMaterializesCredit(t *testing.T) {
	env := newTestEnv()
	credit := env.approvedCredit(t, models.PlanEqual, "0")

	assert.Equal(t, models.CreditActive, credit.Status)
	assert.True(t, credit.TotalFinanced.Equal(money("1000.00")))
	assert.True(t, credit.TotalPaid.IsZero())
	require.Len(t, credit.Installments, 3)
	for _, i := range credit.Installments {
		assert.Equal(t, models.InstallmentPending, i.Status)
	}
	require.NotNil(t, credit.NextDueDate)

	// The originating sale carries the CRED reference.
	require.Len(t, env.sales.created, 1)
	assert.Contains(t, env.sales.created[0].Reference, "CRED-2024-")
}

func TestApproveAuthorizationCollectsDownPayment(t *testing.T) {
	env := newTestEnv()
	credit := env.approvedCredit(t, models.PlanFirstLarger, "250.00")

	require.Len(t, credit.Installments, 4)

	var down *models.Installment
	for idx := range credit.Installments {
		if credit.Installments[idx].Sequence == 1 {
			down = &credit.Installments[idx]
		}
	}
	require.NotNil(t, down)
	assert.Equal(t, models.InstallmentPaid, down.Status)
	assert.True(t, down.PaidAmount.Equal(money("250.00")))
	require.NotNil(t, down.PaidDate)

	assert.True(t, credit.TotalPaid.Equal(money("250.00")))

	// Exactly one movement for the collected down payment.
	require.Len(t, env.movements.recorded, 1)
	assert.True(t, env.movements.recorded[0].Amount.Equal(money("250.00")))
	assert.Equal(t, "CREDIT_COLLECTION", env.movements.recorded[0].Reason)
}

func TestApproveBooksHeaderOnlyDownPayment(t *testing.T) {
	env := newTestEnv()
	env.addUser(20, models.RoleAdmin, 1)
	env.addUser(10, models.RoleSeller, 1)

	// A manual plan with only NORMAL entries while the header still
	// promises a down payment. The money changes hands at signing, so
	// the approval must record the movement even without an installment.
	due := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	auth, err := env.svc.CreateAuthorization(context.Background(), CreateAuthorizationRequest{
		ClientID:          1,
		BranchID:          1,
		RequestedByID:     10,
		ProposedTotal:     money("1000.00"),
		DownPayment:       money("250.00"),
		InstallmentsTotal: 2,
		InterestKind:      models.InterestSimple,
		InterestRate:      money("12"),
		PlanMode:          models.PlanFirstLarger,
		DaysBetween:       30,
		FirstDueDate:      due,
		Lines: []LineRequest{{
			ProductID: ptr(int64(5)),
			Quantity:  1,
			UnitPrice: money("1000.00"),
			Subtotal:  money("1000.00"),
		}},
		Installments: []models.ProposedInstallment{
			{Sequence: 1, DueDate: due, Amount: money("500.00")},
			{Sequence: 2, DueDate: due.AddDate(0, 0, 30), Amount: money("500.00")},
		},
	})
	require.NoError(t, err)

	credit, err := env.svc.ApproveAuthorization(context.Background(), ApproveRequest{
		AuthorizationID: auth.ID,
		AdminID:         20,
		PaymentMethod:   "CASH",
		CashRegisterID:  ptr(int64(3)),
	})
	require.NoError(t, err)

	assert.True(t, credit.DownPayment.Equal(money("250.00")))
	require.Len(t, credit.Installments, 2)

	require.Len(t, env.movements.recorded, 1)
	assert.True(t, env.movements.recorded[0].Amount.Equal(money("250.00")))
	assert.Equal(t, "CREDIT_COLLECTION", env.movements.recorded[0].Reason)
	assert.Contains(t, env.movements.recorded[0].Description, "down payment")
}

func TestApproveRequiresPaymentTargetForDownPayment(t *testing.T) {
	env := newTestEnv()
	env.addUser(20, models.RoleAdmin, 1)
	auth := env.pendingAuthorization(models.PlanFirstLarger, "250.00")

	_, err := env.svc.ApproveAuthorization(context.Background(), ApproveRequest{
		AuthorizationID: auth.ID,
		AdminID:         20,
		PaymentMethod:   "CASH",
		// no cash register or bank account
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestApproveNonPendingAuthorizationConflicts(t *testing.T) {
	env := newTestEnv()
	env.approvedCredit(t, models.PlanEqual, "0")

	// The sole authorization is now APPROVED.
	_, err := env.svc.ApproveAuthorization(context.Background(), ApproveRequest{
		AuthorizationID: 1,
		AdminID:         20,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestReversePaymentRestoresTotals(t *testing.T) {
	env := newTestEnv()
	credit := env.approvedCredit(t, models.PlanFirstLarger, "250.00")
	sale := env.sales.created[0]

	var down models.Installment
	for _, i := range credit.Installments {
		if i.Sequence == 1 {
			down = i
		}
	}

	err := env.svc.ReversePayment(context.Background(), down.ID, AdminCredentials{
		AdminID:  20,
		Password: "hunter2",
	})
	require.NoError(t, err)

	after, err := env.svc.GetCredit(context.Background(), credit.ID)
	require.NoError(t, err)
	assert.True(t, after.TotalPaid.IsZero())

	for _, i := range after.Installments {
		if i.Sequence == 1 {
			assert.Equal(t, models.InstallmentPending, i.Status)
			assert.True(t, i.PaidAmount.IsZero())
			assert.Nil(t, i.PaidDate)
		}
	}

	saleAfter, err := env.store.GetSale(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.True(t, saleAfter.Total.Equal(sale.Total.Sub(money("250.00"))))
}

func TestReversePaymentRequiresValidCredentials(t *testing.T) {
	env := newTestEnv()
	credit := env.approvedCredit(t, models.PlanFirstLarger, "250.00")
	downID := credit.Installments[0].ID

	err := env.svc.ReversePayment(context.Background(), downID, AdminCredentials{
		AdminID:  20,
		Password: "wrong",
	})
	assert.True(t, apperr.Is(err, apperr.Auth))

	// A seller cannot reverse, whatever the password.
	err = env.svc.ReversePayment(context.Background(), downID, AdminCredentials{
		AdminID:  10,
		Password: "hunter2",
	})
	assert.True(t, apperr.Is(err, apperr.Auth))
}

func TestReverseUnpaidInstallmentConflicts(t *testing.T) {
	env := newTestEnv()
	credit := env.approvedCredit(t, models.PlanEqual, "0")

	err := env.svc.ReversePayment(context.Background(), credit.Installments[0].ID, AdminCredentials{
		AdminID:  20,
		Password: "hunter2",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestDeleteCreditRemovesSale(t *testing.T) {
	env := newTestEnv()
	credit := env.approvedCredit(t, models.PlanEqual, "0")
	saleID := credit.SaleID

	err := env.svc.DeleteCredit(context.Background(), credit.ID, AdminCredentials{
		AdminID:  20,
		Password: "hunter2",
	})
	require.NoError(t, err)

	_, err = env.svc.GetCredit(context.Background(), credit.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
	_, err = env.store.GetSale(context.Background(), saleID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestCloseCredit(t *testing.T) {
	env := newTestEnv()
	credit := env.approvedCredit(t, models.PlanEqual, "0")

	err := env.svc.CloseCredit(context.Background(), credit.ID, models.CreditPaused, "client travelling", 20)
	require.NoError(t, err)

	after, err := env.svc.GetCredit(context.Background(), credit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CreditPaused, after.Status)

	// ACTIVE is not an administrative status.
	err = env.svc.CloseCredit(context.Background(), credit.ID, models.CreditActive, "", 20)
	assert.True(t, apperr.Is(err, apperr.Validation))
}
