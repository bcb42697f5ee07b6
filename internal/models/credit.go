package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Credit is an approved, active installment loan: the ledger header that owns
// the installment rows and accumulates the paid total.
type Credit struct {
	ID                int64           `json:"id"`
	ClientID          int64           `json:"client_id"`
	SaleID            int64           `json:"sale_id"`
	BranchID          int64           `json:"branch_id"`
	CollectorID       int64           `json:"collector_id"`
	CreatedByID       int64           `json:"created_by_id"`
	TotalFinanced     decimal.Decimal `json:"total_financed"`
	DownPayment       decimal.Decimal `json:"down_payment"`
	InstallmentsTotal int             `json:"installments_total"`
	DaysBetween       int             `json:"days_between_payments"`
	InterestKind      InterestKind    `json:"interest_kind"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	PlanMode          PlanMode        `json:"plan_mode"`
	Status            CreditStatus    `json:"status"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	NextDueDate       *time.Time      `json:"next_due_date,omitempty"`
	StartDate         time.Time       `json:"start_date"`
	ContractDate      time.Time       `json:"contract_date"`
	Comment           string          `json:"comment,omitempty"`
	Witnesses         []Witness       `json:"witnesses,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Installments []Installment `json:"installments,omitempty"`
}

// Witness is a contract witness recorded on the credit header.
type Witness struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Installment is one scheduled payment obligation within a credit.
type Installment struct {
	ID              int64             `json:"id"`
	CreditID        int64             `json:"credit_id"`
	Sequence        int               `json:"sequence"`
	ExpectedAmount  decimal.Decimal   `json:"expected_amount"`
	PaidAmount      decimal.Decimal   `json:"paid_amount"`
	AccruedPenalty  decimal.Decimal   `json:"accrued_penalty"`
	DueDate         time.Time         `json:"due_date"`
	Status          InstallmentStatus `json:"status"`
	LastAccrualDate *time.Time        `json:"last_accrual_date,omitempty"`
	PaidDate        *time.Time        `json:"paid_date,omitempty"`
}

// Outstanding is the unpaid remainder of the expected amount, never negative.
func (i Installment) Outstanding() decimal.Decimal {
	out := i.ExpectedAmount.Sub(i.PaidAmount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// Sale is the sale record a credit originates from. Inventory decrement and
// the rest of the selling flow live outside this service; the row here is the
// financial anchor the credit and its payments hang off.
type Sale struct {
	ID        int64           `json:"id"`
	Reference string          `json:"reference"`
	ClientID  int64           `json:"client_id"`
	BranchID  int64           `json:"branch_id"`
	Method    string          `json:"method"`
	Total     decimal.Decimal `json:"total"`
}

// Movement is one cash-register or bank-account balance mutation, written
// alongside the payment that caused it.
type Movement struct {
	ID             int64           `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
	BranchID       int64           `json:"branch_id"`
	OperatorID     int64           `json:"operator_id"`
	Method         string          `json:"method"`
	BankAccountID  *int64          `json:"bank_account_id,omitempty"`
	CashRegisterID *int64          `json:"cash_register_id,omitempty"`
	Description    string          `json:"description"`
	Reference      string          `json:"reference"`
	CreatedAt      time.Time       `json:"created_at"`
}
