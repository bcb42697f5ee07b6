package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment (abono) is a single collection event against a credit, allocated
// across one or more installments through its details.
type Payment struct {
	ID         int64           `json:"id"`
	CreditID   int64           `json:"credit_id"`
	BranchID   int64           `json:"branch_id"`
	OperatorID int64           `json:"operator_id"`
	Method     string          `json:"method"`
	Reference  string          `json:"reference"`
	Receipt    string          `json:"receipt"`
	PaidAt     time.Time       `json:"paid_at"`
	Total      decimal.Decimal `json:"total"`

	Details []AllocationDetail `json:"details"`
}

// AllocationDetail applies a portion of a payment to exactly one installment,
// split into capital, interest and penalty components. Total is the sum of
// the three unless an explicit override was supplied by the caller.
type AllocationDetail struct {
	ID            int64           `json:"id"`
	PaymentID     int64           `json:"payment_id"`
	InstallmentID int64           `json:"installment_id"`
	Capital       decimal.Decimal `json:"capital"`
	Interest      decimal.Decimal `json:"interest"`
	Penalty       decimal.Decimal `json:"penalty"`
	Total         decimal.Decimal `json:"total"`
}
