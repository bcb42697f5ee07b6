package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditAuthorization is a proposed, not-yet-active credit sale awaiting
// administrative approval. It owns its lines and proposed installments.
type CreditAuthorization struct {
	ID                int64               `json:"id"`
	ClientID          int64               `json:"client_id"`
	BranchID          int64               `json:"branch_id"`
	RequestedByID     int64               `json:"requested_by_id"`
	ProposedTotal     decimal.Decimal     `json:"proposed_total"`
	DownPayment       decimal.Decimal     `json:"down_payment"`
	InstallmentsTotal int                 `json:"installments_total"`
	InterestKind      InterestKind        `json:"interest_kind"`
	InterestRate      decimal.Decimal     `json:"interest_rate"`
	PlanMode          PlanMode            `json:"plan_mode"`
	DaysBetween       int                 `json:"days_between_payments"`
	FirstDueDate      time.Time           `json:"first_due_date"`
	Comment           string              `json:"comment,omitempty"`
	Status            AuthorizationStatus `json:"status"`
	RejectionReason   string              `json:"rejection_reason,omitempty"`
	RequestedAt       time.Time           `json:"requested_at"`
	RespondedAt       *time.Time          `json:"responded_at,omitempty"`

	Lines        []ProposedLine        `json:"lines"`
	Installments []ProposedInstallment `json:"installments"`
}

// ProposedLine is one product or variant line on an authorization.
// Exactly one of ProductID/VariantID is set.
type ProposedLine struct {
	ID        int64           `json:"id"`
	ProductID *int64          `json:"product_id,omitempty"`
	VariantID *int64          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ListPrice decimal.Decimal `json:"list_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// ProposedInstallment is one entry of the client-proposed schedule. The down
// payment, when present, is unique and carries sequence 0.
type ProposedInstallment struct {
	ID       int64             `json:"id"`
	Sequence int               `json:"sequence"`
	DueDate  time.Time         `json:"due_date"`
	Amount   decimal.Decimal   `json:"amount"`
	Label    InstallmentLabel  `json:"label"`
	Origin   InstallmentOrigin `json:"origin"`
	Capital  *decimal.Decimal  `json:"capital,omitempty"`
	Interest *decimal.Decimal  `json:"interest,omitempty"`
}
