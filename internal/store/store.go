// Package store declares the persistence interface the services depend on.
// The postgres implementation lives in internal/repository; tests use an
// in-memory substitute.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmorales-gt/crediventa/internal/models"
)

// Tx is the operation set available inside a transaction. Every logical
// operation of the service layer runs its writes through exactly one Tx.
type Tx interface {
	// Authorizations.
	InsertAuthorization(ctx context.Context, a *models.CreditAuthorization) error
	InsertProposedLine(ctx context.Context, authID int64, l *models.ProposedLine) error
	InsertProposedInstallment(ctx context.Context, authID int64, p *models.ProposedInstallment) error
	GetAuthorization(ctx context.Context, id int64) (*models.CreditAuthorization, error)
	SetAuthorizationStatus(ctx context.Context, id int64, status models.AuthorizationStatus, reason string, at time.Time) error

	// Credits and installments.
	InsertCredit(ctx context.Context, c *models.Credit) error
	InsertInstallment(ctx context.Context, i *models.Installment) error
	GetCredit(ctx context.Context, id int64) (*models.Credit, error)
	// LockInstallment reads an installment acquiring a row lock scoped to
	// the transaction, ordering payment application against accrual.
	LockInstallment(ctx context.Context, id int64) (*models.Installment, error)
	UpdateInstallmentPayment(ctx context.Context, id int64, paid decimal.Decimal, status models.InstallmentStatus, paidAt *time.Time) error
	AccrueInstallmentPenalty(ctx context.Context, id int64, delta decimal.Decimal, accruedOn time.Time) error
	MarkInstallmentLate(ctx context.Context, id int64, accruedOn time.Time) error
	ResetInstallment(ctx context.Context, id int64) error
	SetCreditStatus(ctx context.Context, id int64, status models.CreditStatus) error
	AddToCreditPaid(ctx context.Context, id int64, delta decimal.Decimal) error
	SetCreditPaid(ctx context.Context, id int64, total decimal.Decimal) error
	DeleteCreditCascade(ctx context.Context, creditID int64) error

	// Sales and financial movements (written by the collaborator bridges so
	// they share the credit's transaction).
	InsertSale(ctx context.Context, s *models.Sale) error
	GetSale(ctx context.Context, id int64) (*models.Sale, error)
	SetSaleTotal(ctx context.Context, id int64, total decimal.Decimal) error
	DeleteSale(ctx context.Context, id int64) error
	InsertMovement(ctx context.Context, m *models.Movement) error

	// Payments.
	InsertPayment(ctx context.Context, p *models.Payment) error
	SetPaymentReference(ctx context.Context, id int64, ref string) error

	// Audit trail and users.
	InsertAudit(ctx context.Context, e *models.AuditEntry) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Storage is the full persistence surface: transactional writes plus the
// composed read models used by listings and the accrual job.
type Storage interface {
	Tx

	// Transact runs fn inside a single database transaction; any error
	// rolls back every write fn performed.
	Transact(ctx context.Context, fn func(Tx) error) error

	ListAuthorizations(ctx context.Context, f AuthorizationFilter) ([]models.CreditAuthorization, int, error)
	ListCredits(ctx context.Context, f CreditFilter) ([]models.Credit, int, error)
	// ListAccruable returns ACTIVE and IN_ARREARS credits with their
	// installments, for the nightly mora job.
	ListAccruable(ctx context.Context) ([]models.Credit, error)
	// ListAdmins returns active administrators of a branch; branchID 0
	// means administrators of any branch.
	ListAdmins(ctx context.Context, branchID int64) ([]models.User, error)
}

// AuthorizationFilter narrows and pages authorization listings.
type AuthorizationFilter struct {
	Status   *models.AuthorizationStatus
	BranchID *int64
	ClientID *int64
	From     *time.Time
	To       *time.Time
	// Search matches comment, client name and line product/variant names.
	Search   string
	SortBy   string
	SortDesc bool
	Page     int
	Limit    int
}

// CreditFilter narrows and pages credit listings.
type CreditFilter struct {
	BranchID     *int64
	ClientID     *int64
	OperatorID   *int64
	Status       *models.CreditStatus
	PlanMode     *models.PlanMode
	InterestKind *models.InterestKind
	StartFrom    *time.Time
	StartTo      *time.Time
	NextDueFrom  *time.Time
	NextDueTo    *time.Time
	// InArrears selects credits with any LATE installment or positive
	// accrued penalty; Overdue selects credits with any unpaid installment
	// past its due date.
	InArrears bool
	Overdue   bool
	Search    string
	SortBy    string
	SortDesc  bool
	Page      int
	Limit     int
}
