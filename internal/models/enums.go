package models

// InterestKind classifies how interest was agreed on a financed sale.
type InterestKind string

const (
	InterestNone     InterestKind = "NONE"
	InterestSimple   InterestKind = "SIMPLE"
	InterestCompound InterestKind = "COMPOUND"
)

// Valid reports whether k is a recognized interest kind.
func (k InterestKind) Valid() bool {
	switch k {
	case InterestNone, InterestSimple, InterestCompound:
		return true
	}
	return false
}

// PlanMode describes the shape of the installment amounts across a schedule.
type PlanMode string

const (
	PlanEqual       PlanMode = "EQUAL"
	PlanFirstLarger PlanMode = "FIRST_LARGER"
	PlanIncreasing  PlanMode = "INCREASING"
	PlanDecreasing  PlanMode = "DECREASING"
)

// Valid reports whether m is a recognized plan mode.
func (m PlanMode) Valid() bool {
	switch m {
	case PlanEqual, PlanFirstLarger, PlanIncreasing, PlanDecreasing:
		return true
	}
	return false
}

// RequiresDownPayment reports whether the mode demands an explicit positive
// first installment at authorization time.
func (m PlanMode) RequiresDownPayment() bool {
	return m == PlanFirstLarger
}

// AuthorizationStatus is the lifecycle state of a credit proposal.
type AuthorizationStatus string

const (
	AuthorizationPending  AuthorizationStatus = "PENDING"
	AuthorizationApproved AuthorizationStatus = "APPROVED"
	AuthorizationRejected AuthorizationStatus = "REJECTED"
)

// CreditStatus is the lifecycle state of an active credit.
type CreditStatus string

const (
	CreditActive      CreditStatus = "ACTIVE"
	CreditInArrears   CreditStatus = "IN_ARREARS"
	CreditPaused      CreditStatus = "PAUSED"
	CreditRescheduled CreditStatus = "RESCHEDULED"
	CreditCancelled   CreditStatus = "CANCELLED"
	CreditCompleted   CreditStatus = "COMPLETED"
)

// AdministrativeCreditStatuses are the states an administrator may move a
// credit into by hand; ACTIVE and IN_ARREARS are driven by payments/accrual.
func (s CreditStatus) Administrative() bool {
	switch s {
	case CreditPaused, CreditRescheduled, CreditCancelled, CreditCompleted:
		return true
	}
	return false
}

// InstallmentStatus is the lifecycle state of a single installment.
type InstallmentStatus string

const (
	InstallmentPending   InstallmentStatus = "PENDING"
	InstallmentPartial   InstallmentStatus = "PARTIAL"
	InstallmentLate      InstallmentStatus = "LATE"
	InstallmentPaid      InstallmentStatus = "PAID"
	InstallmentClosed    InstallmentStatus = "CLOSED"
	InstallmentCancelled InstallmentStatus = "CANCELLED"
)

// Terminal reports whether the installment may never be mutated again.
func (s InstallmentStatus) Terminal() bool {
	switch s {
	case InstallmentPaid, InstallmentClosed, InstallmentCancelled:
		return true
	}
	return false
}

// InstallmentLabel distinguishes the optional down payment from ordinary rows.
type InstallmentLabel string

const (
	LabelDownPayment InstallmentLabel = "DOWN_PAYMENT"
	LabelNormal      InstallmentLabel = "NORMAL"
)

// InstallmentOrigin records whether an entry was computed or hand-edited.
type InstallmentOrigin string

const (
	OriginAuto   InstallmentOrigin = "AUTO"
	OriginManual InstallmentOrigin = "MANUAL"
)

// Role of a system user.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleSeller     Role = "SELLER"
)

// Admin reports whether the role may perform privileged ledger operations.
func (r Role) Admin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}
