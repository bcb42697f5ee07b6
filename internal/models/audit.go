package models

import "time"

// AuditAction tags an append-only history entry.
type AuditAction string

const (
	AuditCreated         AuditAction = "CREATED"
	AuditApproved        AuditAction = "APPROVED"
	AuditRejected        AuditAction = "REJECTED"
	AuditPaymentApplied  AuditAction = "PAYMENT_APPLIED"
	AuditPaymentReversed AuditAction = "PAYMENT_REVERSED"
	AuditMoraAccrued     AuditAction = "MORA_ACCRUED"
	AuditStatusChanged   AuditAction = "STATUS_CHANGED"
)

// AuditEntry is an append-only history row attached to a credit or an
// authorization. Entries are never mutated or deleted.
type AuditEntry struct {
	ID              int64       `json:"id"`
	CreditID        *int64      `json:"credit_id,omitempty"`
	AuthorizationID *int64      `json:"authorization_id,omitempty"`
	Action          AuditAction `json:"action"`
	Comment         string      `json:"comment,omitempty"`
	ActorID         *int64      `json:"actor_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}
