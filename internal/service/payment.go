package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmorales-gt/crediventa/internal/apperr"
	"github.com/jmorales-gt/crediventa/internal/models"
	"github.com/jmorales-gt/crediventa/internal/store"
)

// AllocationRequest directs part of a payment at one installment. Total, when
// present, overrides the component sum; the components are kept for the
// receipt breakdown.
type AllocationRequest struct {
	InstallmentID int64           `json:"installment_id"`
	Capital       decimal.Decimal `json:"capital"`
	Interest      decimal.Decimal `json:"interest"`
	Penalty       decimal.Decimal `json:"penalty"`
	Total         decimal.Decimal `json:"total"`
}

// PaymentRequest collects money against one or more installments of a credit.
type PaymentRequest struct {
	CreditID       int64               `json:"credit_id"`
	BranchID       int64               `json:"branch_id"`
	OperatorID     int64               `json:"operator_id"`
	Method         string              `json:"method"`
	CashRegisterID *int64              `json:"cash_register_id,omitempty"`
	BankAccountID  *int64              `json:"bank_account_id,omitempty"`
	Details        []AllocationRequest `json:"details"`
}

func (r AllocationRequest) amount() decimal.Decimal {
	if !r.Total.IsZero() {
		return r.Total
	}
	return r.Capital.Add(r.Interest).Add(r.Penalty)
}

// ApplyPayment records a payment and settles the targeted installments.
func (s *Service) ApplyPayment(ctx context.Context, req PaymentRequest) (*models.Payment, error) {
	var payment *models.Payment
	err := s.store.Transact(ctx, func(tx store.Tx) error {
		credit, err := tx.GetCredit(ctx, req.CreditID)
		if err != nil {
			return err
		}
		payment, err = s.applyPaymentTx(ctx, tx, credit, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("payment_id", payment.ID).Infof("payment %s applied to credit %d", payment.Reference, req.CreditID)
	return payment, nil
}

// applyPaymentTx is the transactional core of payment application. It is also
// invoked during approval to collect a down payment, so it must not open its
// own transaction.
func (s *Service) applyPaymentTx(ctx context.Context, tx store.Tx, credit *models.Credit, req PaymentRequest) (*models.Payment, error) {
	if len(req.Details) == 0 {
		return nil, apperr.Validationf("a payment needs at least one installment allocation")
	}

	now := s.now().In(s.cfg.Location)
	total := decimal.Zero
	payment := &models.Payment{
		CreditID:   credit.ID,
		BranchID:   req.BranchID,
		OperatorID: req.OperatorID,
		Method:     req.Method,
		Receipt:    uuid.NewString(),
		PaidAt:     now,
	}
	for _, d := range req.Details {
		amount := d.amount()
		if amount.IsNegative() {
			return nil, apperr.Validationf("allocation for installment %d is negative", d.InstallmentID)
		}
		total = total.Add(amount)
		payment.Details = append(payment.Details, models.AllocationDetail{
			InstallmentID: d.InstallmentID,
			Capital:       d.Capital,
			Interest:      d.Interest,
			Penalty:       d.Penalty,
			Total:         amount,
		})
	}
	payment.Total = total

	if err := tx.InsertPayment(ctx, payment); err != nil {
		return nil, err
	}
	payment.Reference = fmt.Sprintf("ABO-%d-%d", now.Year(), payment.ID)
	if err := tx.SetPaymentReference(ctx, payment.ID, payment.Reference); err != nil {
		return nil, err
	}

	for i := range payment.Details {
		if err := s.settleInstallment(ctx, tx, &payment.Details[i], now); err != nil {
			return nil, err
		}
	}

	if total.IsPositive() {
		if err := tx.AddToCreditPaid(ctx, credit.ID, total); err != nil {
			return nil, err
		}
		if err := s.movements.RecordMovement(ctx, tx, Movement{
			Amount:         total,
			Reason:         "CREDIT_COLLECTION",
			BranchID:       req.BranchID,
			OperatorID:     req.OperatorID,
			Method:         req.Method,
			CashRegisterID: req.CashRegisterID,
			BankAccountID:  req.BankAccountID,
			Description:    fmt.Sprintf("collection on credit #%d", credit.ID),
			Reference:      payment.Reference,
		}); err != nil {
			return nil, fmt.Errorf("failed to record movement: %w", err)
		}
	}

	if err := tx.InsertAudit(ctx, &models.AuditEntry{
		CreditID: &credit.ID,
		Action:   models.AuditPaymentApplied,
		Comment:  fmt.Sprintf("payment %s for %s", payment.Reference, total),
		ActorID:  &req.OperatorID,
	}); err != nil {
		return nil, err
	}
	return payment, nil
}

// settleInstallment locks the target row, adds the allocated amount and marks
// it PAID. The paid date is set only once the expected amount is fully
// covered, which is what a later reversal keys on. Accrued penalties do not
// raise the bar: an installment whose face value is paid counts as paid.
func (s *Service) settleInstallment(ctx context.Context, tx store.Tx, d *models.AllocationDetail, now time.Time) error {
	inst, err := tx.LockInstallment(ctx, d.InstallmentID)
	if err != nil {
		return err
	}
	if inst.Status.Terminal() {
		return apperr.Conflictf("installment %d is %s and cannot receive payments", inst.ID, inst.Status)
	}

	newPaid := inst.PaidAmount.Add(d.Total)
	var paidDate *time.Time
	if newPaid.GreaterThanOrEqual(inst.ExpectedAmount) {
		paidDate = &now
	} else if inst.PaidDate != nil {
		paidDate = inst.PaidDate
	}
	return tx.UpdateInstallmentPayment(ctx, inst.ID, newPaid, models.InstallmentPaid, paidDate)
}
