package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmorales-gt/crediventa/internal/apperr"
	"github.com/jmorales-gt/crediventa/internal/models"
	"github.com/jmorales-gt/crediventa/internal/store"
)

// ApproveRequest accepts a pending authorization and materializes a credit.
type ApproveRequest struct {
	AuthorizationID int64            `json:"authorization_id"`
	AdminID         int64            `json:"admin_id"`
	PaymentMethod   string           `json:"payment_method,omitempty"`
	CashRegisterID  *int64           `json:"cash_register_id,omitempty"`
	BankAccountID   *int64           `json:"bank_account_id,omitempty"`
	Comment         string           `json:"comment,omitempty"`
	Witnesses       []models.Witness `json:"witnesses,omitempty"`
}

// ApproveAuthorization converts a PENDING proposal into an active credit:
// it creates the originating sale, the ledger header and the installment
// rows, collects the down payment through the ordinary payment path when the
// plan demands one, and flips the authorization to APPROVED. Every step runs
// in one transaction; a failure anywhere rolls the whole approval back.
func (s *Service) ApproveAuthorization(ctx context.Context, req ApproveRequest) (*models.Credit, error) {
	var credit *models.Credit
	err := s.store.Transact(ctx, func(tx store.Tx) error {
		auth, err := tx.GetAuthorization(ctx, req.AuthorizationID)
		if err != nil {
			return err
		}
		if auth.Status != models.AuthorizationPending {
			return apperr.Conflictf("authorization %d is already %s", auth.ID, auth.Status)
		}
		admin, err := tx.GetUser(ctx, req.AdminID)
		if err != nil {
			return err
		}

		hasDownPayment := auth.PlanMode.RequiresDownPayment() && auth.DownPayment.IsPositive()
		if hasDownPayment {
			if req.PaymentMethod == "" {
				return apperr.Validationf("a payment method is required to collect the down payment")
			}
			if req.CashRegisterID == nil && req.BankAccountID == nil {
				return apperr.Validationf("a cash register or bank account is required to collect the down payment")
			}
		}

		method := req.PaymentMethod
		if method == "" {
			method = "CREDIT"
		}
		sale, err := s.sales.CreateSale(ctx, tx, SaleRequest{
			Reference: fmt.Sprintf("CRED-%d-%05d", s.now().In(s.cfg.Location).Year(), auth.ID),
			ClientID:  auth.ClientID,
			BranchID:  admin.BranchID,
			Method:    method,
			Lines:     auth.Lines,
		})
		if err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		now := s.now().In(s.cfg.Location)
		credit = &models.Credit{
			ClientID:          auth.ClientID,
			SaleID:            sale.ID,
			BranchID:          auth.BranchID,
			CollectorID:       auth.RequestedByID,
			CreatedByID:       req.AdminID,
			TotalFinanced:     auth.ProposedTotal,
			DownPayment:       auth.DownPayment,
			InstallmentsTotal: auth.InstallmentsTotal,
			DaysBetween:       auth.DaysBetween,
			InterestKind:      auth.InterestKind,
			InterestRate:      auth.InterestRate,
			PlanMode:          auth.PlanMode,
			Status:            models.CreditActive,
			TotalPaid:         decimal.Zero,
			NextDueDate:       firstNormalDueDate(auth.Installments),
			StartDate:         auth.FirstDueDate,
			ContractDate:      now,
			Comment:           auth.Comment,
			Witnesses:         req.Witnesses,
		}
		if err := tx.InsertCredit(ctx, credit); err != nil {
			return err
		}

		if err := s.generateInstallments(ctx, tx, credit, auth, req, hasDownPayment); err != nil {
			return err
		}

		if err := tx.SetAuthorizationStatus(ctx, auth.ID, models.AuthorizationApproved, "", now); err != nil {
			return err
		}
		if err := tx.InsertAudit(ctx, &models.AuditEntry{
			AuthorizationID: &auth.ID,
			Action:          models.AuditApproved,
			Comment:         req.Comment,
			ActorID:         &req.AdminID,
		}); err != nil {
			return err
		}
		if err := tx.InsertAudit(ctx, &models.AuditEntry{
			CreditID: &credit.ID,
			Action:   models.AuditCreated,
			Comment:  "credit accepted from authorization",
			ActorID:  &req.AdminID,
		}); err != nil {
			return err
		}

		credit, err = tx.GetCredit(ctx, credit.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifyUser(ctx, credit.CollectorID, "SUCCESS", "Credit approved",
		fmt.Sprintf("Credit #%d was approved for %s", credit.ID, credit.TotalFinanced),
		map[string]any{"credit_id": credit.ID, "down_payment": credit.DownPayment})
	s.log.Infof("authorization %d approved as credit %d", req.AuthorizationID, credit.ID)
	return credit, nil
}

// generateInstallments persists the installment rows of a new credit. A down
// payment occupies sequence 1 and is settled immediately through the same
// payment-application path used by ordinary collections; the remaining
// entries continue the numbering as PENDING.
func (s *Service) generateInstallments(ctx context.Context, tx store.Tx, credit *models.Credit,
	auth *models.CreditAuthorization, req ApproveRequest, hasDownPayment bool) error {
	if len(auth.Installments) == 0 {
		return apperr.Internalf(nil, "authorization %d has no proposed installments", auth.ID)
	}

	var down *models.ProposedInstallment
	var normals []models.ProposedInstallment
	for i := range auth.Installments {
		if auth.Installments[i].Label == models.LabelDownPayment {
			down = &auth.Installments[i]
		} else {
			normals = append(normals, auth.Installments[i])
		}
	}

	if hasDownPayment && down == nil {
		// The plan carries no DOWN_PAYMENT entry but the header still
		// promises one; the money changes hands at signing, so the
		// movement is booked even without an installment to settle.
		if err := s.movements.RecordMovement(ctx, tx, Movement{
			Amount:         auth.DownPayment,
			Reason:         "CREDIT_COLLECTION",
			BranchID:       credit.BranchID,
			OperatorID:     req.AdminID,
			Method:         req.PaymentMethod,
			CashRegisterID: req.CashRegisterID,
			BankAccountID:  req.BankAccountID,
			Description:    fmt.Sprintf("down payment on credit #%d", credit.ID),
		}); err != nil {
			return fmt.Errorf("failed to record down payment movement: %w", err)
		}
		if err := tx.InsertAudit(ctx, &models.AuditEntry{
			CreditID: &credit.ID,
			Action:   models.AuditPaymentApplied,
			Comment:  fmt.Sprintf("down payment of %s collected at signing", auth.DownPayment),
			ActorID:  &req.AdminID,
		}); err != nil {
			return err
		}
	}

	next := 1
	if hasDownPayment && down != nil {
		row := &models.Installment{
			CreditID:       credit.ID,
			Sequence:       next,
			ExpectedAmount: down.Amount,
			PaidAmount:     decimal.Zero,
			AccruedPenalty: decimal.Zero,
			DueDate:        down.DueDate,
			Status:         models.InstallmentPending,
		}
		if err := tx.InsertInstallment(ctx, row); err != nil {
			return err
		}
		if _, err := s.applyPaymentTx(ctx, tx, credit, PaymentRequest{
			CreditID:       credit.ID,
			BranchID:       credit.BranchID,
			OperatorID:     req.AdminID,
			Method:         req.PaymentMethod,
			CashRegisterID: req.CashRegisterID,
			BankAccountID:  req.BankAccountID,
			Details: []AllocationRequest{{
				InstallmentID: row.ID,
				Capital:       down.Amount,
			}},
		}); err != nil {
			return fmt.Errorf("failed to collect down payment: %w", err)
		}
		next++
	}

	for i, n := range normals {
		row := &models.Installment{
			CreditID:       credit.ID,
			Sequence:       next + i,
			ExpectedAmount: n.Amount,
			PaidAmount:     decimal.Zero,
			AccruedPenalty: decimal.Zero,
			DueDate:        n.DueDate,
			Status:         models.InstallmentPending,
		}
		if err := tx.InsertInstallment(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func firstNormalDueDate(items []models.ProposedInstallment) *time.Time {
	var first *time.Time
	for i := range items {
		if items[i].Label != models.LabelNormal {
			continue
		}
		if first == nil || items[i].DueDate.Before(*first) {
			d := items[i].DueDate
			first = &d
		}
	}
	return first
}

// AdminCredentials re-verify a privileged caller.
type AdminCredentials struct {
	AdminID  int64  `json:"admin_id"`
	Password string `json:"password"`
}

// verifyAdmin loads the user and checks role and password.
func (s *Service) verifyAdmin(ctx context.Context, tx store.Tx, creds AdminCredentials) (*models.User, error) {
	admin, err := tx.GetUser(ctx, creds.AdminID)
	if err != nil {
		return nil, err
	}
	if !admin.Role.Admin() {
		return nil, apperr.Authf("user %d is not an administrator", creds.AdminID)
	}
	if !s.creds.Verify(admin.PasswordHash, creds.Password) {
		return nil, apperr.Authf("invalid administrator password")
	}
	return admin, nil
}

// ReversePayment undoes the settlement of one installment: the installment
// returns to PENDING with a zero paid amount and the credit and sale totals
// shrink by exactly the reversed amount. Privileged.
func (s *Service) ReversePayment(ctx context.Context, installmentID int64, creds AdminCredentials) error {
	err := s.store.Transact(ctx, func(tx store.Tx) error {
		admin, err := s.verifyAdmin(ctx, tx, creds)
		if err != nil {
			return err
		}

		inst, err := tx.LockInstallment(ctx, installmentID)
		if err != nil {
			return err
		}
		if inst.PaidDate == nil || inst.PaidAmount.IsZero() {
			return apperr.Conflictf("installment %d was already modified or never paid", installmentID)
		}

		credit, err := tx.GetCredit(ctx, inst.CreditID)
		if err != nil {
			return err
		}
		sale, err := tx.GetSale(ctx, credit.SaleID)
		if err != nil {
			return err
		}

		newPaid := credit.TotalPaid.Sub(inst.PaidAmount)
		newSaleTotal := sale.Total.Sub(inst.PaidAmount)
		if newPaid.IsNegative() || newSaleTotal.IsNegative() {
			return apperr.Validationf("reversal exceeds the credit's paid total or the sale total")
		}

		if err := tx.ResetInstallment(ctx, installmentID); err != nil {
			return err
		}
		if err := tx.SetCreditPaid(ctx, credit.ID, newPaid); err != nil {
			return err
		}
		if err := tx.SetSaleTotal(ctx, sale.ID, newSaleTotal); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, &models.AuditEntry{
			CreditID: &credit.ID,
			Action:   models.AuditPaymentReversed,
			Comment:  fmt.Sprintf("installment #%d payment of %s reversed by %s", inst.Sequence, inst.PaidAmount, admin.Name),
			ActorID:  &creds.AdminID,
		})
	})
	if err != nil {
		return err
	}
	s.log.Infof("payment on installment %d reversed", installmentID)
	return nil
}

// DeleteCredit removes a credit, its installments and payments, and the
// originating sale, in one transaction. Privileged.
func (s *Service) DeleteCredit(ctx context.Context, creditID int64, creds AdminCredentials) error {
	return s.store.Transact(ctx, func(tx store.Tx) error {
		if _, err := s.verifyAdmin(ctx, tx, creds); err != nil {
			return err
		}
		credit, err := tx.GetCredit(ctx, creditID)
		if err != nil {
			return err
		}
		if _, err := tx.GetSale(ctx, credit.SaleID); err != nil {
			return err
		}
		if err := tx.DeleteCreditCascade(ctx, creditID); err != nil {
			return err
		}
		return tx.DeleteSale(ctx, credit.SaleID)
	})
}

// CloseCredit stores an administrative status change on the header.
func (s *Service) CloseCredit(ctx context.Context, creditID int64, status models.CreditStatus, comment string, actorID int64) error {
	if !status.Administrative() {
		return apperr.Validationf("status %s cannot be set administratively", status)
	}
	return s.store.Transact(ctx, func(tx store.Tx) error {
		if _, err := tx.GetCredit(ctx, creditID); err != nil {
			return err
		}
		if err := tx.SetCreditStatus(ctx, creditID, status); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, &models.AuditEntry{
			CreditID: &creditID,
			Action:   models.AuditStatusChanged,
			Comment:  fmt.Sprintf("status set to %s: %s", status, comment),
			ActorID:  &actorID,
		})
	})
}

// GetCredit returns one fully-composed credit read model.
func (s *Service) GetCredit(ctx context.Context, creditID int64) (*models.Credit, error) {
	return s.store.GetCredit(ctx, creditID)
}

// ListCredits pages ledger headers with optional filters.
func (s *Service) ListCredits(ctx context.Context, f store.CreditFilter) ([]models.Credit, ListMeta, error) {
	f.Page, f.Limit = sanitizePagination(f.Page, f.Limit)
	if f.SortBy == "" {
		f.SortBy = "created_at"
		f.SortDesc = true
	}
	items, total, err := s.store.ListCredits(ctx, f)
	if err != nil {
		return nil, ListMeta{}, apperr.Internalf(err, "failed to list credits")
	}
	return items, metaFor(total, f.Page, f.Limit), nil
}
