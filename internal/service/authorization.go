package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmorales-gt/crediventa/internal/apperr"
	"github.com/jmorales-gt/crediventa/internal/models"
	"github.com/jmorales-gt/crediventa/internal/schedule"
	"github.com/jmorales-gt/crediventa/internal/store"
)

// tolerance under which two client/server money figures count as equal.
var centTolerance = decimal.New(1, -2)

// LineRequest is one proposed product or variant line.
type LineRequest struct {
	ProductID *int64          `json:"product_id,omitempty"`
	VariantID *int64          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ListPrice decimal.Decimal `json:"list_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// CreateAuthorizationRequest proposes a financed purchase with its plan.
type CreateAuthorizationRequest struct {
	ClientID          int64                        `json:"client_id"`
	BranchID          int64                        `json:"branch_id"`
	RequestedByID     int64                        `json:"requested_by_id"`
	ProposedTotal     decimal.Decimal              `json:"proposed_total"`
	DownPayment       decimal.Decimal              `json:"down_payment"`
	InstallmentsTotal int                          `json:"installments_total"`
	InterestKind      models.InterestKind          `json:"interest_kind"`
	InterestRate      decimal.Decimal              `json:"interest_rate"`
	PlanMode          models.PlanMode              `json:"plan_mode"`
	DaysBetween       int                          `json:"days_between_payments"`
	FirstDueDate      time.Time                    `json:"first_due_date"`
	Comment           string                       `json:"comment,omitempty"`
	Lines             []LineRequest                `json:"lines"`
	Installments      []models.ProposedInstallment `json:"installments"`
}

// CreateAuthorization validates a proposal, recomputes its financed totals
// server-side and persists it atomically with its lines, proposed
// installments and a CREATED audit entry. Branch administrators (or, if the
// branch has none, global administrators) are notified after commit.
func (s *Service) CreateAuthorization(ctx context.Context, req CreateAuthorizationRequest) (*models.CreditAuthorization, error) {
	lines, err := sanitizeLines(req.Lines)
	if err != nil {
		return nil, err
	}

	if err := schedule.ValidateCore(schedule.Core{
		ClientID:          req.ClientID,
		BranchID:          req.BranchID,
		RequestedByID:     req.RequestedByID,
		LineCount:         len(lines),
		InstallmentsTotal: req.InstallmentsTotal,
		DaysBetween:       req.DaysBetween,
		InterestKind:      req.InterestKind,
		PlanMode:          req.PlanMode,
		DownPayment:       resolveDownPayment(req.Installments, req.DownPayment),
	}); err != nil {
		return nil, err
	}

	firstDue := req.FirstDueDate
	if firstDue.IsZero() {
		firstDue = s.startOfDay(s.now())
	} else {
		firstDue = s.startOfDay(firstDue)
	}

	// A proposal without a hand-edited plan gets the amortized default.
	proposed := req.Installments
	if len(proposed) == 0 {
		down := decimal.Zero
		if req.PlanMode.RequiresDownPayment() {
			down = req.DownPayment
		}
		proposed, err = schedule.DefaultPlan(req.ProposedTotal, down,
			req.InstallmentsTotal, firstDue, req.DaysBetween, s.cfg.Location)
		if err != nil {
			return nil, err
		}
	}

	plan, err := schedule.ValidatePlan(proposed)
	if err != nil {
		return nil, err
	}

	// The server-computed sum of installments is authoritative over any
	// client-submitted total; disagreements are logged, not rejected.
	total := schedule.PlanTotal(plan)
	if !req.ProposedTotal.IsZero() && req.ProposedTotal.Sub(total).Abs().GreaterThan(centTolerance) {
		s.log.Warnf("client proposed total %s differs from server total %s; using server value",
			req.ProposedTotal, total)
	}

	downPayment := schedule.DownPaymentOf(plan)
	if !req.DownPayment.IsZero() && !downPayment.IsZero() &&
		req.DownPayment.Sub(downPayment).Abs().GreaterThan(centTolerance) {
		s.log.Warnf("header down payment %s differs from plan down payment %s; using plan value",
			req.DownPayment, downPayment)
	}
	if downPayment.IsZero() {
		downPayment = resolveDownPayment(nil, req.DownPayment)
		if req.PlanMode.RequiresDownPayment() && !downPayment.IsPositive() {
			return nil, apperr.Validationf("plan mode %s requires a positive down payment", req.PlanMode)
		}
		if !req.PlanMode.RequiresDownPayment() {
			downPayment = decimal.Zero
		}
	}

	auth := &models.CreditAuthorization{
		ClientID:          req.ClientID,
		BranchID:          req.BranchID,
		RequestedByID:     req.RequestedByID,
		ProposedTotal:     total,
		DownPayment:       downPayment,
		InstallmentsTotal: req.InstallmentsTotal,
		InterestKind:      req.InterestKind,
		InterestRate:      req.InterestRate,
		PlanMode:          req.PlanMode,
		DaysBetween:       req.DaysBetween,
		FirstDueDate:      firstDue,
		Comment:           req.Comment,
		Status:            models.AuthorizationPending,
	}

	err = s.store.Transact(ctx, func(tx store.Tx) error {
		if err := tx.InsertAuthorization(ctx, auth); err != nil {
			return err
		}
		for i := range lines {
			if err := tx.InsertProposedLine(ctx, auth.ID, &lines[i]); err != nil {
				return err
			}
		}
		for i := range plan {
			if err := tx.InsertProposedInstallment(ctx, auth.ID, &plan[i]); err != nil {
				return err
			}
		}
		return tx.InsertAudit(ctx, &models.AuditEntry{
			AuthorizationID: &auth.ID,
			Action:          models.AuditCreated,
			Comment:         req.Comment,
			ActorID:         &req.RequestedByID,
		})
	})
	if err != nil {
		return nil, err
	}
	auth.Lines = lines
	auth.Installments = plan

	s.notifyAdmins(ctx, auth)
	s.log.Infof("authorization %d created for client %d (total %s)", auth.ID, auth.ClientID, total)
	return auth, nil
}

// notifyAdmins targets the branch administrators, falling back to global
// administrators when the branch has none.
func (s *Service) notifyAdmins(ctx context.Context, auth *models.CreditAuthorization) {
	admins, err := s.store.ListAdmins(ctx, auth.BranchID)
	if err != nil {
		s.log.Errorf("failed to resolve branch admins: %v", err)
		return
	}
	if len(admins) == 0 {
		if admins, err = s.store.ListAdmins(ctx, 0); err != nil {
			s.log.Errorf("failed to resolve global admins: %v", err)
			return
		}
	}
	s.notifier.Notify(ctx, Notification{
		Recipients: admins,
		Category:   "CREDIT",
		Severity:   "INFO",
		Title:      "New credit authorization",
		Message:    fmt.Sprintf("Authorization #%d requested for client %d, total %s", auth.ID, auth.ClientID, auth.ProposedTotal),
		Metadata:   map[string]any{"authorization_id": auth.ID, "branch_id": auth.BranchID},
	})
}

// sanitizeLines validates the product/variant XOR, quantities and prices,
// recomputing subtotals server-side when absent.
func sanitizeLines(lines []LineRequest) ([]models.ProposedLine, error) {
	out := make([]models.ProposedLine, 0, len(lines))
	for idx, l := range lines {
		pos := idx + 1
		hasProduct := l.ProductID != nil
		hasVariant := l.VariantID != nil
		if !hasProduct && !hasVariant {
			return nil, apperr.Validationf("line %d: product or variant reference is required", pos)
		}
		if hasProduct && hasVariant {
			return nil, apperr.Validationf("line %d: product and variant references are mutually exclusive", pos)
		}
		if l.Quantity <= 0 {
			return nil, apperr.Validationf("line %d: invalid quantity", pos)
		}
		if l.UnitPrice.IsNegative() {
			return nil, apperr.Validationf("line %d: invalid unit price", pos)
		}

		qty := decimal.NewFromInt(int64(l.Quantity))
		listPrice := l.ListPrice
		if listPrice.IsNegative() || listPrice.IsZero() {
			listPrice = qty.Mul(l.UnitPrice)
		}
		subtotal := l.Subtotal
		if subtotal.IsNegative() || subtotal.IsZero() {
			subtotal = qty.Mul(l.UnitPrice)
		}
		out = append(out, models.ProposedLine{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			ListPrice: listPrice,
			Subtotal:  subtotal,
		})
	}
	return out, nil
}

// resolveDownPayment prefers the DOWN_PAYMENT-labeled plan entry over the
// header figure.
func resolveDownPayment(plan []models.ProposedInstallment, header decimal.Decimal) decimal.Decimal {
	if fromPlan := schedule.DownPaymentOf(plan); fromPlan.IsPositive() {
		return fromPlan
	}
	if header.IsPositive() {
		return header
	}
	return decimal.Zero
}

// RejectRequest declines a pending authorization.
type RejectRequest struct {
	AuthorizationID int64  `json:"authorization_id"`
	AdminID         int64  `json:"admin_id"`
	Reason          string `json:"reason"`
}

// RejectAuthorization moves a PENDING proposal to REJECTED, records the
// reason and timestamp and notifies the requester. Atomic.
func (s *Service) RejectAuthorization(ctx context.Context, req RejectRequest) (*models.CreditAuthorization, error) {
	var auth *models.CreditAuthorization
	err := s.store.Transact(ctx, func(tx store.Tx) error {
		var err error
		if auth, err = tx.GetAuthorization(ctx, req.AuthorizationID); err != nil {
			return err
		}
		if auth.Status != models.AuthorizationPending {
			return apperr.Conflictf("authorization %d is already %s", auth.ID, auth.Status)
		}
		admin, err := tx.GetUser(ctx, req.AdminID)
		if err != nil {
			return err
		}

		now := s.now()
		if err := tx.SetAuthorizationStatus(ctx, auth.ID, models.AuthorizationRejected, req.Reason, now); err != nil {
			return err
		}
		auth.Status = models.AuthorizationRejected
		auth.RejectionReason = req.Reason
		auth.RespondedAt = &now

		return tx.InsertAudit(ctx, &models.AuditEntry{
			AuthorizationID: &auth.ID,
			Action:          models.AuditRejected,
			Comment:         fmt.Sprintf("rejected by %s: %s", admin.Name, req.Reason),
			ActorID:         &req.AdminID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyUser(ctx, auth.RequestedByID, "WARNING", "Credit authorization rejected",
		fmt.Sprintf("Authorization #%d was rejected: %s", auth.ID, req.Reason),
		map[string]any{"authorization_id": auth.ID})
	return auth, nil
}

// ListAuthorizations pages proposals with optional filters.
func (s *Service) ListAuthorizations(ctx context.Context, f store.AuthorizationFilter) ([]models.CreditAuthorization, ListMeta, error) {
	f.Page, f.Limit = sanitizePagination(f.Page, f.Limit)
	if f.SortBy == "" {
		f.SortBy = "requested_at"
		f.SortDesc = true
	}
	items, total, err := s.store.ListAuthorizations(ctx, f)
	if err != nil {
		return nil, ListMeta{}, apperr.Internalf(err, "failed to list authorizations")
	}
	return items, metaFor(total, f.Page, f.Limit), nil
}

func (s *Service) notifyUser(ctx context.Context, userID int64, severity, title, message string, meta map[string]any) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		s.log.Errorf("failed to resolve notification recipient %d: %v", userID, err)
		return
	}
	s.notifier.Notify(ctx, Notification{
		Recipients: []models.User{*user},
		Category:   "CREDIT",
		Severity:   severity,
		Title:      title,
		Message:    message,
		Metadata:   meta,
	})
}
