package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmorales-gt/crediventa/internal/models"
	"github.com/jmorales-gt/crediventa/internal/store"
)

// whereBuilder accumulates WHERE conditions with positional args.
type whereBuilder struct {
	conds []string
	args  []any
}

// addf appends a condition, numbering each ? placeholder in order.
func (w *whereBuilder) addf(cond string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// ListAuthorizations returns one page of proposals with the total row count
// for the filter.
func (r *Repository) ListAuthorizations(ctx context.Context, f store.AuthorizationFilter) ([]models.CreditAuthorization, int, error) {
	w := &whereBuilder{}
	if f.Status != nil {
		w.addf("a.status = ?", *f.Status)
	}
	if f.BranchID != nil {
		w.addf("a.branch_id = ?", *f.BranchID)
	}
	if f.ClientID != nil {
		w.addf("a.client_id = ?", *f.ClientID)
	}
	if f.From != nil {
		w.addf("a.requested_at >= ?", *f.From)
	}
	if f.To != nil {
		w.addf("a.requested_at <= ?", *f.To)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		w.addf(`(a.comment ILIKE '%' || ? || '%'
			OR EXISTS (SELECT 1 FROM credit.clients c
				WHERE c.id = a.client_id AND (c.name ILIKE '%' || ? || '%' OR c.surname ILIKE '%' || ? || '%'))
			OR EXISTS (SELECT 1 FROM credit.authorization_lines al
				LEFT JOIN credit.products p ON p.id = al.product_id
				LEFT JOIN credit.variants v ON v.id = al.variant_id
				WHERE al.authorization_id = a.id
				  AND (p.name ILIKE '%' || ? || '%' OR v.name ILIKE '%' || ? || '%')))`,
			q, q, q, q, q)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM credit.authorizations a` + w.clause()
	if err := r.q.QueryRowContext(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count authorizations: %w", err)
	}

	order := authorizationOrder(f.SortBy, f.SortDesc)
	query := fmt.Sprintf(`
		SELECT a.id, a.client_id, a.branch_id, a.requested_by, a.proposed_total,
		       a.down_payment, a.installments_total, a.interest_kind, a.interest_rate,
		       a.plan_mode, a.days_between, a.first_due_date,
		       COALESCE(a.comment, ''), a.status, COALESCE(a.rejection_reason, ''),
		       a.requested_at, a.responded_at
		FROM credit.authorizations a
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		w.clause(), order, len(w.args)+1, len(w.args)+2)
	args := append(w.args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list authorizations: %w", err)
	}
	defer rows.Close()

	var items []models.CreditAuthorization
	for rows.Next() {
		var a models.CreditAuthorization
		if err := rows.Scan(&a.ID, &a.ClientID, &a.BranchID, &a.RequestedByID,
			&a.ProposedTotal, &a.DownPayment, &a.InstallmentsTotal, &a.InterestKind,
			&a.InterestRate, &a.PlanMode, &a.DaysBetween, &a.FirstDueDate,
			&a.Comment, &a.Status, &a.RejectionReason, &a.RequestedAt, &a.RespondedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan authorization: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for idx := range items {
		if items[idx].Installments, err = r.proposedInstallments(ctx, items[idx].ID); err != nil {
			return nil, 0, err
		}
		if items[idx].Lines, err = r.authorizationLines(ctx, items[idx].ID); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func authorizationOrder(sortBy string, desc bool) string {
	col := "a.requested_at"
	switch sortBy {
	case "responded_at":
		col = "a.responded_at"
	case "proposed_total":
		col = "a.proposed_total"
	case "status":
		col = "a.status"
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}

// ListCredits returns one page of ledger headers with the total row count.
func (r *Repository) ListCredits(ctx context.Context, f store.CreditFilter) ([]models.Credit, int, error) {
	w := &whereBuilder{}
	if f.BranchID != nil {
		w.addf("c.branch_id = ?", *f.BranchID)
	}
	if f.ClientID != nil {
		w.addf("c.client_id = ?", *f.ClientID)
	}
	if f.OperatorID != nil {
		w.addf("c.created_by = ?", *f.OperatorID)
	}
	if f.Status != nil {
		w.addf("c.status = ?", *f.Status)
	}
	if f.PlanMode != nil {
		w.addf("c.plan_mode = ?", *f.PlanMode)
	}
	if f.InterestKind != nil {
		w.addf("c.interest_kind = ?", *f.InterestKind)
	}
	if f.StartFrom != nil {
		w.addf("c.start_date >= ?", *f.StartFrom)
	}
	if f.StartTo != nil {
		w.addf("c.start_date <= ?", *f.StartTo)
	}
	if f.NextDueFrom != nil {
		w.addf("c.next_due_date >= ?", *f.NextDueFrom)
	}
	if f.NextDueTo != nil {
		w.addf("c.next_due_date <= ?", *f.NextDueTo)
	}
	if f.InArrears {
		w.addf(`EXISTS (SELECT 1 FROM credit.installments i
			WHERE i.credit_id = c.id AND (i.status = 'LATE' OR i.accrued_penalty > 0))`)
	}
	if f.Overdue {
		w.addf(`EXISTS (SELECT 1 FROM credit.installments i
			WHERE i.credit_id = c.id AND i.due_date < CURRENT_DATE
			  AND i.status NOT IN ('PAID', 'CLOSED', 'CANCELLED'))`)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		w.addf(`(c.comment ILIKE '%' || ? || '%'
			OR EXISTS (SELECT 1 FROM credit.sales s
				WHERE s.id = c.sale_id AND s.reference ILIKE '%' || ? || '%')
			OR EXISTS (SELECT 1 FROM credit.clients cl
				WHERE cl.id = c.client_id
				  AND (cl.name ILIKE '%' || ? || '%' OR cl.surname ILIKE '%' || ? || '%'
				       OR cl.national_id ILIKE '%' || ? || '%' OR cl.phone ILIKE '%' || ? || '%')))`,
			q, q, q, q, q, q)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM credit.credits c` + w.clause()
	if err := r.q.QueryRowContext(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count credits: %w", err)
	}

	order := creditOrder(f.SortBy, f.SortDesc)
	query := fmt.Sprintf(`SELECT %s FROM credit.credits c %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		prefixColumns(creditColumns, "c"), w.clause(), order, len(w.args)+1, len(w.args)+2)
	args := append(w.args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list credits: %w", err)
	}
	defer rows.Close()

	var items []models.Credit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan credit: %w", err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for idx := range items {
		if items[idx].Installments, err = r.installmentsOf(ctx, items[idx].ID); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func creditOrder(sortBy string, desc bool) string {
	col := "c.created_at"
	switch sortBy {
	case "next_due_date":
		col = "c.next_due_date"
	case "total_financed":
		col = "c.total_financed"
	case "total_paid":
		col = "c.total_paid"
	case "start_date":
		col = "c.start_date"
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}

// ListAccruable returns every ACTIVE or IN_ARREARS credit with installments,
// for the nightly mora job.
func (r *Repository) ListAccruable(ctx context.Context) ([]models.Credit, error) {
	query := fmt.Sprintf(`SELECT %s FROM credit.credits c
		WHERE c.status IN ('ACTIVE', 'IN_ARREARS')
		ORDER BY c.id`, prefixColumns(creditColumns, "c"))
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accruable credits: %w", err)
	}
	defer rows.Close()

	var items []models.Credit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit: %w", err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for idx := range items {
		if items[idx].Installments, err = r.installmentsOf(ctx, items[idx].ID); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(cols, alias string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
