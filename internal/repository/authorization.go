package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmorales-gt/crediventa/internal/apperr"
	"github.com/jmorales-gt/crediventa/internal/models"
)

// InsertAuthorization creates the proposal header and fills in its generated
// id and request timestamp.
func (r *Repository) InsertAuthorization(ctx context.Context, a *models.CreditAuthorization) error {
	query := `
		INSERT INTO credit.authorizations
			(client_id, branch_id, requested_by, proposed_total, down_payment,
			 installments_total, interest_kind, interest_rate, plan_mode,
			 days_between, first_due_date, comment, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, requested_at`
	err := r.q.QueryRowContext(ctx, query,
		a.ClientID, a.BranchID, a.RequestedByID, a.ProposedTotal, a.DownPayment,
		a.InstallmentsTotal, a.InterestKind, a.InterestRate, a.PlanMode,
		a.DaysBetween, a.FirstDueDate, nullString(a.Comment), a.Status).
		Scan(&a.ID, &a.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to create authorization: %w", err)
	}
	return nil
}

// InsertProposedLine attaches one product/variant line to an authorization.
func (r *Repository) InsertProposedLine(ctx context.Context, authID int64, l *models.ProposedLine) error {
	query := `
		INSERT INTO credit.authorization_lines
			(authorization_id, product_id, variant_id, quantity, unit_price, list_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := r.q.QueryRowContext(ctx, query,
		authID, l.ProductID, l.VariantID, l.Quantity, l.UnitPrice, l.ListPrice, l.Subtotal).
		Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to create authorization line: %w", err)
	}
	return nil
}

// InsertProposedInstallment attaches one proposed schedule entry.
func (r *Repository) InsertProposedInstallment(ctx context.Context, authID int64, p *models.ProposedInstallment) error {
	query := `
		INSERT INTO credit.authorization_installments
			(authorization_id, sequence, due_date, amount, label, origin, capital, interest)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.q.QueryRowContext(ctx, query,
		authID, p.Sequence, p.DueDate, p.Amount, p.Label, p.Origin, p.Capital, p.Interest).
		Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create proposed installment: %w", err)
	}
	return nil
}

// GetAuthorization loads a proposal with its lines and proposed installments.
func (r *Repository) GetAuthorization(ctx context.Context, id int64) (*models.CreditAuthorization, error) {
	a := &models.CreditAuthorization{}
	var comment, reason sql.NullString
	query := `
		SELECT id, client_id, branch_id, requested_by, proposed_total, down_payment,
		       installments_total, interest_kind, interest_rate, plan_mode,
		       days_between, first_due_date, comment, status, rejection_reason,
		       requested_at, responded_at
		FROM credit.authorizations
		WHERE id = $1`
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.ClientID, &a.BranchID, &a.RequestedByID, &a.ProposedTotal, &a.DownPayment,
		&a.InstallmentsTotal, &a.InterestKind, &a.InterestRate, &a.PlanMode,
		&a.DaysBetween, &a.FirstDueDate, &comment, &a.Status, &reason,
		&a.RequestedAt, &a.RespondedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("authorization %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization: %w", err)
	}
	a.Comment = comment.String
	a.RejectionReason = reason.String

	if a.Lines, err = r.authorizationLines(ctx, id); err != nil {
		return nil, err
	}
	if a.Installments, err = r.proposedInstallments(ctx, id); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *Repository) authorizationLines(ctx context.Context, authID int64) ([]models.ProposedLine, error) {
	query := `
		SELECT id, product_id, variant_id, quantity, unit_price, list_price, subtotal
		FROM credit.authorization_lines
		WHERE authorization_id = $1
		ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query, authID)
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization lines: %w", err)
	}
	defer rows.Close()

	var lines []models.ProposedLine
	for rows.Next() {
		var l models.ProposedLine
		if err := rows.Scan(&l.ID, &l.ProductID, &l.VariantID, &l.Quantity,
			&l.UnitPrice, &l.ListPrice, &l.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan authorization line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *Repository) proposedInstallments(ctx context.Context, authID int64) ([]models.ProposedInstallment, error) {
	query := `
		SELECT id, sequence, due_date, amount, label, origin, capital, interest
		FROM credit.authorization_installments
		WHERE authorization_id = $1
		ORDER BY sequence`
	rows, err := r.q.QueryContext(ctx, query, authID)
	if err != nil {
		return nil, fmt.Errorf("failed to load proposed installments: %w", err)
	}
	defer rows.Close()

	var items []models.ProposedInstallment
	for rows.Next() {
		var p models.ProposedInstallment
		if err := rows.Scan(&p.ID, &p.Sequence, &p.DueDate, &p.Amount,
			&p.Label, &p.Origin, &p.Capital, &p.Interest); err != nil {
			return nil, fmt.Errorf("failed to scan proposed installment: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// SetAuthorizationStatus moves a proposal to APPROVED or REJECTED.
func (r *Repository) SetAuthorizationStatus(ctx context.Context, id int64, status models.AuthorizationStatus, reason string, at time.Time) error {
	query := `
		UPDATE credit.authorizations
		SET status = $2, rejection_reason = $3, responded_at = $4
		WHERE id = $1`
	res, err := r.q.ExecContext(ctx, query, id, status, nullString(reason), at)
	if err != nil {
		return fmt.Errorf("failed to update authorization status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundf("authorization %d not found", id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
