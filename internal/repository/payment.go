package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmorales-gt/crediventa/internal/apperr"
	"github.com/jmorales-gt/crediventa/internal/models"
)

// InsertPayment creates a payment header with all its allocation details.
func (r *Repository) InsertPayment(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO credit.payments
			(credit_id, branch_id, operator_id, method, reference, receipt, paid_at, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.q.QueryRowContext(ctx, query,
		p.CreditID, p.BranchID, p.OperatorID, p.Method, p.Reference, p.Receipt, p.PaidAt, p.Total).
		Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	detailQuery := `
		INSERT INTO credit.payment_details
			(payment_id, installment_id, capital, interest, penalty, total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	for idx := range p.Details {
		d := &p.Details[idx]
		d.PaymentID = p.ID
		err := r.q.QueryRowContext(ctx, detailQuery,
			p.ID, d.InstallmentID, d.Capital, d.Interest, d.Penalty, d.Total).
			Scan(&d.ID)
		if err != nil {
			return fmt.Errorf("failed to create payment detail: %w", err)
		}
	}
	return nil
}

// SetPaymentReference stores the generated human-readable reference.
func (r *Repository) SetPaymentReference(ctx context.Context, id int64, ref string) error {
	query := `UPDATE credit.payments SET reference = $2 WHERE id = $1`
	if _, err := r.q.ExecContext(ctx, query, id, ref); err != nil {
		return fmt.Errorf("failed to set payment reference: %w", err)
	}
	return nil
}

// InsertAudit appends one history row; entries are never updated or removed.
func (r *Repository) InsertAudit(ctx context.Context, e *models.AuditEntry) error {
	query := `
		INSERT INTO credit.audit_entries
			(credit_id, authorization_id, action, comment, actor_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.q.QueryRowContext(ctx, query,
		e.CreditID, e.AuthorizationID, e.Action, nullString(e.Comment), e.ActorID).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// GetUser retrieves a user with role and password hash for privileged checks.
func (r *Repository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	query := `
		SELECT id, name, email, role, branch_id, active, password_hash
		FROM credit.users
		WHERE id = $1`
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.Role, &u.BranchID, &u.Active, &u.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// ListAdmins returns active administrators for a branch; branchID 0 returns
// administrators across all branches.
func (r *Repository) ListAdmins(ctx context.Context, branchID int64) ([]models.User, error) {
	query := `
		SELECT id, name, email, role, branch_id, active, password_hash
		FROM credit.users
		WHERE role IN ('ADMIN', 'SUPER_ADMIN') AND active
		  AND ($1 = 0 OR branch_id = $1)
		ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	var admins []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.BranchID,
			&u.Active, &u.PasswordHash); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		admins = append(admins, u)
	}
	return admins, rows.Err()
}
