package repository

import (
	"context"
	"fmt"

	"github.com/jmorales-gt/crediventa/internal/models"
)

// InsertSale creates the sale a credit originates from.
func (r *Repository) InsertSale(ctx context.Context, s *models.Sale) error {
	query := `
		INSERT INTO credit.sales (reference, client_id, branch_id, method, total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := r.q.QueryRowContext(ctx, query,
		s.Reference, s.ClientID, s.BranchID, s.Method, s.Total).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to create sale: %w", err)
	}
	return nil
}

// InsertMovement appends one cash or bank balance mutation.
func (r *Repository) InsertMovement(ctx context.Context, m *models.Movement) error {
	query := `
		INSERT INTO credit.movements
			(amount, reason, branch_id, operator_id, method,
			 bank_account_id, cash_register_id, description, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`
	err := r.q.QueryRowContext(ctx, query,
		m.Amount, m.Reason, m.BranchID, m.OperatorID, m.Method,
		m.BankAccountID, m.CashRegisterID, nullString(m.Description), m.Reference).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create movement: %w", err)
	}
	return nil
}
