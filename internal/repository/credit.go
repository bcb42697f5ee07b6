package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmorales-gt/crediventa/internal/apperr"
	"github.com/jmorales-gt/crediventa/internal/models"
)

// InsertCredit creates a ledger header and fills in its generated id and
// timestamps.
func (r *Repository) InsertCredit(ctx context.Context, c *models.Credit) error {
	witnesses, err := json.Marshal(c.Witnesses)
	if err != nil {
		return fmt.Errorf("failed to encode witnesses: %w", err)
	}
	query := `
		INSERT INTO credit.credits
			(client_id, sale_id, branch_id, collector_id, created_by,
			 total_financed, down_payment, installments_total, days_between,
			 interest_kind, interest_rate, plan_mode, status, total_paid,
			 next_due_date, start_date, contract_date, comment, witnesses)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at`
	err = r.q.QueryRowContext(ctx, query,
		c.ClientID, c.SaleID, c.BranchID, c.CollectorID, c.CreatedByID,
		c.TotalFinanced, c.DownPayment, c.InstallmentsTotal, c.DaysBetween,
		c.InterestKind, c.InterestRate, c.PlanMode, c.Status, c.TotalPaid,
		c.NextDueDate, c.StartDate, c.ContractDate, nullString(c.Comment), witnesses).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create credit: %w", err)
	}
	return nil
}

// InsertInstallment creates one installment row of a credit.
func (r *Repository) InsertInstallment(ctx context.Context, i *models.Installment) error {
	query := `
		INSERT INTO credit.installments
			(credit_id, sequence, expected_amount, paid_amount, accrued_penalty,
			 due_date, status, last_accrual_date, paid_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := r.q.QueryRowContext(ctx, query,
		i.CreditID, i.Sequence, i.ExpectedAmount, i.PaidAmount, i.AccruedPenalty,
		i.DueDate, i.Status, i.LastAccrualDate, i.PaidDate).
		Scan(&i.ID)
	if err != nil {
		return fmt.Errorf("failed to create installment: %w", err)
	}
	return nil
}

const creditColumns = `
	id, client_id, sale_id, branch_id, collector_id, created_by,
	total_financed, down_payment, installments_total, days_between,
	interest_kind, interest_rate, plan_mode, status, total_paid,
	next_due_date, start_date, contract_date, comment, witnesses,
	created_at, updated_at`

func scanCredit(row interface{ Scan(...any) error }) (*models.Credit, error) {
	c := &models.Credit{}
	var comment sql.NullString
	var witnesses []byte
	err := row.Scan(
		&c.ID, &c.ClientID, &c.SaleID, &c.BranchID, &c.CollectorID, &c.CreatedByID,
		&c.TotalFinanced, &c.DownPayment, &c.InstallmentsTotal, &c.DaysBetween,
		&c.InterestKind, &c.InterestRate, &c.PlanMode, &c.Status, &c.TotalPaid,
		&c.NextDueDate, &c.StartDate, &c.ContractDate, &comment, &witnesses,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Comment = comment.String
	if len(witnesses) > 0 {
		if err := json.Unmarshal(witnesses, &c.Witnesses); err != nil {
			return nil, fmt.Errorf("failed to decode witnesses: %w", err)
		}
	}
	return c, nil
}

// GetCredit loads a ledger header with its installments.
func (r *Repository) GetCredit(ctx context.Context, id int64) (*models.Credit, error) {
	query := `SELECT` + creditColumns + ` FROM credit.credits WHERE id = $1`
	c, err := scanCredit(r.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("credit %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credit: %w", err)
	}
	if c.Installments, err = r.installmentsOf(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}

const installmentColumns = `
	id, credit_id, sequence, expected_amount, paid_amount, accrued_penalty,
	due_date, status, last_accrual_date, paid_date`

func scanInstallment(row interface{ Scan(...any) error }) (*models.Installment, error) {
	i := &models.Installment{}
	err := row.Scan(&i.ID, &i.CreditID, &i.Sequence, &i.ExpectedAmount, &i.PaidAmount,
		&i.AccruedPenalty, &i.DueDate, &i.Status, &i.LastAccrualDate, &i.PaidDate)
	if err != nil {
		return nil, err
	}
	return i, nil
}

func (r *Repository) installmentsOf(ctx context.Context, creditID int64) ([]models.Installment, error) {
	query := `SELECT` + installmentColumns + `
		FROM credit.installments
		WHERE credit_id = $1
		ORDER BY sequence`
	rows, err := r.q.QueryContext(ctx, query, creditID)
	if err != nil {
		return nil, fmt.Errorf("failed to load installments: %w", err)
	}
	defer rows.Close()

	var items []models.Installment
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		items = append(items, *i)
	}
	return items, rows.Err()
}

// LockInstallment reads an installment under FOR UPDATE so that payment
// application and accrual on the same row are mutually exclusive.
func (r *Repository) LockInstallment(ctx context.Context, id int64) (*models.Installment, error) {
	query := `SELECT` + installmentColumns + `
		FROM credit.installments
		WHERE id = $1
		FOR UPDATE`
	i, err := scanInstallment(r.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("installment %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock installment: %w", err)
	}
	return i, nil
}

// UpdateInstallmentPayment sets the paid-to-date amount, status and paid date.
func (r *Repository) UpdateInstallmentPayment(ctx context.Context, id int64, paid decimal.Decimal, status models.InstallmentStatus, paidAt *time.Time) error {
	query := `
		UPDATE credit.installments
		SET paid_amount = $2, status = $3, paid_date = $4
		WHERE id = $1`
	if _, err := r.q.ExecContext(ctx, query, id, paid, status, paidAt); err != nil {
		return fmt.Errorf("failed to update installment payment: %w", err)
	}
	return nil
}

// AccrueInstallmentPenalty atomically increments the accrued penalty, marks
// the installment LATE and stamps the accrual date.
func (r *Repository) AccrueInstallmentPenalty(ctx context.Context, id int64, delta decimal.Decimal, accruedOn time.Time) error {
	query := `
		UPDATE credit.installments
		SET accrued_penalty = accrued_penalty + $2,
		    status = $3,
		    last_accrual_date = $4
		WHERE id = $1`
	if _, err := r.q.ExecContext(ctx, query, id, delta, models.InstallmentLate, accruedOn); err != nil {
		return fmt.Errorf("failed to accrue penalty: %w", err)
	}
	return nil
}

// MarkInstallmentLate is the state-only transition used when the credit
// carries no interest rate.
func (r *Repository) MarkInstallmentLate(ctx context.Context, id int64, accruedOn time.Time) error {
	query := `
		UPDATE credit.installments
		SET status = $2, last_accrual_date = $3
		WHERE id = $1`
	if _, err := r.q.ExecContext(ctx, query, id, models.InstallmentLate, accruedOn); err != nil {
		return fmt.Errorf("failed to mark installment late: %w", err)
	}
	return nil
}

// ResetInstallment undoes a settled installment back to PENDING with a zero
// paid amount, as part of a payment reversal.
func (r *Repository) ResetInstallment(ctx context.Context, id int64) error {
	query := `
		UPDATE credit.installments
		SET paid_amount = 0, status = $2, paid_date = NULL
		WHERE id = $1`
	if _, err := r.q.ExecContext(ctx, query, id, models.InstallmentPending); err != nil {
		return fmt.Errorf("failed to reset installment: %w", err)
	}
	return nil
}

// SetCreditStatus updates the header status.
func (r *Repository) SetCreditStatus(ctx context.Context, id int64, status models.CreditStatus) error {
	query := `
		UPDATE credit.credits
		SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	res, err := r.q.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update credit status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundf("credit %d not found", id)
	}
	return nil
}

// AddToCreditPaid increments the running total-paid.
func (r *Repository) AddToCreditPaid(ctx context.Context, id int64, delta decimal.Decimal) error {
	query := `
		UPDATE credit.credits
		SET total_paid = total_paid + $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	if _, err := r.q.ExecContext(ctx, query, id, delta); err != nil {
		return fmt.Errorf("failed to increment credit paid total: %w", err)
	}
	return nil
}

// SetCreditPaid overwrites the running total-paid (payment reversal).
func (r *Repository) SetCreditPaid(ctx context.Context, id int64, total decimal.Decimal) error {
	query := `
		UPDATE credit.credits
		SET total_paid = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	if _, err := r.q.ExecContext(ctx, query, id, total); err != nil {
		return fmt.Errorf("failed to set credit paid total: %w", err)
	}
	return nil
}

// DeleteCreditCascade removes all installments, payment rows and the header.
func (r *Repository) DeleteCreditCascade(ctx context.Context, creditID int64) error {
	steps := []string{
		`DELETE FROM credit.payment_details WHERE payment_id IN
			(SELECT id FROM credit.payments WHERE credit_id = $1)`,
		`DELETE FROM credit.payments WHERE credit_id = $1`,
		`DELETE FROM credit.installments WHERE credit_id = $1`,
		`DELETE FROM credit.audit_entries WHERE credit_id = $1`,
		`DELETE FROM credit.credits WHERE id = $1`,
	}
	for _, q := range steps {
		if _, err := r.q.ExecContext(ctx, q, creditID); err != nil {
			return fmt.Errorf("failed to delete credit: %w", err)
		}
	}
	return nil
}

// GetSale loads the sale a credit originates from.
func (r *Repository) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	s := &models.Sale{}
	query := `SELECT id, reference, client_id, branch_id, method, total FROM credit.sales WHERE id = $1`
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Reference, &s.ClientID, &s.BranchID, &s.Method, &s.Total)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("sale %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	return s, nil
}

// SetSaleTotal adjusts the originating sale's total (payment reversal).
func (r *Repository) SetSaleTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	query := `UPDATE credit.sales SET total = $2 WHERE id = $1`
	if _, err := r.q.ExecContext(ctx, query, id, total); err != nil {
		return fmt.Errorf("failed to update sale total: %w", err)
	}
	return nil
}

// DeleteSale removes the originating sale record (credit deletion).
func (r *Repository) DeleteSale(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM credit.sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundf("sale %d not found", id)
	}
	return nil
}
