package repository

import (
	"context"
	"fmt"
)

// InitSchema creates the credit schema and its tables when they do not exist
// yet. Monetary columns use NUMERIC; penalties keep four decimal places so
// daily accruals do not collapse to zero on small balances.
func (r *Repository) InitSchema(ctx context.Context) error {
	const schema = `
	CREATE SCHEMA IF NOT EXISTS credit;

	CREATE TABLE IF NOT EXISTS credit.users (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		role          TEXT NOT NULL,
		branch_id     BIGINT NOT NULL DEFAULT 0,
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		password_hash TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS credit.clients (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		surname     TEXT NOT NULL DEFAULT '',
		national_id TEXT NOT NULL DEFAULT '',
		phone       TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS credit.products (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS credit.variants (
		id         BIGSERIAL PRIMARY KEY,
		product_id BIGINT REFERENCES credit.products(id),
		name       TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS credit.sales (
		id        BIGSERIAL PRIMARY KEY,
		reference TEXT NOT NULL UNIQUE,
		client_id BIGINT NOT NULL REFERENCES credit.clients(id),
		branch_id BIGINT NOT NULL,
		method    TEXT NOT NULL,
		total     NUMERIC(14,2) NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS credit.authorizations (
		id                 BIGSERIAL PRIMARY KEY,
		client_id          BIGINT NOT NULL REFERENCES credit.clients(id),
		branch_id          BIGINT NOT NULL,
		requested_by       BIGINT NOT NULL REFERENCES credit.users(id),
		proposed_total     NUMERIC(14,2) NOT NULL,
		down_payment       NUMERIC(14,2) NOT NULL DEFAULT 0,
		installments_total INTEGER NOT NULL,
		interest_kind      TEXT NOT NULL,
		interest_rate      NUMERIC(8,4) NOT NULL DEFAULT 0,
		plan_mode          TEXT NOT NULL,
		days_between       INTEGER NOT NULL,
		first_due_date     DATE NOT NULL,
		comment            TEXT,
		status             TEXT NOT NULL DEFAULT 'PENDING',
		rejection_reason   TEXT,
		requested_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		responded_at       TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS credit.authorization_lines (
		id               BIGSERIAL PRIMARY KEY,
		authorization_id BIGINT NOT NULL REFERENCES credit.authorizations(id) ON DELETE CASCADE,
		product_id       BIGINT REFERENCES credit.products(id),
		variant_id       BIGINT REFERENCES credit.variants(id),
		quantity         INTEGER NOT NULL,
		unit_price       NUMERIC(14,2) NOT NULL,
		list_price       NUMERIC(14,2) NOT NULL,
		subtotal         NUMERIC(14,2) NOT NULL,
		CHECK ((product_id IS NULL) <> (variant_id IS NULL))
	);

	CREATE TABLE IF NOT EXISTS credit.authorization_installments (
		id               BIGSERIAL PRIMARY KEY,
		authorization_id BIGINT NOT NULL REFERENCES credit.authorizations(id) ON DELETE CASCADE,
		sequence         INTEGER NOT NULL,
		due_date         DATE NOT NULL,
		amount           NUMERIC(14,2) NOT NULL,
		label            TEXT NOT NULL DEFAULT 'NORMAL',
		origin           TEXT NOT NULL DEFAULT 'AUTO',
		capital          NUMERIC(14,2),
		interest         NUMERIC(14,2),
		UNIQUE (authorization_id, sequence)
	);

	CREATE TABLE IF NOT EXISTS credit.credits (
		id                 BIGSERIAL PRIMARY KEY,
		client_id          BIGINT NOT NULL REFERENCES credit.clients(id),
		sale_id            BIGINT NOT NULL REFERENCES credit.sales(id),
		branch_id          BIGINT NOT NULL,
		collector_id       BIGINT NOT NULL REFERENCES credit.users(id),
		created_by         BIGINT NOT NULL REFERENCES credit.users(id),
		total_financed     NUMERIC(14,2) NOT NULL,
		down_payment       NUMERIC(14,2) NOT NULL DEFAULT 0,
		installments_total INTEGER NOT NULL,
		days_between       INTEGER NOT NULL,
		interest_kind      TEXT NOT NULL,
		interest_rate      NUMERIC(8,4) NOT NULL DEFAULT 0,
		plan_mode          TEXT NOT NULL,
		status             TEXT NOT NULL DEFAULT 'ACTIVE',
		total_paid         NUMERIC(14,2) NOT NULL DEFAULT 0,
		next_due_date      DATE,
		start_date         DATE NOT NULL,
		contract_date      TIMESTAMPTZ NOT NULL,
		comment            TEXT,
		witnesses          JSONB NOT NULL DEFAULT '[]',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS credit.installments (
		id                BIGSERIAL PRIMARY KEY,
		credit_id         BIGINT NOT NULL REFERENCES credit.credits(id),
		sequence          INTEGER NOT NULL,
		expected_amount   NUMERIC(14,2) NOT NULL,
		paid_amount       NUMERIC(14,2) NOT NULL DEFAULT 0,
		accrued_penalty   NUMERIC(14,4) NOT NULL DEFAULT 0,
		due_date          DATE NOT NULL,
		status            TEXT NOT NULL DEFAULT 'PENDING',
		last_accrual_date DATE,
		paid_date         TIMESTAMPTZ,
		UNIQUE (credit_id, sequence)
	);

	CREATE TABLE IF NOT EXISTS credit.payments (
		id          BIGSERIAL PRIMARY KEY,
		credit_id   BIGINT NOT NULL REFERENCES credit.credits(id),
		branch_id   BIGINT NOT NULL,
		operator_id BIGINT NOT NULL REFERENCES credit.users(id),
		method      TEXT NOT NULL,
		reference   TEXT NOT NULL DEFAULT '',
		receipt     TEXT NOT NULL,
		paid_at     TIMESTAMPTZ NOT NULL,
		total       NUMERIC(14,2) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS credit.payment_details (
		id             BIGSERIAL PRIMARY KEY,
		payment_id     BIGINT NOT NULL REFERENCES credit.payments(id),
		installment_id BIGINT NOT NULL REFERENCES credit.installments(id),
		capital        NUMERIC(14,2) NOT NULL DEFAULT 0,
		interest       NUMERIC(14,2) NOT NULL DEFAULT 0,
		penalty        NUMERIC(14,4) NOT NULL DEFAULT 0,
		total          NUMERIC(14,2) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS credit.movements (
		id               BIGSERIAL PRIMARY KEY,
		amount           NUMERIC(14,2) NOT NULL,
		reason           TEXT NOT NULL,
		branch_id        BIGINT NOT NULL,
		operator_id      BIGINT NOT NULL,
		method           TEXT NOT NULL,
		bank_account_id  BIGINT,
		cash_register_id BIGINT,
		description      TEXT,
		reference        TEXT NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS credit.audit_entries (
		id               BIGSERIAL PRIMARY KEY,
		credit_id        BIGINT REFERENCES credit.credits(id),
		authorization_id BIGINT REFERENCES credit.authorizations(id),
		action           TEXT NOT NULL,
		comment          TEXT,
		actor_id         BIGINT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_installments_credit ON credit.installments (credit_id);
	CREATE INDEX IF NOT EXISTS idx_installments_due ON credit.installments (due_date) WHERE status NOT IN ('PAID', 'CLOSED', 'CANCELLED');
	CREATE INDEX IF NOT EXISTS idx_payments_credit ON credit.payments (credit_id);
	CREATE INDEX IF NOT EXISTS idx_audit_credit ON credit.audit_entries (credit_id);
	CREATE INDEX IF NOT EXISTS idx_authorizations_status ON credit.authorizations (status);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("could not initialize schema: %w", err)
	}
	return nil
}
