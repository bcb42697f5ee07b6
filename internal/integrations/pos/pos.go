// Package pos bridges the credit core to the point-of-sale records: the sale
// a credit originates from and the cash or bank movements its collections
// produce. Both write through the caller's transaction so a failed approval
// or payment leaves no orphan rows.
package pos

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/jmorales-gt/crediventa/internal/models"
	"github.com/jmorales-gt/crediventa/internal/service"
	"github.com/jmorales-gt/crediventa/internal/store"
)

// Bridge implements the sale and movement collaborators against the shared
// database.
type Bridge struct {
	log *logrus.Logger
}

// NewBridge initializes a new point-of-sale bridge.
func NewBridge(log *logrus.Logger) *Bridge {
	return &Bridge{log: log}
}

// CreateSale persists the sale record. The total is the sum of the proposed
// line subtotals; inventory decrement happens elsewhere.
func (b *Bridge) CreateSale(ctx context.Context, tx store.Tx, req service.SaleRequest) (*models.Sale, error) {
	total := decimal.Zero
	for _, l := range req.Lines {
		total = total.Add(l.Subtotal)
	}
	sale := &models.Sale{
		Reference: req.Reference,
		ClientID:  req.ClientID,
		BranchID:  req.BranchID,
		Method:    req.Method,
		Total:     total,
	}
	if err := tx.InsertSale(ctx, sale); err != nil {
		return nil, err
	}
	b.log.Debugf("sale %s created for client %d", sale.Reference, sale.ClientID)
	return sale, nil
}

// RecordMovement appends one balance mutation. A movement submitted without a
// reference gets a generated one.
func (b *Bridge) RecordMovement(ctx context.Context, tx store.Tx, m service.Movement) error {
	ref := m.Reference
	if ref == "" {
		ref = uuid.NewString()
	}
	return tx.InsertMovement(ctx, &models.Movement{
		Amount:         m.Amount,
		Reason:         m.Reason,
		BranchID:       m.BranchID,
		OperatorID:     m.OperatorID,
		Method:         m.Method,
		BankAccountID:  m.BankAccountID,
		CashRegisterID: m.CashRegisterID,
		Description:    m.Description,
		Reference:      ref,
	})
}
