package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmorales-gt/crediventa/internal/apperr"
	"github.com/jmorales-gt/crediventa/internal/models"
	"github.com/jmorales-gt/crediventa/internal/store"
)

// MockStore is a simple in-memory implementation of the Storage interface
// for testing. Transact runs the callback directly against the same state.
type MockStore struct {
	nextID int64

	auths        map[int64]*models.CreditAuthorization
	credits      map[int64]*models.Credit
	installments map[int64]*models.Installment
	sales        map[int64]*models.Sale
	payments     map[int64]*models.Payment
	movements    []*models.Movement
	audits       []*models.AuditEntry
	users        map[int64]*models.User
	admins       []models.User
}

func NewMockStore() *MockStore {
	return &MockStore{
		auths:        make(map[int64]*models.CreditAuthorization),
		credits:      make(map[int64]*models.Credit),
		installments: make(map[int64]*models.Installment),
		sales:        make(map[int64]*models.Sale),
		payments:     make(map[int64]*models.Payment),
		users:        make(map[int64]*models.User),
	}
}

func (m *MockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MockStore) Transact(ctx context.Context, fn func(store.Tx) error) error {
	return fn(m)
}

func (m *MockStore) InsertAuthorization(ctx context.Context, a *models.CreditAuthorization) error {
	a.ID = m.id()
	a.RequestedAt = time.Now()
	cp := *a
	m.auths[a.ID] = &cp
	return nil
}

func (m *MockStore) InsertProposedLine(ctx context.Context, authID int64, l *models.ProposedLine) error {
	l.ID = m.id()
	m.auths[authID].Lines = append(m.auths[authID].Lines, *l)
	return nil
}

func (m *MockStore) InsertProposedInstallment(ctx context.Context, authID int64, p *models.ProposedInstallment) error {
	p.ID = m.id()
	m.auths[authID].Installments = append(m.auths[authID].Installments, *p)
	return nil
}

func (m *MockStore) GetAuthorization(ctx context.Context, id int64) (*models.CreditAuthorization, error) {
	a, ok := m.auths[id]
	if !ok {
		return nil, apperr.NotFoundf("authorization %d not found", id)
	}
	cp := *a
	return &cp, nil
}

func (m *MockStore) SetAuthorizationStatus(ctx context.Context, id int64, status models.AuthorizationStatus, reason string, at time.Time) error {
	a, ok := m.auths[id]
	if !ok {
		return apperr.NotFoundf("authorization %d not found", id)
	}
	a.Status = status
	a.RejectionReason = reason
	a.RespondedAt = &at
	return nil
}

func (m *MockStore) InsertCredit(ctx context.Context, c *models.Credit) error {
	c.ID = m.id()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.credits[c.ID] = &cp
	return nil
}

func (m *MockStore) InsertInstallment(ctx context.Context, i *models.Installment) error {
	i.ID = m.id()
	cp := *i
	m.installments[i.ID] = &cp
	return nil
}

func (m *MockStore) GetCredit(ctx context.Context, id int64) (*models.Credit, error) {
	c, ok := m.credits[id]
	if !ok {
		return nil, apperr.NotFoundf("credit %d not found", id)
	}
	cp := *c
	cp.Installments = m.installmentsOf(id)
	return &cp, nil
}

func (m *MockStore) installmentsOf(creditID int64) []models.Installment {
	var items []models.Installment
	for _, i := range m.installments {
		if i.CreditID == creditID {
			items = append(items, *i)
		}
	}
	sort.Slice(items, func(a, b int) bool { return items[a].Sequence < items[b].Sequence })
	return items
}

func (m *MockStore) LockInstallment(ctx context.Context, id int64) (*models.Installment, error) {
	i, ok := m.installments[id]
	if !ok {
		return nil, apperr.NotFoundf("installment %d not found", id)
	}
	cp := *i
	return &cp, nil
}

func (m *MockStore) UpdateInstallmentPayment(ctx context.Context, id int64, paid decimal.Decimal, status models.InstallmentStatus, paidAt *time.Time) error {
	i := m.installments[id]
	i.PaidAmount = paid
	i.Status = status
	i.PaidDate = paidAt
	return nil
}

func (m *MockStore) AccrueInstallmentPenalty(ctx context.Context, id int64, delta decimal.Decimal, accruedOn time.Time) error {
	i := m.installments[id]
	i.AccruedPenalty = i.AccruedPenalty.Add(delta)
	i.Status = models.InstallmentLate
	i.LastAccrualDate = &accruedOn
	return nil
}

func (m *MockStore) MarkInstallmentLate(ctx context.Context, id int64, accruedOn time.Time) error {
	i := m.installments[id]
	i.Status = models.InstallmentLate
	i.LastAccrualDate = &accruedOn
	return nil
}

func (m *MockStore) ResetInstallment(ctx context.Context, id int64) error {
	i := m.installments[id]
	i.PaidAmount = decimal.Zero
	i.Status = models.InstallmentPending
	i.PaidDate = nil
	return nil
}

func (m *MockStore) SetCreditStatus(ctx context.Context, id int64, status models.CreditStatus) error {
	c, ok := m.credits[id]
	if !ok {
		return apperr.NotFoundf("credit %d not found", id)
	}
	c.Status = status
	return nil
}

func (m *MockStore) AddToCreditPaid(ctx context.Context, id int64, delta decimal.Decimal) error {
	c := m.credits[id]
	c.TotalPaid = c.TotalPaid.Add(delta)
	return nil
}

func (m *MockStore) SetCreditPaid(ctx context.Context, id int64, total decimal.Decimal) error {
	m.credits[id].TotalPaid = total
	return nil
}

func (m *MockStore) DeleteCreditCascade(ctx context.Context, creditID int64) error {
	for id, i := range m.installments {
		if i.CreditID == creditID {
			delete(m.installments, id)
		}
	}
	for id, p := range m.payments {
		if p.CreditID == creditID {
			delete(m.payments, id)
		}
	}
	delete(m.credits, creditID)
	return nil
}

func (m *MockStore) InsertSale(ctx context.Context, s *models.Sale) error {
	s.ID = m.id()
	cp := *s
	m.sales[s.ID] = &cp
	return nil
}

func (m *MockStore) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	s, ok := m.sales[id]
	if !ok {
		return nil, apperr.NotFoundf("sale %d not found", id)
	}
	cp := *s
	return &cp, nil
}

func (m *MockStore) SetSaleTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	m.sales[id].Total = total
	return nil
}

func (m *MockStore) DeleteSale(ctx context.Context, id int64) error {
	delete(m.sales, id)
	return nil
}

func (m *MockStore) InsertMovement(ctx context.Context, mv *models.Movement) error {
	mv.ID = m.id()
	mv.CreatedAt = time.Now()
	cp := *mv
	m.movements = append(m.movements, &cp)
	return nil
}

func (m *MockStore) InsertPayment(ctx context.Context, p *models.Payment) error {
	p.ID = m.id()
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *MockStore) SetPaymentReference(ctx context.Context, id int64, ref string) error {
	m.payments[id].Reference = ref
	return nil
}

func (m *MockStore) InsertAudit(ctx context.Context, e *models.AuditEntry) error {
	e.ID = m.id()
	e.CreatedAt = time.Now()
	cp := *e
	m.audits = append(m.audits, &cp)
	return nil
}

func (m *MockStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFoundf("user %d not found", id)
	}
	cp := *u
	return &cp, nil
}

func (m *MockStore) ListAuthorizations(ctx context.Context, f store.AuthorizationFilter) ([]models.CreditAuthorization, int, error) {
	var items []models.CreditAuthorization
	for _, a := range m.auths {
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		items = append(items, *a)
	}
	return items, len(items), nil
}

func (m *MockStore) ListCredits(ctx context.Context, f store.CreditFilter) ([]models.Credit, int, error) {
	var items []models.Credit
	for _, c := range m.credits {
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		cp := *c
		cp.Installments = m.installmentsOf(c.ID)
		items = append(items, cp)
	}
	return items, len(items), nil
}

func (m *MockStore) ListAccruable(ctx context.Context) ([]models.Credit, error) {
	var items []models.Credit
	for _, c := range m.credits {
		if c.Status != models.CreditActive && c.Status != models.CreditInArrears {
			continue
		}
		cp := *c
		cp.Installments = m.installmentsOf(c.ID)
		items = append(items, cp)
	}
	return items, nil
}

func (m *MockStore) ListAdmins(ctx context.Context, branchID int64) ([]models.User, error) {
	var out []models.User
	for _, u := range m.admins {
		if branchID == 0 || u.BranchID == branchID {
			out = append(out, u)
		}
	}
	return out, nil
}

var _ store.Storage = (*MockStore)(nil)
