package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/jmorales-gt/crediventa/internal/config"
	"github.com/jmorales-gt/crediventa/internal/models"
	"github.com/jmorales-gt/crediventa/internal/store"
)

type fakeSales struct{ created []models.Sale }

func (f *fakeSales) CreateSale(ctx context.Context, tx store.Tx, req SaleRequest) (*models.Sale, error) {
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
	f.created = append(f.created, *sale)
	return sale, nil
}

type fakeMovements struct{ recorded []Movement }

func (f *fakeMovements) RecordMovement(ctx context.Context, tx store.Tx, m Movement) error {
	f.recorded = append(f.recorded, m)
	return nil
}

type fakeNotifier struct{ sent []Notification }

func (f *fakeNotifier) Notify(ctx context.Context, n Notification) {
	f.sent = append(f.sent, n)
}

type fakeRates struct{ rate float64 }

func (f *fakeRates) AnnualLendingRate(ctx context.Context) (float64, error) {
	return f.rate, nil
}

// plainVerifier treats the stored hash as the plaintext password.
type plainVerifier struct{}

func (plainVerifier) Verify(hash, password string) bool { return hash == password }

type testEnv struct {
	svc       *Service
	store     *MockStore
	sales     *fakeSales
	movements *fakeMovements
	notifier  *fakeNotifier
	now       time.Time
}

func newTestEnv() *testEnv {
	m := NewMockStore()
	sales := &fakeSales{}
	movements := &fakeMovements{}
	notifier := &fakeNotifier{}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	cfg := &config.Config{Timezone: "UTC", Location: time.UTC}

	env := &testEnv{
		store:     m,
		sales:     sales,
		movements: movements,
		notifier:  notifier,
		now:       time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	svc := NewService(m, log, cfg, sales, movements, notifier, &fakeRates{rate: 36})
	svc.creds = plainVerifier{}
	svc.now = func() time.Time { return env.now }
	env.svc = svc
	return env
}

func (e *testEnv) addUser(id int64, role models.Role, branchID int64) *models.User {
	u := &models.User{
		ID:           id,
		Name:         "user",
		Email:        "user@test.local",
		Role:         role,
		BranchID:     branchID,
		Active:       true,
		PasswordHash: "hunter2",
	}
	e.store.users[id] = u
	if role.Admin() {
		e.store.admins = append(e.store.admins, *u)
	}
	return u
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (e *testEnv) pendingAuthorization(mode models.PlanMode, down string) *models.CreditAuthorization {
	req := CreateAuthorizationRequest{
		ClientID:          1,
		BranchID:          1,
		RequestedByID:     10,
		ProposedTotal:     money("1000.00"),
		DownPayment:       money(down),
		InstallmentsTotal: 3,
		InterestKind:      models.InterestSimple,
		InterestRate:      money("12"),
		PlanMode:          mode,
		DaysBetween:       30,
		FirstDueDate:      time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineRequest{{
			ProductID: ptr(int64(5)),
			Quantity:  1,
			UnitPrice: money("1000.00"),
			Subtotal:  money("1000.00"),
		}},
	}
	auth, err := e.svc.CreateAuthorization(context.Background(), req)
	if err != nil {
		panic(err)
	}
	return auth
}

func ptr[T any](v T) *T { return &v }
