// Package service implements the credit authorization workflow, the
// installment ledger and the nightly mora accrual.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmorales-gt/crediventa/internal/config"
	"github.com/jmorales-gt/crediventa/internal/models"
	"github.com/jmorales-gt/crediventa/internal/store"
)

// SaleRequest is the input handed to the sale-creation collaborator when a
// credit is materialized from an authorization.
type SaleRequest struct {
	Reference string
	ClientID  int64
	BranchID  int64
	Method    string
	Lines     []models.ProposedLine
}

// SaleCreator creates the sale record a credit originates from. Stock
// decrement happens behind this collaborator, not in this core.
type SaleCreator interface {
	CreateSale(ctx context.Context, tx store.Tx, req SaleRequest) (*models.Sale, error)
}

// Movement describes one cash or bank balance mutation.
type Movement struct {
	Amount         decimal.Decimal
	Reason         string
	BranchID       int64
	OperatorID     int64
	Method         string
	BankAccountID  *int64
	CashRegisterID *int64
	Description    string
	Reference      string
}

// MovementRecorder registers financial movements; invoked exactly once per
// payment application that moves a non-zero amount.
type MovementRecorder interface {
	RecordMovement(ctx context.Context, tx store.Tx, m Movement) error
}

// Notification is an event emitted after a financial mutation commits.
type Notification struct {
	Recipients []models.User
	Category   string
	Severity   string
	Title      string
	Message    string
	Metadata   map[string]any
}

// Notifier dispatches notifications fire-and-forget; a delivery failure must
// never roll back the financial mutation it describes.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// CredentialVerifier checks an administrator's password against its hash.
type CredentialVerifier interface {
	Verify(hash, password string) bool
}

// RateSource supplies the published annual lending reference rate, used as
// the mora default when a credit carries interest without an explicit rate.
type RateSource interface {
	AnnualLendingRate(ctx context.Context) (float64, error)
}

type bcryptVerifier struct{}

func (bcryptVerifier) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Service handles business logic
type Service struct {
	store     store.Storage
	log       *logrus.Logger
	cfg       *config.Config
	sales     SaleCreator
	movements MovementRecorder
	notifier  Notifier
	rates     RateSource
	creds     CredentialVerifier
	now       func() time.Time
}

// NewService initializes a new service. rates may be nil; the accrual job
// then treats rate-less credits as interest-free.
func NewService(st store.Storage, log *logrus.Logger, cfg *config.Config,
	sales SaleCreator, movements MovementRecorder, notifier Notifier, rates RateSource) *Service {
	return &Service{
		store:     st,
		log:       log,
		cfg:       cfg,
		sales:     sales,
		movements: movements,
		notifier:  notifier,
		rates:     rates,
		creds:     bcryptVerifier{},
		now:       time.Now,
	}
}

// startOfDay truncates t to midnight in the configured operating timezone.
func (s *Service) startOfDay(t time.Time) time.Time {
	t = t.In(s.cfg.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.cfg.Location)
}

// sanitizePagination clamps page and limit; listings are hard-capped.
func sanitizePagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// ListMeta describes one page of a listing.
type ListMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

func metaFor(total, page, limit int) ListMeta {
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	return ListMeta{Total: total, Page: page, Pages: pages, Limit: limit}
}
