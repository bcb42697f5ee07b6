package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/jmorales-gt/crediventa/internal/config"
	"github.com/jmorales-gt/crediventa/internal/handler"
	"github.com/jmorales-gt/crediventa/internal/integrations/bankrate"
	"github.com/jmorales-gt/crediventa/internal/integrations/pos"
	"github.com/jmorales-gt/crediventa/internal/middleware"
	"github.com/jmorales-gt/crediventa/internal/repository"
	"github.com/jmorales-gt/crediventa/internal/service"
	"github.com/jmorales-gt/crediventa/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	if err := repo.InitSchema(context.Background()); err != nil {
		logger.Fatalf("Failed to initialize schema: %v", err)
	}
	rateClient := bankrate.NewClient(cfg, logger)
	bridge := pos.NewBridge(logger)
	notifier := email.NewSender(cfg, logger)
	svc := service.NewService(repo, logger, cfg, bridge, bridge, notifier, rateClient)
	h := handler.NewHandler(svc, logger)

	// Nightly late-interest job, scheduled in the operating timezone
	scheduler := cron.New(cron.WithLocation(cfg.Location))
	if _, err := scheduler.AddFunc(cfg.AccrualSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := svc.RunMoraAccrual(ctx); err != nil {
			logger.Errorf("Mora accrual run failed: %v", err)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule accrual job: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup router
	r := mux.NewRouter()
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/authorizations", h.CreateAuthorization).Methods("POST")
	authRouter.HandleFunc("/authorizations", h.ListAuthorizations).Methods("GET")
	authRouter.HandleFunc("/authorizations/{id}/approve", h.ApproveAuthorization).Methods("POST")
	authRouter.HandleFunc("/authorizations/{id}/reject", h.RejectAuthorization).Methods("POST")
	authRouter.HandleFunc("/credits", h.ListCredits).Methods("GET")
	authRouter.HandleFunc("/credits/{id}", h.GetCredit).Methods("GET")
	authRouter.HandleFunc("/credits/{id}", h.DeleteCredit).Methods("DELETE")
	authRouter.HandleFunc("/credits/{id}/payments", h.ApplyPayment).Methods("POST")
	authRouter.HandleFunc("/credits/{id}/close", h.CloseCredit).Methods("POST")
	authRouter.HandleFunc("/installments/{id}/reverse", h.ReversePayment).Methods("POST")
	// Published lending reference rate
	r.HandleFunc("/reference-rate", func(w http.ResponseWriter, r *http.Request) {
		rate, err := rateClient.AnnualLendingRate(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get reference rate: %v", err), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"annual_rate": rate})
	}).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
