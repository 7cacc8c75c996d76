package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finledger/internal/config"
	"finledger/internal/db"
	"finledger/internal/handlers"
	"finledger/internal/services"
	"finledger/internal/store"
	"finledger/internal/websocket"
	"finledger/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	accounts := store.NewAccountStore(database)
	categories := store.NewCategoryStore(database)
	budgets := store.NewBudgetStore(database)
	recurring := store.NewRecurringStore(database)
	transactions := store.NewTransactionStore(database)
	operations := store.NewOperationStore(database)
	audit := store.NewAuditStore(database)

	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()
	service := services.NewLedgerService(txRunner, database, accounts, transactions, operations, audit, hub, cfg.OperationTTL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	recurrenceWorker := worker.New(recurring, operations, service, cfg.SweepInterval, logger)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go recurrenceWorker.Run(workerCtx)

	handler := handlers.New(txRunner, cfg, users, accounts, categories, budgets, recurring, transactions, operations, audit, service, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("finledger API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	stopWorker()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
