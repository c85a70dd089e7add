package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sheikh-saqib/installments-ledger/internal/api/handlers"
	"github.com/sheikh-saqib/installments-ledger/internal/api/middleware"
	"github.com/sheikh-saqib/installments-ledger/internal/config"
	"github.com/sheikh-saqib/installments-ledger/internal/events"
	"github.com/sheikh-saqib/installments-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/installments-ledger/internal/installments"
	interfaces "github.com/sheikh-saqib/installments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/installments-ledger/internal/logger"
	"github.com/sheikh-saqib/installments-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/installments-ledger/internal/storage/postgres"
)

func main() {
	envFile := flag.String("env", "", "path to an env file (default .env)")
	flag.Parse()

	// used until the configured logger exists
	bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(*envFile)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Invalid logger configuration")
	}

	ctx := context.Background()

	var store interfaces.TransactionStore
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer closeDB(db, log)

		pgStore := postgres.NewPostgresTransactionStore(db)
		if err := pgStore.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate schema")
		}
		store = pgStore
	default:
		log.Warn().Msg("Using in-memory store - data is lost on restart")
		store = memory.NewTransactionStore()
	}

	var publisher interfaces.EventPublisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		log.Info().Strs("brokers", cfg.KafkaBrokers).Msg("Publishing installment events to Kafka")
	}

	controller := installments.NewController(store,
		installments.WithPublisher(publisher),
		installments.WithLogger(log),
		installments.WithRoundingPolicy(cfg.Rounding),
	)

	api := http.NewServeMux()
	handlers.NewInstallmentsHandler(controller, log).Register(api)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/", middleware.RequireUser(api))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           middleware.Chain(mux, middleware.RequestID, middleware.Logger(log), middleware.Recovery(log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreDriver).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
}

func closeDB(db *sql.DB, log zerolog.Logger) {
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}
