package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"medistock/m/internal/api"
	"medistock/m/internal/config"
	"medistock/m/internal/database"
	"medistock/m/internal/migrations"
	"medistock/m/internal/seed"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err)
	}

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("database error", "error", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		sugar.Fatalw("migration error", "error", err)
	}

	if cfg.StaffSeed != "" {
		seed.LoadStaff(db, logger, cfg.StaffSeed)
	}

	handler := api.New(db, cfg.Secret, logger)
	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: handler.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			sugar.Errorw("server shutdown error", "error", err)
		}
	}()

	sugar.Infow("starting pharmacy stock server", "addr", cfg.RunAddress)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalw("server error", "error", err)
	}
	sugar.Info("server stopped")
}
