package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/blockclash/blockclash-backend/config"
	"github.com/blockclash/blockclash-backend/game"
	"github.com/blockclash/blockclash-backend/handlers"
	"github.com/blockclash/blockclash-backend/logger"
	"github.com/blockclash/blockclash-backend/repository"
	"github.com/blockclash/blockclash-backend/wallet"
)

func main() {
	godotenv.Load()

	cfg := config.LoadConfig()
	if err := logger.Init(cfg.LogFile); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := repository.ConnectToPostgreSQL(cfg); err != nil {
		logger.Log.Fatalw("postgres connect failed", "error", err)
	}
	if err := repository.ConnectMongoDB(cfg.MongoURI); err != nil {
		logger.Log.Fatalw("mongo connect failed", "error", err)
	}

	store := wallet.NewMongoStore(repository.MongoDBClient, cfg.MongoDB)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatalw("mongo index setup failed", "error", err)
	}
	cancel()

	ledger := wallet.NewLedger(store, logger.Log)
	manager := game.NewManager(game.NewRegistry(), ledger, game.Policy{
		MinEntryFee:        cfg.MinEntryFee,
		MaxEntryFee:        cfg.MaxEntryFee,
		PlatformFeePercent: cfg.PlatformFeePercent,
	}, logger.Log)
	handlers.SetManager(manager)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: handlers.NewRouter(),
	}

	go func() {
		logger.Log.Infow("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Infow("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("shutdown error", "error", err)
	}
	if repository.MongoDBClient != nil {
		repository.MongoDBClient.Disconnect(shutdownCtx)
	}
	if repository.PostgreSQLDB != nil {
		repository.PostgreSQLDB.Close()
	}
}
