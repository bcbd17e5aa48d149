package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"equipment-analytics-api/config"
	"equipment-analytics-api/handlers"
	"equipment-analytics-api/history"
	"equipment-analytics-api/models"
	"equipment-analytics-api/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg.Log)

	// Connect to database
	db, err := history.OpenPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		log.Fatalf("Failed to migrate users: %v", err)
	}
	store := history.NewGormStore(db)
	if err := store.AutoMigrate(); err != nil {
		log.Fatalf("Failed to migrate datasets: %v", err)
	}

	pipeline := services.NewPipeline(ctx, cfg, store, logger)
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.Warn("closing services", "error", err)
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(handlers.Deps{
		Config:      cfg,
		DB:          db,
		Auth:        services.NewAuthService(cfg.JWT),
		Cache:       pipeline.Cache,
		Analysis:    pipeline.Analysis,
		Predictions: pipeline.Predictions,
		Reports:     pipeline.Reports,
		Logger:      logger,
	})

	// Training a large upload can take a while, hence the long write timeout.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
