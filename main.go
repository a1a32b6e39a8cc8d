package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"portfolio/analytics/config"
	"portfolio/analytics/database"
	"portfolio/analytics/handlers"
	"portfolio/analytics/middleware"
	"portfolio/analytics/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := store.NewEventStore(cfg.Storage.DataDir, cfg.Storage.DataFile)
	if err != nil {
		log.Fatalf("Failed to initialize event store: %v", err)
	}
	log.Printf("Storing events in %s", events.Path())

	deps := handlers.RouterDeps{Config: cfg, Events: events}

	if cfg.ClickHouse.Enabled() {
		chClient, err := database.NewClickHouseDB(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to initialize ClickHouse database: %v", err)
		}
		defer chClient.Close()
		deps.Sink = store.NewClickHouseSink(chClient)
	}

	if cfg.Postgres.URL != "" {
		dbClient, err := database.NewPostgresDB(cfg.Postgres)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
		}
		defer dbClient.Close()
		operators := store.NewOperatorStore(dbClient.DB)
		deps.Operators = operators

		if cfg.Auth.OperatorEmail != "" {
			created, err := handlers.SeedOperator(ctx, operators, cfg.Auth.OperatorEmail, cfg.Auth.OperatorPassword)
			if err != nil {
				log.Fatalf("Failed to seed dashboard operator: %v", err)
			}
			if created {
				log.Printf("Created dashboard operator %s", cfg.Auth.OperatorEmail)
			}
		}
	}

	deps.Limiter = middleware.IngestLimiterFor(cfg.Ingest)
	if deps.Limiter != nil {
		go deps.Limiter.Run(ctx)
	}

	if !cfg.Auth.Enabled() {
		log.Println("Dashboard auth disabled: read endpoints are public")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handlers.NewRouter(deps),
	}

	go func() {
		log.Printf("Analytics server running on http://localhost:%s", cfg.Port)
		log.Printf("Analytics data will be saved to: %s", events.Path())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Analytics server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
