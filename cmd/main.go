package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/GustavoFMorales/api-login-mentoria/internal/api"
	"github.com/GustavoFMorales/api-login-mentoria/internal/app"
	"github.com/GustavoFMorales/api-login-mentoria/internal/config"
	"github.com/GustavoFMorales/api-login-mentoria/internal/store"
	"github.com/GustavoFMorales/api-login-mentoria/internal/token"
	"github.com/GustavoFMorales/api-login-mentoria/pkg/mailer"
	"github.com/GustavoFMorales/api-login-mentoria/pkg/rabbitmq"
)

func main() {
	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load application configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	// If a platform-provided PORT is set (e.g., Railway/Render), prefer it
	if port := os.Getenv("PORT"); port != "" {
		cfg.ServerPort = port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "3000"
	}

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	// Set up the account store
	accountStore := store.NewAccountStore(cfg.UsersFile)
	log.Printf("Account store at %s", cfg.UsersFile)

	// Set up the token service
	tokens := token.NewService(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)

	// Set up the mailer; fall back to a log-only notifier when SMTP is not
	// configured so local development works without a relay.
	var notifier app.Notifier
	if cfg.SMTPHost == "" {
		log.Println("WARNING: SMTP_HOST not set, recovery codes will be logged instead of emailed")
		notifier = mailer.LogNotifier{}
	} else {
		m, err := mailer.New(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			log.Fatalf("Failed to set up mailer: %v", err)
		}
		defer m.Close()
		notifier = m
		log.Println("SMTP mailer connected")
	}

	// Set up the event producer; allow nil on failure
	var events app.EventPublisher
	if cfg.RabbitMQURL != "" {
		if p, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err != nil {
			log.Printf("WARNING: Failed to connect to RabbitMQ at startup: %v. Continuing without MQ.", err)
		} else {
			defer p.Close()
			events = p
			log.Println("RabbitMQ producer connected")
		}
	}

	service := app.NewService(
		accountStore,
		tokens,
		notifier,
		events,
		cfg.BcryptCost,
		time.Duration(cfg.NotifyTimeoutSeconds)*time.Second,
	)

	// Set up router and handlers
	handler := api.NewAuthHandler(service)
	r := api.NewRouter(handler)

	// Start the server
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
