package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/ryowuandjanet/go-user-auth/config"
	"github.com/ryowuandjanet/go-user-auth/internal/application"
	"github.com/ryowuandjanet/go-user-auth/internal/container"
	"github.com/ryowuandjanet/go-user-auth/pkg/helpers"
)

// seed creates a demo account through the normal register flow, so the
// stored hash and indexes match what the API would produce.
func main() {
	email := flag.String("email", "demo@example.com", "account email")
	password := flag.String("password", "password123", "account password")
	name := flag.String("name", "demoUser", "display name")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.MetricsEnabled = false
	cfg.MailDriver = config.MailLog
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx := context.Background()
	c, err := container.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("startup failed")
	}
	defer func() { _ = c.Close(ctx) }()

	_, err = c.Auth.Register(ctx, application.RegisterInput{Email: *email, Name: *name, Password: *password})
	switch {
	case errors.Is(err, application.ErrEmailAlreadyRegistered):
		fmt.Printf("user already exists: email=%s\n", *email)
	case err != nil:
		logger.WithError(err).Fatal("failed to seed user")
	default:
		fmt.Println(seededLine(*email))
	}
}

// seededLine reports the seeded account; the password is never echoed.
func seededLine(email string) string {
	return fmt.Sprintf("seeded user: email=%s", email)
}
