// Command createadmin registers a dashboard account and optionally links it
// to the Telegram user that will receive its login codes.
package main

import (
	"FlashGrade/internal/adapters/postgres"
	"FlashGrade/internal/core/domain"
	"FlashGrade/internal/core/services"
	"FlashGrade/internal/shared/config"
	"FlashGrade/internal/shared/logger"
	"FlashGrade/migrations"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	email := pflag.String("email", "", "account email (required)")
	password := pflag.String("password", os.Getenv("ADMIN_PASSWORD"), "account password, defaults to $ADMIN_PASSWORD")
	name := pflag.String("name", "Support", "display name used on support replies")
	role := pflag.String("role", string(domain.RoleAdmin), "admin or user")
	telegramID := pflag.Int64("telegram-id", 0, "Telegram user id that receives login codes")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	baseLogger := logger.New(cfg.IsDev(), cfg.LogLevel)

	if *email == "" {
		baseLogger.Fatal().Msg("--email is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.NewDB(ctx, cfg.Postgres.URL, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()
	if err := db.ApplyMigrations(ctx, migrations.Files); err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	// No bot or limiter: account creation never sends codes.
	auth := services.NewAuthService(cfg,
		postgres.NewAdminAccountRepository(db, &baseLogger),
		postgres.NewTrustedDeviceRepository(db, &baseLogger),
		postgres.NewTwoFactorCodeRepository(db, &baseLogger),
		postgres.NewUserRepository(db, &baseLogger),
		nil, nil, &baseLogger)

	account, err := auth.CreateAccount(ctx, *email, *password, *name, domain.Role(*role), *telegramID)
	switch {
	case errors.Is(err, domain.ErrAccountExists) && *telegramID != 0:
		// Re-running with --telegram-id links the existing account.
		account, err = auth.LinkTelegram(ctx, *email, *telegramID)
		if err != nil {
			baseLogger.Fatal().Err(err).Str("email", *email).Msg("Failed to link existing account")
		}
	case errors.Is(err, domain.ErrAccountExists):
		baseLogger.Fatal().Str("email", *email).Msg("An account with this email already exists")
	case account != nil && err != nil:
		baseLogger.Fatal().Err(err).Str("account_id", account.ID.String()).
			Msg("Account created but not linked; re-run with the same --email and --telegram-id")
	case err != nil:
		baseLogger.Fatal().Err(err).Msg("Failed to create account")
	}

	baseLogger.Info().Str("account_id", account.ID.String()).Str("email", account.Email).Msg("Account ready")
}
