package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/stemsi/recruitment-portal/internal/config"
	"github.com/stemsi/recruitment-portal/internal/database"
	"github.com/stemsi/recruitment-portal/internal/logger"
	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stemsi/recruitment-portal/internal/repository"
	"github.com/stemsi/recruitment-portal/internal/validator"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// create-admin provisions the credential account for an administrator.
// Admin rights come from ADMIN_EMAILS; this only creates the login.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	accounts := repository.NewAccountRepository(pool)
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create Administrator Account ===")

	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.ToLower(strings.TrimSpace(email))
	if !validator.IsEmail(email) {
		fmt.Println("Error: a valid email is required")
		return
	}
	if !cfg.IsAdminEmail(email) {
		fmt.Printf("Warning: %s is not listed in ADMIN_EMAILS and will log in as a candidate\n", email)
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		return
	}
	password := string(bytePassword)
	if len(password) < cfg.MinPasswordLength {
		fmt.Printf("Error: Password must be at least %d characters\n", cfg.MinPasswordLength)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	account := &model.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if err := accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			fmt.Println("Error: an account with this email already exists")
			return
		}
		log.Fatal().Err(err).Msg("Failed to create account")
	}

	fmt.Printf("\nSuccess! Account %s created with ID: %s\n", account.Email, account.ID)
}
