package auth

import (
	"context"
	"fmt"
	"log"

	"ginie-settings-service/internal/database"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultAdminEmail is used when no admin email is configured
	DefaultAdminEmail = "admin@ginie.local"
	// AdminBcryptCost is the bcrypt cost for the seeded admin password
	AdminBcryptCost = 12
)

// SeedAdminUser ensures an admin user exists with proper credentials.
// It creates the admin if missing, or resets the password to the configured
// one when it no longer matches.
func SeedAdminUser(ctx context.Context, db *database.DB, cfg Config) error {
	email := cfg.AdminEmail
	if email == "" {
		email = DefaultAdminEmail
	}
	if cfg.AdminPassword == "" {
		return fmt.Errorf("admin password is not configured")
	}

	repo := database.NewRepository(db)

	user, err := repo.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check for admin user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), AdminBcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	if user == nil {
		log.Printf("Admin user not found. Creating admin user: %s", email)

		adminUser := &database.User{
			Email:        email,
			PasswordHash: string(hashedPassword),
			Name:         "Administrator",
			IsAdmin:      true,
		}

		if err := repo.CreateUser(ctx, adminUser); err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Printf("Admin user created successfully with ID: %s", adminUser.ID)
		return nil
	}

	// User exists - check if password needs updating
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cfg.AdminPassword)); err != nil {
		log.Printf("Admin user exists but password needs updating. Updating password for: %s", email)

		if err := repo.UpdateUserPassword(ctx, user.ID, string(hashedPassword)); err != nil {
			return fmt.Errorf("failed to update admin password: %w", err)
		}

		log.Printf("Admin password updated successfully")
	}

	// Ensure the admin flag is set
	if !user.IsAdmin {
		log.Printf("Promoting existing user to admin: %s", email)

		if err := repo.SetUserAdmin(ctx, user.ID, true); err != nil {
			return fmt.Errorf("failed to set admin flag: %w", err)
		}
	}

	return nil
}
