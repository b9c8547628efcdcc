package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// =====================================================
// USER DOMAIN CONFIGURATION CRUD OPERATIONS
// =====================================================

// GetUserDomainConfig retrieves a user's saved payload for one domain.
// Returns nil if the configuration doesn't exist (caller uses defaults).
// Returns error only for actual database errors.
func (r *Repository) GetUserDomainConfig(ctx context.Context, userID, domain string) (*UserDomainConfig, error) {
	query := `
		SELECT id, user_id, domain, payload, created_at, updated_at
		FROM user_domain_configs
		WHERE user_id = $1 AND domain = $2
	`

	var (
		cfg        UserDomainConfig
		payloadRaw []byte
	)
	err := r.db.Pool.QueryRow(ctx, query, userID, domain).Scan(
		&cfg.ID, &cfg.UserID, &cfg.Domain, &payloadRaw, &cfg.CreatedAt, &cfg.UpdatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil // Not found - caller should use defaults
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user domain config for %s: %w", domain, err)
	}

	if err := json.Unmarshal(payloadRaw, &cfg.Payload); err != nil {
		return nil, fmt.Errorf("failed to parse user domain payload for %s: %w", domain, err)
	}
	return &cfg, nil
}

// UpsertUserDomainConfig saves a user's full payload for one domain.
func (r *Repository) UpsertUserDomainConfig(ctx context.Context, userID, domain string, payload map[string]interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal user domain payload: %w", err)
	}

	query := `
		INSERT INTO user_domain_configs (user_id, domain, payload, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, domain) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.Pool.Exec(ctx, query, userID, domain, payloadJSON); err != nil {
		return fmt.Errorf("failed to save user domain config for %s: %w", domain, err)
	}
	return nil
}

// DeleteUserDomainConfig removes a user's saved payload so the domain falls
// back to admin defaults.
func (r *Repository) DeleteUserDomainConfig(ctx context.Context, userID, domain string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM user_domain_configs WHERE user_id = $1 AND domain = $2`,
		userID, domain)
	if err != nil {
		return fmt.Errorf("failed to delete user domain config for %s: %w", domain, err)
	}
	return nil
}

// ListUserDomainConfigs returns all of a user's saved domain payloads.
func (r *Repository) ListUserDomainConfigs(ctx context.Context, userID string) ([]*UserDomainConfig, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, domain, payload, created_at, updated_at
		FROM user_domain_configs
		WHERE user_id = $1
		ORDER BY domain
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user domain configs: %w", err)
	}
	defer rows.Close()

	var configs []*UserDomainConfig
	for rows.Next() {
		var (
			cfg        UserDomainConfig
			payloadRaw []byte
		)
		if err := rows.Scan(&cfg.ID, &cfg.UserID, &cfg.Domain, &payloadRaw, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payloadRaw, &cfg.Payload); err != nil {
			return nil, fmt.Errorf("failed to parse user domain payload for %s: %w", cfg.Domain, err)
		}
		configs = append(configs, &cfg)
	}
	return configs, rows.Err()
}
