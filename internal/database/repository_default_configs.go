package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ginie-settings-service/internal/defaults"
)

// =====================================================
// ADMIN DEFAULT OVERRIDES
// =====================================================

// GetOverride retrieves the admin override for a domain.
// Returns nil if no override exists (callers fall back to file defaults).
func (r *Repository) GetOverride(ctx context.Context, domain string) (*defaults.Override, error) {
	if !r.connected() {
		return nil, ErrNotConnected
	}

	query := `
		SELECT domain, payload, version, updated_by, updated_at
		FROM default_configs
		WHERE domain = $1
	`

	var (
		o          defaults.Override
		payloadRaw []byte
	)
	err := r.db.Pool.QueryRow(ctx, query, domain).Scan(
		&o.Domain, &payloadRaw, &o.Version, &o.UpdatedBy, &o.UpdatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil // Not found - caller serves file defaults
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default override for %s: %w", domain, err)
	}

	if err := json.Unmarshal(payloadRaw, &o.Payload); err != nil {
		return nil, fmt.Errorf("failed to parse override payload for %s: %w", domain, err)
	}
	return &o, nil
}

// SaveOverride upserts the full payload for a domain.
func (r *Repository) SaveOverride(ctx context.Context, o *defaults.Override) error {
	if !r.connected() {
		return ErrNotConnected
	}

	payloadJSON, err := json.Marshal(o.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal override payload: %w", err)
	}

	query := `
		INSERT INTO default_configs (domain, payload, version, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (domain) DO UPDATE SET
			payload = EXCLUDED.payload,
			version = EXCLUDED.version,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.Pool.Exec(ctx, query,
		o.Domain, payloadJSON, o.Version, o.UpdatedBy, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save default override for %s: %w", o.Domain, err)
	}
	return nil
}

// DeleteOverride removes a domain's admin override.
func (r *Repository) DeleteOverride(ctx context.Context, domain string) error {
	if !r.connected() {
		return ErrNotConnected
	}

	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM default_configs WHERE domain = $1`, domain)
	if err != nil {
		return fmt.Errorf("failed to delete default override for %s: %w", domain, err)
	}
	return nil
}

// ListOverrides returns all current admin overrides.
func (r *Repository) ListOverrides(ctx context.Context) ([]*defaults.Override, error) {
	if !r.connected() {
		return nil, ErrNotConnected
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT domain, payload, version, updated_by, updated_at
		FROM default_configs
		ORDER BY domain
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list default overrides: %w", err)
	}
	defer rows.Close()

	var overrides []*defaults.Override
	for rows.Next() {
		var (
			o          defaults.Override
			payloadRaw []byte
		)
		if err := rows.Scan(&o.Domain, &payloadRaw, &o.Version, &o.UpdatedBy, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payloadRaw, &o.Payload); err != nil {
			return nil, fmt.Errorf("failed to parse override payload for %s: %w", o.Domain, err)
		}
		overrides = append(overrides, &o)
	}
	return overrides, rows.Err()
}

// =====================================================
// CHANGE EVENT AUDIT TRAIL
// =====================================================

// InsertChangeEvent records one admin save or reset.
func (r *Repository) InsertChangeEvent(ctx context.Context, ev *defaults.ChangeEvent) error {
	if !r.connected() {
		return ErrNotConnected
	}

	pathsJSON, err := json.Marshal(ev.ChangedPaths)
	if err != nil {
		return fmt.Errorf("failed to marshal changed paths: %w", err)
	}

	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO default_change_events (id, domain, action, changed_paths, changes_count, updated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.ID, ev.Domain, ev.Action, pathsJSON, ev.ChangesCount, ev.UpdatedBy, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert change event: %w", err)
	}
	return nil
}

// ListChangeEvents returns the most recent change events, newest first.
// Empty domain returns events across all domains.
func (r *Repository) ListChangeEvents(ctx context.Context, domain string, limit int) ([]*defaults.ChangeEvent, error) {
	if !r.connected() {
		return nil, ErrNotConnected
	}

	query := `
		SELECT id, domain, action, changed_paths, changes_count, updated_by, created_at
		FROM default_change_events
	`
	args := []interface{}{}
	if domain != "" {
		query += ` WHERE domain = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, domain, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list change events: %w", err)
	}
	defer rows.Close()

	var events []*defaults.ChangeEvent
	for rows.Next() {
		var (
			ev       defaults.ChangeEvent
			pathsRaw []byte
		)
		if err := rows.Scan(&ev.ID, &ev.Domain, &ev.Action, &pathsRaw, &ev.ChangesCount, &ev.UpdatedBy, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if len(pathsRaw) > 0 {
			if err := json.Unmarshal(pathsRaw, &ev.ChangedPaths); err != nil {
				return nil, fmt.Errorf("failed to parse changed paths: %w", err)
			}
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
