package defaults

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ginie-settings-service/internal/events"
	"ginie-settings-service/internal/logging"
	"ginie-settings-service/internal/reconcile"
)

// Override is a full admin-edited payload for one domain. The payload maps
// flattened paths to values and always carries the complete domain, never a
// sparse patch.
type Override struct {
	Domain    string                 `json:"domain"`
	Payload   map[string]interface{} `json:"payload"`
	Version   int                    `json:"version"`
	UpdatedBy string                 `json:"updated_by"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// ChangeEvent records one admin save or reset for the audit trail.
type ChangeEvent struct {
	ID           string    `json:"id"`
	Domain       string    `json:"domain"`
	Action       string    `json:"action"` // "update" or "reset"
	ChangedPaths []string  `json:"changed_paths"`
	ChangesCount int       `json:"changes_count"`
	UpdatedBy    string    `json:"updated_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// OverrideRepository persists admin overrides and their audit trail.
type OverrideRepository interface {
	GetOverride(ctx context.Context, domain string) (*Override, error)
	SaveOverride(ctx context.Context, o *Override) error
	DeleteOverride(ctx context.Context, domain string) error
	InsertChangeEvent(ctx context.Context, ev *ChangeEvent) error
	ListChangeEvents(ctx context.Context, domain string, limit int) ([]*ChangeEvent, error)
}

// DomainCache caches resolved domain payloads between requests.
type DomainCache interface {
	GetDomain(ctx context.Context, domain string) (map[string]interface{}, bool)
	SetDomain(ctx context.Context, domain string, payload map[string]interface{})
	InvalidateDomain(ctx context.Context, domain string)
}

// SaveResult reports the outcome of an admin save.
type SaveResult struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message,omitempty"`
	ChangesCount int      `json:"changes_count"`
	ConfigType   string   `json:"config_type"`
	ChangedPaths []string `json:"changed_paths,omitempty"`
}

// Store resolves a domain's effective defaults and applies admin edits.
// Resolution order: cache, then database override, then the shipped file.
type Store struct {
	registry  *Registry
	file      *SettingsFile
	repo      OverrideRepository
	cache     DomainCache
	validator *reconcile.Validator
	bus       *events.EventBus
	logger    *logging.Logger
}

// NewStore wires a Store. repo and cache may be nil; the store then serves
// file defaults only, which is how the CLI runs without infrastructure.
func NewStore(registry *Registry, file *SettingsFile, repo OverrideRepository, cache DomainCache, bus *events.EventBus) *Store {
	return &Store{
		registry:  registry,
		file:      file,
		repo:      repo,
		cache:     cache,
		validator: reconcile.NewValidator(),
		bus:       bus,
		logger:    logging.Default().WithComponent("defaults-store"),
	}
}

// Registry exposes the domain registry the store was built with.
func (s *Store) Registry() *Registry {
	return s.registry
}

// File exposes the loaded defaults file.
func (s *Store) File() *SettingsFile {
	return s.file
}

// ReplaceFile swaps in a freshly reloaded defaults file.
func (s *Store) ReplaceFile(file *SettingsFile) {
	s.file = file
	s.logger.Info("Defaults file replaced", "version", file.Metadata.Version)
}

// FileLeaves flattens the shipped file defaults for a domain.
func (s *Store) FileLeaves(domain string) ([]reconcile.Leaf, error) {
	d, err := s.registry.Lookup(domain)
	if err != nil {
		return nil, err
	}
	return reconcile.FlattenValue(d.Extract(s.file)), nil
}

// EffectiveLeaves returns the domain's effective defaults as ordered leaves,
// plus the source they came from ("cache", "override" or "file"). An
// override replaces file values path by path; paths the override does not
// mention keep their file values, so a stale override never hides new fields.
func (s *Store) EffectiveLeaves(ctx context.Context, domain string) ([]reconcile.Leaf, string, error) {
	fileLeaves, err := s.FileLeaves(domain)
	if err != nil {
		return nil, "", err
	}

	if s.cache != nil {
		if payload, ok := s.cache.GetDomain(ctx, domain); ok {
			return overlay(fileLeaves, payload), "cache", nil
		}
	}

	if s.repo != nil {
		override, err := s.repo.GetOverride(ctx, domain)
		if err != nil {
			s.logger.Warn("Override lookup failed, serving file defaults",
				"domain", domain, "error", err)
		} else if override != nil {
			if s.cache != nil {
				s.cache.SetDomain(ctx, domain, override.Payload)
			}
			return overlay(fileLeaves, override.Payload), "override", nil
		}
	}

	return fileLeaves, "file", nil
}

// EffectivePayload returns the effective defaults as a path-to-value map.
func (s *Store) EffectivePayload(ctx context.Context, domain string) (map[string]interface{}, string, error) {
	leaves, source, err := s.EffectiveLeaves(ctx, domain)
	if err != nil {
		return nil, "", err
	}
	payload := make(map[string]interface{}, len(leaves))
	for _, leaf := range leaves {
		payload[leaf.Path] = leaf.Value
	}
	return payload, source, nil
}

// Save validates and persists a full edited payload for a domain, records a
// change event, invalidates the cache entry, and publishes DEFAULTS_UPDATED.
func (s *Store) Save(ctx context.Context, domain string, payload map[string]interface{}, updatedBy string) (*SaveResult, error) {
	if _, err := s.registry.Lookup(domain); err != nil {
		return nil, err
	}
	if s.repo == nil {
		return nil, fmt.Errorf("defaults persistence is not configured")
	}

	if verr := s.validator.Validate(domain, payload); verr != nil {
		return &SaveResult{
			Success:    false,
			Message:    verr.Message,
			ConfigType: domain,
		}, nil
	}

	changedPaths, err := s.changedPaths(ctx, domain, payload)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetOverride(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing override: %w", err)
	}
	version := 1
	if existing != nil {
		version = existing.Version + 1
	}

	override := &Override{
		Domain:    domain,
		Payload:   payload,
		Version:   version,
		UpdatedBy: updatedBy,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.SaveOverride(ctx, override); err != nil {
		return nil, fmt.Errorf("failed to save defaults for %s: %w", domain, err)
	}

	s.recordEvent(ctx, domain, "update", changedPaths, updatedBy)
	if s.cache != nil {
		s.cache.InvalidateDomain(ctx, domain)
	}
	s.publish(events.EventDefaultsUpdated, domain, updatedBy, len(changedPaths))

	s.logger.Info("Saved domain defaults",
		"domain", domain,
		"version", version,
		"changes", len(changedPaths),
		"updated_by", updatedBy)

	return &SaveResult{
		Success:      true,
		Message:      fmt.Sprintf("Saved %d change(s) to %s defaults", len(changedPaths), domain),
		ChangesCount: len(changedPaths),
		ConfigType:   domain,
		ChangedPaths: changedPaths,
	}, nil
}

// Reset removes the admin override so the domain falls back to file defaults.
func (s *Store) Reset(ctx context.Context, domain string, updatedBy string) (*SaveResult, error) {
	if _, err := s.registry.Lookup(domain); err != nil {
		return nil, err
	}
	if s.repo == nil {
		return nil, fmt.Errorf("defaults persistence is not configured")
	}

	if err := s.repo.DeleteOverride(ctx, domain); err != nil {
		return nil, fmt.Errorf("failed to reset defaults for %s: %w", domain, err)
	}

	s.recordEvent(ctx, domain, "reset", nil, updatedBy)
	if s.cache != nil {
		s.cache.InvalidateDomain(ctx, domain)
	}
	s.publish(events.EventDefaultsReset, domain, updatedBy, 0)

	s.logger.Info("Reset domain defaults to file values",
		"domain", domain, "updated_by", updatedBy)

	return &SaveResult{
		Success:    true,
		Message:    fmt.Sprintf("Reset %s defaults to shipped values", domain),
		ConfigType: domain,
	}, nil
}

// AuditTrail returns the most recent change events, newest first. Empty
// domain means all domains.
func (s *Store) AuditTrail(ctx context.Context, domain string, limit int) ([]*ChangeEvent, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("defaults persistence is not configured")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.ListChangeEvents(ctx, domain, limit)
}

// changedPaths diffs the proposed payload against current effective defaults.
func (s *Store) changedPaths(ctx context.Context, domain string, payload map[string]interface{}) ([]string, error) {
	currentLeaves, _, err := s.EffectiveLeaves(ctx, domain)
	if err != nil {
		return nil, err
	}

	var changed []string
	for _, leaf := range currentLeaves {
		proposed, ok := payload[leaf.Path]
		if !ok {
			continue
		}
		if reconcile.CanonicalSerialize(proposed) != reconcile.CanonicalSerialize(leaf.Value) {
			changed = append(changed, leaf.Path)
		}
	}
	return changed, nil
}

func (s *Store) recordEvent(ctx context.Context, domain, action string, changedPaths []string, updatedBy string) {
	ev := &ChangeEvent{
		ID:           uuid.NewString(),
		Domain:       domain,
		Action:       action,
		ChangedPaths: changedPaths,
		ChangesCount: len(changedPaths),
		UpdatedBy:    updatedBy,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.InsertChangeEvent(ctx, ev); err != nil {
		// Audit failure must not block the save itself.
		s.logger.Error("Failed to record change event",
			"domain", domain, "action", action, "error", err)
	}
}

func (s *Store) publish(eventType events.EventType, domain, updatedBy string, changes int) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		Type: eventType,
		Data: map[string]interface{}{
			"domain":     domain,
			"updated_by": updatedBy,
			"changes":    changes,
		},
	})
}

// overlay replaces file leaf values with override payload values, keeping the
// file's path order.
func overlay(fileLeaves []reconcile.Leaf, payload map[string]interface{}) []reconcile.Leaf {
	out := make([]reconcile.Leaf, len(fileLeaves))
	for i, leaf := range fileLeaves {
		if v, ok := payload[leaf.Path]; ok {
			leaf.Value = v
		}
		out[i] = leaf
	}
	return out
}
