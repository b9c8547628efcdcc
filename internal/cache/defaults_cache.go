package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Logger interface for dependency injection
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DefaultsCacheService caches each domain's resolved default payload under its
// own key so a single domain save never invalidates the others. It implements
// the store's DomainCache contract.
type DefaultsCacheService struct {
	cache  *CacheService
	logger Logger
}

// NewDefaultsCacheService creates a defaults cache backed by Redis.
func NewDefaultsCacheService(cache *CacheService, logger Logger) *DefaultsCacheService {
	return &DefaultsCacheService{
		cache:  cache,
		logger: logger,
	}
}

// GetDomain returns a cached domain payload. The second result is false on
// cache miss or when Redis is degraded; callers fall back to the database.
func (s *DefaultsCacheService) GetDomain(ctx context.Context, domain string) (map[string]interface{}, bool) {
	if !s.cache.IsHealthy() {
		return nil, false
	}

	var payload map[string]interface{}
	if err := s.cache.GetJSON(ctx, DomainDefaultsKey(domain), &payload); err != nil {
		return nil, false
	}
	return payload, true
}

// SetDomain stores a domain payload. Failures are logged, not returned: the
// cache is an optimization, never the source of truth.
func (s *DefaultsCacheService) SetDomain(ctx context.Context, domain string, payload map[string]interface{}) {
	if err := s.cache.SetJSON(ctx, DomainDefaultsKey(domain), payload, DefaultsTTL); err != nil {
		s.logger.Warn("Failed to cache domain defaults", "domain", domain, "error", err)
	}
}

// InvalidateDomain removes one domain's cached payload.
func (s *DefaultsCacheService) InvalidateDomain(ctx context.Context, domain string) {
	if err := s.cache.Delete(ctx, DomainDefaultsKey(domain)); err != nil {
		s.logger.Warn("Failed to invalidate domain defaults", "domain", domain, "error", err)
	}
}

// InvalidateAll removes every cached domain payload and the file hash.
// Called when admin updates default-settings.json on disk.
func (s *DefaultsCacheService) InvalidateAll(ctx context.Context) error {
	if err := s.cache.DeletePattern(ctx, "admin:defaults:domain:*"); err != nil {
		s.logger.Warn("Failed to delete domain defaults", "error", err)
		return err
	}
	s.cache.Delete(ctx, DefaultsHashKey())

	s.logger.Info("Defaults cache invalidated")
	return nil
}

// CheckAndRefreshIfChanged compares fileContent's hash against the cached
// hash and invalidates all domain keys on mismatch. Returns true if the
// cache was flushed.
func (s *DefaultsCacheService) CheckAndRefreshIfChanged(ctx context.Context, fileContent interface{}) (bool, error) {
	if !s.cache.IsHealthy() {
		return false, ErrCacheUnavailable
	}

	currentHash := calculateHash(fileContent)

	cachedHash, err := s.cache.Get(ctx, DefaultsHashKey())
	if err == nil && cachedHash == currentHash {
		return false, nil // No change
	}

	s.logger.Info("Default settings file changed, flushing cache",
		"cached_hash", shortHash(cachedHash),
		"current_hash", shortHash(currentHash))

	if err := s.InvalidateAll(ctx); err != nil {
		return false, err
	}
	if err := s.cache.Set(ctx, DefaultsHashKey(), currentHash, DefaultsHashTTL); err != nil {
		return false, fmt.Errorf("failed to store defaults hash: %w", err)
	}
	return true, nil
}

// IsHealthy returns whether the underlying cache is healthy
func (s *DefaultsCacheService) IsHealthy() bool {
	return s.cache.IsHealthy()
}

// calculateHash calculates MD5 hash of the defaults file for change detection
func calculateHash(v interface{}) string {
	data, _ := json.Marshal(v)
	hash := md5.Sum(data)
	return hex.EncodeToString(hash[:])
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
