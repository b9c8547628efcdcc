package cache

import "context"

// UserConfigCacheService caches per-user saved domain configurations under
// user:{id}:domain:{name} keys.
type UserConfigCacheService struct {
	cache  *CacheService
	logger Logger
}

// NewUserConfigCacheService creates a user config cache backed by Redis.
func NewUserConfigCacheService(cache *CacheService, logger Logger) *UserConfigCacheService {
	return &UserConfigCacheService{
		cache:  cache,
		logger: logger,
	}
}

// GetUserDomain returns a user's cached domain payload, or false on miss.
func (s *UserConfigCacheService) GetUserDomain(ctx context.Context, userID, domain string) (map[string]interface{}, bool) {
	if !s.cache.IsHealthy() {
		return nil, false
	}

	var payload map[string]interface{}
	if err := s.cache.GetJSON(ctx, UserDomainKey(userID, domain), &payload); err != nil {
		return nil, false
	}
	return payload, true
}

// SetUserDomain stores a user's domain payload.
func (s *UserConfigCacheService) SetUserDomain(ctx context.Context, userID, domain string, payload map[string]interface{}) {
	if err := s.cache.SetJSON(ctx, UserDomainKey(userID, domain), payload, UserDomainTTL); err != nil {
		s.logger.Warn("Failed to cache user domain config",
			"user_id", userID, "domain", domain, "error", err)
	}
}

// InvalidateUserDomain removes a user's cached domain payload.
func (s *UserConfigCacheService) InvalidateUserDomain(ctx context.Context, userID, domain string) {
	if err := s.cache.Delete(ctx, UserDomainKey(userID, domain)); err != nil {
		s.logger.Warn("Failed to invalidate user domain config",
			"user_id", userID, "domain", domain, "error", err)
	}
}

// InvalidateUser removes all of a user's cached domain payloads.
func (s *UserConfigCacheService) InvalidateUser(ctx context.Context, userID string) error {
	return s.cache.DeletePattern(ctx, UserDomainKey(userID, "*"))
}
