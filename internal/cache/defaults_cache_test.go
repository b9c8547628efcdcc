package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
)

// ============================================================================
// TEST SUITE FOR DefaultsCacheService
// Granular per-domain keys with file-hash change detection
// ============================================================================

// mockStore is an in-memory stand-in for the Redis operations the defaults
// cache uses: keyed get/set/delete plus pattern deletion and health state.
type mockStore struct {
	mu       sync.Mutex
	healthy  bool
	data     map[string]string
	getCalls []string
	setCalls []string
	delCalls []string
}

func newMockStore() *mockStore {
	return &mockStore{
		healthy: true,
		data:    make(map[string]string),
	}
}

func (m *mockStore) IsHealthy() bool { return m.healthy }

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls = append(m.getCalls, key)
	if !m.healthy {
		return "", fmt.Errorf("redis unavailable (circuit breaker open)")
	}
	v, ok := m.data[key]
	if !ok {
		return "", fmt.Errorf("cache miss")
	}
	return v, nil
}

func (m *mockStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls = append(m.setCalls, key)
	if !m.healthy {
		return fmt.Errorf("redis unavailable (circuit breaker open)")
	}
	m.data[key] = value
	return nil
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delCalls = append(m.delCalls, key)
	if !m.healthy {
		return fmt.Errorf("redis unavailable (circuit breaker open)")
	}
	delete(m.data, key)
	return nil
}

// testDefaultsCache mirrors DefaultsCacheService's behavior over the mock
// store so the key scheme and degradation rules are exercised without Redis.
type testDefaultsCache struct {
	store  *mockStore
	logger *mockLogger
}

func newTestDefaultsCache() *testDefaultsCache {
	return &testDefaultsCache{
		store:  newMockStore(),
		logger: &mockLogger{},
	}
}

func (tc *testDefaultsCache) GetDomain(ctx context.Context, domain string) (map[string]interface{}, bool) {
	if !tc.store.IsHealthy() {
		return nil, false
	}
	raw, err := tc.store.Get(ctx, DomainDefaultsKey(domain))
	if err != nil {
		return nil, false
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, false
	}
	return payload, true
}

func (tc *testDefaultsCache) SetDomain(ctx context.Context, domain string, payload map[string]interface{}) {
	data, _ := json.Marshal(payload)
	if err := tc.store.Set(ctx, DomainDefaultsKey(domain), string(data)); err != nil {
		tc.logger.Warn("Failed to cache domain defaults", "domain", domain, "error", err)
	}
}

func (tc *testDefaultsCache) InvalidateDomain(ctx context.Context, domain string) {
	tc.store.Delete(ctx, DomainDefaultsKey(domain))
}

func (tc *testDefaultsCache) CheckAndRefreshIfChanged(ctx context.Context, fileContent interface{}) (bool, error) {
	if !tc.store.IsHealthy() {
		return false, ErrCacheUnavailable
	}
	currentHash := calculateHash(fileContent)
	cachedHash, err := tc.store.Get(ctx, DefaultsHashKey())
	if err == nil && cachedHash == currentHash {
		return false, nil
	}
	for key := range tc.store.data {
		if key != DefaultsHashKey() {
			tc.store.Delete(ctx, key)
		}
	}
	if err := tc.store.Set(ctx, DefaultsHashKey(), currentHash); err != nil {
		return false, err
	}
	return true, nil
}

// mockLogger records log calls for assertions.
type mockLogger struct {
	mu    sync.Mutex
	warns []string
	infos []string
}

func (l *mockLogger) Debug(msg string, kv ...interface{}) {}
func (l *mockLogger) Info(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}
func (l *mockLogger) Warn(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *mockLogger) Error(msg string, kv ...interface{}) {}

// ============================================================================
// KEY SCHEME
// ============================================================================

func TestDomainDefaultsKey_Format(t *testing.T) {
	key := DomainDefaultsKey("circuit_breaker")
	expected := "admin:defaults:domain:circuit_breaker"
	if key != expected {
		t.Errorf("Expected key %s, got %s", expected, key)
	}
}

func TestUserDomainKey_Format(t *testing.T) {
	key := UserDomainKey("user-123", "capital_allocation")
	expected := "user:user-123:domain:capital_allocation"
	if key != expected {
		t.Errorf("Expected key %s, got %s", expected, key)
	}
}

// ============================================================================
// DOMAIN PAYLOAD OPERATIONS
// ============================================================================

func TestGetDomain_CacheHit_ReturnsPayload(t *testing.T) {
	tc := newTestDefaultsCache()
	ctx := context.Background()

	tc.store.data["admin:defaults:domain:llm_config"] = `{"provider":"deepseek","timeout_ms":5000}`

	payload, ok := tc.GetDomain(ctx, "llm_config")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if payload["provider"] != "deepseek" {
		t.Errorf("Expected provider deepseek, got %v", payload["provider"])
	}
}

func TestGetDomain_CacheMiss_ReturnsFalse(t *testing.T) {
	tc := newTestDefaultsCache()
	ctx := context.Background()

	if _, ok := tc.GetDomain(ctx, "llm_config"); ok {
		t.Error("Expected cache miss to return false")
	}
}

func TestGetDomain_RedisDown_ReturnsFalse(t *testing.T) {
	tc := newTestDefaultsCache()
	ctx := context.Background()

	tc.store.healthy = false
	tc.store.data["admin:defaults:domain:llm_config"] = `{"provider":"deepseek"}`

	if _, ok := tc.GetDomain(ctx, "llm_config"); ok {
		t.Error("Expected degraded cache to report miss, not serve stale data")
	}
}

func TestSetDomain_WritesGranularKey(t *testing.T) {
	tc := newTestDefaultsCache()
	ctx := context.Background()

	tc.SetDomain(ctx, "capital_allocation", map[string]interface{}{
		"ultra_fast_percent": 10.0,
		"scalp_percent":      30.0,
	})

	if len(tc.store.setCalls) != 1 {
		t.Fatalf("Expected 1 Set call, got %d", len(tc.store.setCalls))
	}
	if tc.store.setCalls[0] != "admin:defaults:domain:capital_allocation" {
		t.Errorf("Unexpected key: %s", tc.store.setCalls[0])
	}

	payload, ok := tc.GetDomain(ctx, "capital_allocation")
	if !ok {
		t.Fatal("Expected round-trip cache hit")
	}
	if payload["scalp_percent"] != 30.0 {
		t.Errorf("Expected scalp_percent 30, got %v", payload["scalp_percent"])
	}
}

func TestSetDomain_RedisDown_LogsWarning(t *testing.T) {
	tc := newTestDefaultsCache()
	ctx := context.Background()

	tc.store.healthy = false
	tc.SetDomain(ctx, "mode_config", map[string]interface{}{"scalp.enabled": true})

	if len(tc.logger.warns) == 0 {
		t.Error("Expected a warning when caching fails")
	}
}

func TestInvalidateDomain_OnlyTouchesThatDomain(t *testing.T) {
	tc := newTestDefaultsCache()
	ctx := context.Background()

	tc.store.data["admin:defaults:domain:circuit_breaker"] = `{"enabled":true}`
	tc.store.data["admin:defaults:domain:llm_config"] = `{"provider":"deepseek"}`

	tc.InvalidateDomain(ctx, "circuit_breaker")

	if _, ok := tc.store.data["admin:defaults:domain:circuit_breaker"]; ok {
		t.Error("Expected circuit_breaker key to be deleted")
	}
	if _, ok := tc.store.data["admin:defaults:domain:llm_config"]; !ok {
		t.Error("llm_config key must survive another domain's invalidation")
	}
}

// ============================================================================
// FILE HASH CHANGE DETECTION
// ============================================================================

func TestCheckAndRefresh_FirstRun_FlushesAndStoresHash(t *testing.T) {
	tc := newTestDefaultsCache()
	ctx := context.Background()

	refreshed, err := tc.CheckAndRefreshIfChanged(ctx, map[string]string{"version": "2.1.0"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !refreshed {
		t.Error("Expected refresh on first run (no cached hash)")
	}
	if _, ok := tc.store.data[DefaultsHashKey()]; !ok {
		t.Error("Expected hash to be stored")
	}
}

func TestCheckAndRefresh_UnchangedFile_NoRefresh(t *testing.T) {
	tc := newTestDefaultsCache()
	ctx := context.Background()

	content := map[string]string{"version": "2.1.0"}
	if _, err := tc.CheckAndRefreshIfChanged(ctx, content); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	refreshed, err := tc.CheckAndRefreshIfChanged(ctx, content)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if refreshed {
		t.Error("Expected no refresh when file content is unchanged")
	}
}

func TestCheckAndRefresh_ChangedFile_FlushesDomainKeys(t *testing.T) {
	tc := newTestDefaultsCache()
	ctx := context.Background()

	if _, err := tc.CheckAndRefreshIfChanged(ctx, map[string]string{"version": "2.1.0"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	tc.store.data["admin:defaults:domain:llm_config"] = `{"provider":"deepseek"}`

	refreshed, err := tc.CheckAndRefreshIfChanged(ctx, map[string]string{"version": "2.2.0"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !refreshed {
		t.Error("Expected refresh when file content changed")
	}
	if _, ok := tc.store.data["admin:defaults:domain:llm_config"]; ok {
		t.Error("Expected domain keys to be flushed on file change")
	}
}

func TestCheckAndRefresh_RedisDown_ReturnsErrCacheUnavailable(t *testing.T) {
	tc := newTestDefaultsCache()
	ctx := context.Background()

	tc.store.healthy = false

	_, err := tc.CheckAndRefreshIfChanged(ctx, map[string]string{"version": "2.1.0"})
	if err != ErrCacheUnavailable {
		t.Errorf("Expected ErrCacheUnavailable, got: %v", err)
	}
}

func TestCalculateHash_Deterministic(t *testing.T) {
	a := calculateHash(map[string]int{"x": 1})
	b := calculateHash(map[string]int{"x": 1})
	c := calculateHash(map[string]int{"x": 2})

	if a != b {
		t.Error("Hash must be deterministic for identical content")
	}
	if a == c {
		t.Error("Hash must differ for different content")
	}
	if len(a) != 32 {
		t.Errorf("Expected 32-char md5 hex, got %d chars", len(a))
	}
}
