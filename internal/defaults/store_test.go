package defaults

import (
	"context"
	"fmt"
	"testing"

	"ginie-settings-service/internal/events"
)

// fakeOverrideRepo is an in-memory OverrideRepository.
type fakeOverrideRepo struct {
	overrides map[string]*Override
	chEvents  []*ChangeEvent
	getErr    error
	saveErr   error
}

func newFakeOverrideRepo() *fakeOverrideRepo {
	return &fakeOverrideRepo{overrides: make(map[string]*Override)}
}

func (r *fakeOverrideRepo) GetOverride(ctx context.Context, domain string) (*Override, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.overrides[domain], nil
}

func (r *fakeOverrideRepo) SaveOverride(ctx context.Context, o *Override) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.overrides[o.Domain] = o
	return nil
}

func (r *fakeOverrideRepo) DeleteOverride(ctx context.Context, domain string) error {
	delete(r.overrides, domain)
	return nil
}

func (r *fakeOverrideRepo) InsertChangeEvent(ctx context.Context, ev *ChangeEvent) error {
	r.chEvents = append(r.chEvents, ev)
	return nil
}

func (r *fakeOverrideRepo) ListChangeEvents(ctx context.Context, domain string, limit int) ([]*ChangeEvent, error) {
	var out []*ChangeEvent
	for i := len(r.chEvents) - 1; i >= 0 && len(out) < limit; i-- {
		if domain == "" || r.chEvents[i].Domain == domain {
			out = append(out, r.chEvents[i])
		}
	}
	return out, nil
}

// fakeDomainCache is an in-memory DomainCache recording invalidations.
type fakeDomainCache struct {
	entries     map[string]map[string]interface{}
	invalidated []string
}

func newFakeDomainCache() *fakeDomainCache {
	return &fakeDomainCache{entries: make(map[string]map[string]interface{})}
}

func (c *fakeDomainCache) GetDomain(ctx context.Context, domain string) (map[string]interface{}, bool) {
	p, ok := c.entries[domain]
	return p, ok
}

func (c *fakeDomainCache) SetDomain(ctx context.Context, domain string, payload map[string]interface{}) {
	c.entries[domain] = payload
}

func (c *fakeDomainCache) InvalidateDomain(ctx context.Context, domain string) {
	delete(c.entries, domain)
	c.invalidated = append(c.invalidated, domain)
}

func leafValue(t *testing.T, store *Store, domain, path string) interface{} {
	t.Helper()
	payload, _, err := store.EffectivePayload(context.Background(), domain)
	if err != nil {
		t.Fatalf("EffectivePayload(%s) failed: %v", domain, err)
	}
	return payload[path]
}

func TestEffectiveLeaves_FileOnly(t *testing.T) {
	store := NewStore(NewRegistry(), testFile(), nil, nil, nil)

	leaves, source, err := store.EffectiveLeaves(context.Background(), DomainCircuitBreaker)
	if err != nil {
		t.Fatalf("EffectiveLeaves failed: %v", err)
	}
	if source != "file" {
		t.Errorf("source = %q, want file", source)
	}
	if len(leaves) == 0 {
		t.Fatal("expected leaves from the file")
	}
}

func TestEffectiveLeaves_UnknownDomain(t *testing.T) {
	store := NewStore(NewRegistry(), testFile(), nil, nil, nil)
	if _, _, err := store.EffectiveLeaves(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown domain")
	}
}

func TestEffectiveLeaves_OverrideWins(t *testing.T) {
	repo := newFakeOverrideRepo()
	repo.overrides[DomainCircuitBreaker] = &Override{
		Domain:  DomainCircuitBreaker,
		Payload: map[string]interface{}{"max_daily_loss": 250.0},
		Version: 3,
	}
	store := NewStore(NewRegistry(), testFile(), repo, nil, nil)

	leaves, source, err := store.EffectiveLeaves(context.Background(), DomainCircuitBreaker)
	if err != nil {
		t.Fatalf("EffectiveLeaves failed: %v", err)
	}
	if source != "override" {
		t.Errorf("source = %q, want override", source)
	}

	var daily, hourly interface{}
	for _, leaf := range leaves {
		switch leaf.Path {
		case "max_daily_loss":
			daily = leaf.Value
		case "max_loss_per_hour":
			hourly = leaf.Value
		}
	}
	if daily != 250.0 {
		t.Errorf("max_daily_loss = %v, want overridden 250", daily)
	}
	// Paths the override does not mention keep their file values.
	if fmt.Sprint(hourly) != "100" {
		t.Errorf("max_loss_per_hour = %v, want file value 100", hourly)
	}
}

func TestEffectiveLeaves_CacheHitSkipsRepo(t *testing.T) {
	repo := newFakeOverrideRepo()
	repo.getErr = fmt.Errorf("repo should not be consulted on a cache hit")
	cache := newFakeDomainCache()
	cache.entries[DomainLLMConfig] = map[string]interface{}{"provider": "claude"}

	store := NewStore(NewRegistry(), testFile(), repo, cache, nil)

	_, source, err := store.EffectiveLeaves(context.Background(), DomainLLMConfig)
	if err != nil {
		t.Fatalf("EffectiveLeaves failed: %v", err)
	}
	if source != "cache" {
		t.Errorf("source = %q, want cache", source)
	}
	if v := leafValue(t, store, DomainLLMConfig, "provider"); v != "claude" {
		t.Errorf("provider = %v, want cached claude", v)
	}
}

func TestEffectiveLeaves_RepoErrorFallsBackToFile(t *testing.T) {
	repo := newFakeOverrideRepo()
	repo.getErr = fmt.Errorf("connection refused")
	store := NewStore(NewRegistry(), testFile(), repo, nil, nil)

	_, source, err := store.EffectiveLeaves(context.Background(), DomainCircuitBreaker)
	if err != nil {
		t.Fatalf("EffectiveLeaves should not fail on repo error: %v", err)
	}
	if source != "file" {
		t.Errorf("source = %q, want file fallback", source)
	}
}

func TestSave_PersistsAndInvalidates(t *testing.T) {
	repo := newFakeOverrideRepo()
	cache := newFakeDomainCache()
	bus := events.NewEventBus()
	store := NewStore(NewRegistry(), testFile(), repo, cache, bus)

	payload, _, err := store.EffectivePayload(context.Background(), DomainCircuitBreaker)
	if err != nil {
		t.Fatalf("EffectivePayload failed: %v", err)
	}
	payload["max_daily_loss"] = 750.0

	result, err := store.Save(context.Background(), DomainCircuitBreaker, payload, "admin")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("Save rejected: %s", result.Message)
	}
	if result.ChangesCount != 1 {
		t.Errorf("ChangesCount = %d, want 1", result.ChangesCount)
	}
	if len(result.ChangedPaths) != 1 || result.ChangedPaths[0] != "max_daily_loss" {
		t.Errorf("ChangedPaths = %v, want [max_daily_loss]", result.ChangedPaths)
	}

	saved := repo.overrides[DomainCircuitBreaker]
	if saved == nil {
		t.Fatal("override was not persisted")
	}
	if saved.Version != 1 {
		t.Errorf("first save version = %d, want 1", saved.Version)
	}
	if len(repo.chEvents) != 1 || repo.chEvents[0].Action != "update" {
		t.Errorf("expected one update change event, got %+v", repo.chEvents)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != DomainCircuitBreaker {
		t.Errorf("cache invalidations = %v", cache.invalidated)
	}
}

func TestSave_VersionIncrements(t *testing.T) {
	repo := newFakeOverrideRepo()
	store := NewStore(NewRegistry(), testFile(), repo, nil, nil)

	payload, _, _ := store.EffectivePayload(context.Background(), DomainLLMConfig)
	payload["timeout_ms"] = 8000.0

	if _, err := store.Save(context.Background(), DomainLLMConfig, payload, "admin"); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	payload["timeout_ms"] = 9000.0
	if _, err := store.Save(context.Background(), DomainLLMConfig, payload, "admin"); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	if v := repo.overrides[DomainLLMConfig].Version; v != 2 {
		t.Errorf("version after second save = %d, want 2", v)
	}
}

func TestSave_InvalidCapitalAllocationRejected(t *testing.T) {
	repo := newFakeOverrideRepo()
	store := NewStore(NewRegistry(), testFile(), repo, nil, nil)

	payload := map[string]interface{}{
		"ultra_fast_percent": 50.0,
		"scalp_percent":      50.0,
		"swing_percent":      50.0,
		"position_percent":   50.0,
	}
	result, err := store.Save(context.Background(), DomainCapitalAllocation, payload, "admin")
	if err != nil {
		t.Fatalf("Save returned error instead of rejection: %v", err)
	}
	if result.Success {
		t.Fatal("expected validation rejection")
	}
	if len(repo.overrides) != 0 {
		t.Error("rejected payload must not be persisted")
	}
	if len(repo.chEvents) != 0 {
		t.Error("rejected payload must not record a change event")
	}
}

func TestSave_WithoutRepo(t *testing.T) {
	store := NewStore(NewRegistry(), testFile(), nil, nil, nil)
	if _, err := store.Save(context.Background(), DomainLLMConfig, map[string]interface{}{}, "admin"); err == nil {
		t.Fatal("expected error when persistence is not configured")
	}
}

func TestReset_RemovesOverride(t *testing.T) {
	repo := newFakeOverrideRepo()
	repo.overrides[DomainLLMConfig] = &Override{
		Domain:  DomainLLMConfig,
		Payload: map[string]interface{}{"provider": "openai"},
		Version: 2,
	}
	cache := newFakeDomainCache()
	store := NewStore(NewRegistry(), testFile(), repo, cache, nil)

	result, err := store.Reset(context.Background(), DomainLLMConfig, "admin")
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("Reset rejected: %s", result.Message)
	}
	if _, exists := repo.overrides[DomainLLMConfig]; exists {
		t.Error("override should be deleted")
	}
	if len(repo.chEvents) != 1 || repo.chEvents[0].Action != "reset" {
		t.Errorf("expected one reset change event, got %+v", repo.chEvents)
	}

	if v := leafValue(t, store, DomainLLMConfig, "provider"); v != "deepseek" {
		t.Errorf("provider after reset = %v, want file value deepseek", v)
	}
}

func TestAuditTrail_LimitClamp(t *testing.T) {
	repo := newFakeOverrideRepo()
	store := NewStore(NewRegistry(), testFile(), repo, nil, nil)

	for i := 0; i < 60; i++ {
		repo.chEvents = append(repo.chEvents, &ChangeEvent{
			Domain: DomainLLMConfig,
			Action: "update",
		})
	}

	evs, err := store.AuditTrail(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("AuditTrail failed: %v", err)
	}
	if len(evs) != 50 {
		t.Errorf("limit 0 should clamp to 50, got %d", len(evs))
	}
}

func TestReplaceFile(t *testing.T) {
	store := NewStore(NewRegistry(), testFile(), nil, nil, nil)

	next := testFile()
	next.Metadata.Version = "2.0.0"
	next.LLMConfig.Global.Provider = "claude"
	store.ReplaceFile(next)

	if v := leafValue(t, store, DomainLLMConfig, "provider"); v != "claude" {
		t.Errorf("provider after file swap = %v, want claude", v)
	}
}
