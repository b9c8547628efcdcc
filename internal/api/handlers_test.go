package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ginie-settings-service/internal/defaults"
	"ginie-settings-service/internal/events"
)

// fakeOverrideRepo implements defaults.OverrideRepository in memory.
type fakeOverrideRepo struct {
	overrides map[string]*defaults.Override
	chEvents  []*defaults.ChangeEvent
}

func newFakeOverrideRepo() *fakeOverrideRepo {
	return &fakeOverrideRepo{overrides: make(map[string]*defaults.Override)}
}

func (r *fakeOverrideRepo) GetOverride(ctx context.Context, domain string) (*defaults.Override, error) {
	return r.overrides[domain], nil
}

func (r *fakeOverrideRepo) SaveOverride(ctx context.Context, o *defaults.Override) error {
	r.overrides[o.Domain] = o
	return nil
}

func (r *fakeOverrideRepo) DeleteOverride(ctx context.Context, domain string) error {
	delete(r.overrides, domain)
	return nil
}

func (r *fakeOverrideRepo) InsertChangeEvent(ctx context.Context, ev *defaults.ChangeEvent) error {
	r.chEvents = append(r.chEvents, ev)
	return nil
}

func (r *fakeOverrideRepo) ListChangeEvents(ctx context.Context, domain string, limit int) ([]*defaults.ChangeEvent, error) {
	var out []*defaults.ChangeEvent
	for i := len(r.chEvents) - 1; i >= 0 && len(out) < limit; i-- {
		if domain == "" || r.chEvents[i].Domain == domain {
			out = append(out, r.chEvents[i])
		}
	}
	return out, nil
}

const testSettingsJSON = `{
	"metadata": {"version": "1.0.0", "schema_version": 1},
	"mode_configs": {
		"ultra_fast": {"mode_name": "ultra_fast", "enabled": true,
			"size": {"base_size_usd": 100, "max_size_usd": 200, "max_positions": 5, "leverage": 10}},
		"scalp": {"mode_name": "scalp", "enabled": true,
			"size": {"base_size_usd": 200, "max_size_usd": 400, "max_positions": 4, "leverage": 8}},
		"swing": {"mode_name": "swing", "enabled": true,
			"size": {"base_size_usd": 400, "max_size_usd": 750, "max_positions": 3, "leverage": 5}},
		"position": {"mode_name": "position", "enabled": true,
			"size": {"base_size_usd": 600, "max_size_usd": 1000, "max_positions": 2, "leverage": 3}}
	},
	"circuit_breaker": {
		"global": {
			"enabled": true,
			"max_loss_per_hour": 100,
			"max_daily_loss": 500,
			"max_consecutive_losses": 15,
			"cooldown_minutes": 30,
			"max_trades_per_minute": 10,
			"max_daily_trades": 1000
		}
	},
	"llm_config": {
		"global": {
			"enabled": true,
			"provider": "deepseek",
			"model": "deepseek-chat",
			"timeout_ms": 5000,
			"retry_count": 2,
			"cache_duration_sec": 300
		}
	},
	"capital_allocation": {
		"ultra_fast_percent": 20,
		"scalp_percent": 30,
		"swing_percent": 30,
		"position_percent": 20,
		"allow_dynamic_rebalance": true,
		"rebalance_threshold_pct": 10
	},
	"_settings_risk_index": {
		"high_risk_settings": ["circuit_breaker.max_daily_loss", "circuit_breaker.enabled"],
		"medium_risk_settings": ["llm_config.provider"]
	}
}`

func newTestServer(t *testing.T, repo defaults.OverrideRepository) *Server {
	t.Helper()

	file, err := defaults.Parse(strings.NewReader(testSettingsJSON))
	if err != nil {
		t.Fatalf("failed to parse test settings: %v", err)
	}
	if err := file.Validate(); err != nil {
		t.Fatalf("test settings invalid: %v", err)
	}

	store := defaults.NewStore(defaults.NewRegistry(), file, repo, nil, events.NewEventBus())
	return NewServer(ServerConfig{Port: 0, Host: "127.0.0.1", AllowedOrigins: "*"},
		nil, events.NewEventBus(), store, nil, nil)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w := doRequest(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "healthy" {
		t.Errorf("status = %v", body["status"])
	}
	if body["version"] != "1.0.0" {
		t.Errorf("version = %v, want 1.0.0", body["version"])
	}
}

func TestAuthStatus_Disabled(t *testing.T) {
	s := newTestServer(t, nil)
	w := doRequest(t, s, http.MethodGet, "/api/auth/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decodeBody(t, w); body["auth_enabled"] != false {
		t.Errorf("auth_enabled = %v, want false", body["auth_enabled"])
	}
}

func TestGetDomains(t *testing.T) {
	s := newTestServer(t, nil)
	w := doRequest(t, s, http.MethodGet, "/api/settings/domains", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	domains := data["domains"].([]interface{})
	if len(domains) != 6 {
		t.Fatalf("domain count = %d, want 6", len(domains))
	}
	first := domains[0].(map[string]interface{})
	if first["name"] != "mode_config" {
		t.Errorf("first domain = %v, want mode_config", first["name"])
	}
}

func TestGetDomainDefaults(t *testing.T) {
	s := newTestServer(t, nil)
	w := doRequest(t, s, http.MethodGet, "/api/settings/defaults/circuit_breaker", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["source"] != "file" {
		t.Errorf("source = %v, want file", body["source"])
	}
	if body["is_admin"] != true {
		t.Error("is_admin should be true when auth is disabled")
	}

	visible := body["visible"].([]interface{})
	if len(visible) == 0 {
		t.Fatal("expected visible settings")
	}
	for _, v := range visible {
		setting := v.(map[string]interface{})
		if setting["path"] == "max_daily_loss" && setting["risk_level"] != "high" {
			t.Errorf("max_daily_loss risk = %v, want high", setting["risk_level"])
		}
	}
}

func TestGetDomainDefaults_Unknown(t *testing.T) {
	s := newTestServer(t, nil)
	w := doRequest(t, s, http.MethodGet, "/api/settings/defaults/paper_trading", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestDiffDomain_BodyDrivesComparison(t *testing.T) {
	s := newTestServer(t, nil)

	current := `{
		"enabled": true,
		"max_loss_per_hour": 100,
		"max_daily_loss": 250,
		"max_consecutive_losses": 15,
		"cooldown_minutes": 30,
		"max_trades_per_minute": 10,
		"max_daily_trades": 1000
	}`
	w := doRequest(t, s, http.MethodPost, "/api/settings/diff/circuit_breaker", current)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp DiffResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.AllMatch {
		t.Error("all_match should be false")
	}
	if resp.TotalChanges != 1 {
		t.Errorf("total_changes = %d, want 1", resp.TotalChanges)
	}
	if resp.RiskCounts.High != 1 {
		t.Errorf("high risk count = %d, want 1", resp.RiskCounts.High)
	}

	found := false
	for _, d := range resp.Visible {
		if d.Path == "max_daily_loss" && d.Changed {
			found = true
		}
	}
	if !found {
		t.Error("max_daily_loss diff should be visible and changed")
	}
}

func TestDiffDomain_NoBodyNoStoredConfig(t *testing.T) {
	s := newTestServer(t, nil)
	w := doRequest(t, s, http.MethodPost, "/api/settings/diff/llm_config", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp DiffResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !resp.AllMatch {
		t.Error("defaults compared against themselves should all match")
	}
	if resp.TotalChanges != 0 {
		t.Errorf("total_changes = %d, want 0", resp.TotalChanges)
	}
}

func TestDiffDomain_Unknown(t *testing.T) {
	s := newTestServer(t, nil)
	w := doRequest(t, s, http.MethodPost, "/api/settings/diff/nope", "{}")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestAdminSaveDefaults(t *testing.T) {
	repo := newFakeOverrideRepo()
	s := newTestServer(t, repo)

	payload := `{"provider": "claude", "model": "claude-3-haiku"}`
	w := doRequest(t, s, http.MethodPut, "/api/admin/defaults/llm_config", payload)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var result defaults.SaveResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("save rejected: %s", result.Message)
	}
	if result.ChangesCount != 2 {
		t.Errorf("changes_count = %d, want 2", result.ChangesCount)
	}

	// Subsequent reads resolve through the override.
	w = doRequest(t, s, http.MethodGet, "/api/settings/defaults/llm_config", "")
	if body := decodeBody(t, w); body["source"] != "override" {
		t.Errorf("source after save = %v, want override", body["source"])
	}
}

func TestAdminSaveDefaults_InvalidAllocation(t *testing.T) {
	repo := newFakeOverrideRepo()
	s := newTestServer(t, repo)

	payload := `{
		"ultra_fast_percent": 40,
		"scalp_percent": 40,
		"swing_percent": 40,
		"position_percent": 40
	}`
	w := doRequest(t, s, http.MethodPut, "/api/admin/defaults/capital_allocation", payload)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
	if len(repo.overrides) != 0 {
		t.Error("invalid payload must not be persisted")
	}
}

func TestAdminSaveDefaults_UnknownDomain(t *testing.T) {
	s := newTestServer(t, newFakeOverrideRepo())
	w := doRequest(t, s, http.MethodPut, "/api/admin/defaults/nope", "{}")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestAdminResetDefaults(t *testing.T) {
	repo := newFakeOverrideRepo()
	repo.overrides["llm_config"] = &defaults.Override{
		Domain:  "llm_config",
		Payload: map[string]interface{}{"provider": "openai"},
		Version: 1,
	}
	s := newTestServer(t, repo)

	w := doRequest(t, s, http.MethodPost, "/api/admin/defaults/llm_config/reset", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if _, exists := repo.overrides["llm_config"]; exists {
		t.Error("override should be removed")
	}
}

func TestAdminAuditTrail(t *testing.T) {
	repo := newFakeOverrideRepo()
	repo.chEvents = append(repo.chEvents, &defaults.ChangeEvent{
		Domain: "llm_config",
		Action: "update",
	})
	s := newTestServer(t, repo)

	w := doRequest(t, s, http.MethodGet, "/api/admin/defaults/audit?domain=llm_config", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	if data["count"] != float64(1) {
		t.Errorf("count = %v, want 1", data["count"])
	}
}

func TestSaveUserConfig_NoDatabase(t *testing.T) {
	s := newTestServer(t, nil)
	w := doRequest(t, s, http.MethodPut, "/api/settings/user/llm_config", `{"provider": "claude"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503: %s", w.Code, w.Body.String())
	}
}
