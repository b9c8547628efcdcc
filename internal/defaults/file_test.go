package defaults

import (
	"strings"
	"testing"
)

// testFile builds a minimal valid settings file shared across the package
// tests. All four modes are present and capital allocation sums to 100.
func testFile() *SettingsFile {
	modes := make(map[string]*ModeConfig, len(TradingModes))
	for _, mode := range TradingModes {
		modes[mode] = &ModeConfig{
			ModeName: mode,
			Enabled:  true,
			Confidence: &ConfidenceGroup{
				MinConfidence:   60,
				HighConfidence:  75,
				UltraConfidence: 88,
			},
			Size: &SizeGroup{
				BaseSizeUSD:  100,
				MaxSizeUSD:   200,
				MaxPositions: 5,
				Leverage:     10,
			},
		}
	}

	return &SettingsFile{
		Metadata: Metadata{
			Version:       "1.0.0",
			SchemaVersion: 1,
		},
		GlobalTrading: GlobalTradingDefaults{
			RiskLevel:        "moderate",
			MaxUSDAllocation: 1000,
		},
		ModeConfigs: modes,
		CircuitBreaker: CircuitBreakerSection{
			Global: GlobalCircuitBreakerConfig{
				Enabled:        true,
				MaxDailyLoss:   500,
				MaxLossPerHour: 100,
			},
		},
		LLMConfig: LLMConfigSection{
			Global: GlobalLLMConfig{
				Enabled:   true,
				Provider:  "deepseek",
				Model:     "deepseek-chat",
				TimeoutMS: 5000,
			},
		},
		CapitalAllocation: CapitalAllocation{
			UltraFastPercent: 25,
			ScalpPercent:     25,
			SwingPercent:     25,
			PositionPercent:  25,
		},
		RiskIndex: RiskIndex{
			HighRiskSettings:   []string{"circuit_breaker.max_daily_loss"},
			MediumRiskSettings: []string{"llm_config.retry_count"},
		},
	}
}

func TestParse(t *testing.T) {
	raw := `{
		"metadata": {"version": "1.2.0", "schema_version": 2},
		"mode_configs": {
			"ultra_fast": {"mode_name": "ultra_fast", "enabled": true},
			"scalp": {"mode_name": "scalp", "enabled": true},
			"swing": {"mode_name": "swing", "enabled": false},
			"position": {"mode_name": "position", "enabled": true}
		},
		"capital_allocation": {
			"ultra_fast_percent": 20,
			"scalp_percent": 30,
			"swing_percent": 30,
			"position_percent": 20
		},
		"_settings_risk_index": {
			"high_risk_settings": ["size.leverage"]
		}
	}`

	sf, err := Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if sf.Metadata.Version != "1.2.0" {
		t.Errorf("version = %q, want 1.2.0", sf.Metadata.Version)
	}
	if len(sf.ModeConfigs) != 4 {
		t.Errorf("mode count = %d, want 4", len(sf.ModeConfigs))
	}
	if sf.ModeConfigs["swing"].Enabled {
		t.Error("swing should be disabled")
	}
	if err := sf.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	if _, err := Parse(strings.NewReader("{not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate_MissingVersion(t *testing.T) {
	sf := testFile()
	sf.Metadata.Version = ""
	if err := sf.Validate(); err == nil {
		t.Fatal("expected error for missing version")
	}
}

func TestValidate_MissingMode(t *testing.T) {
	sf := testFile()
	delete(sf.ModeConfigs, "swing")
	err := sf.Validate()
	if err == nil {
		t.Fatal("expected error for missing mode")
	}
	if !strings.Contains(err.Error(), "swing") {
		t.Errorf("error should name the missing mode, got: %v", err)
	}
}

func TestValidate_CapitalAllocationBand(t *testing.T) {
	tests := []struct {
		name      string
		ultraFast float64
		wantErr   bool
	}{
		{"exact 100", 25, false},
		{"99 within band", 24, false},
		{"101 within band", 26, false},
		{"98 below band", 23, true},
		{"102 above band", 27, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sf := testFile()
			sf.CapitalAllocation.UltraFastPercent = tt.ultraFast
			err := sf.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDeepCopy_Isolation(t *testing.T) {
	sf := testFile()
	clone := sf.DeepCopy()
	if clone == nil {
		t.Fatal("DeepCopy returned nil")
	}

	clone.ModeConfigs["scalp"].Size.Leverage = 99
	if sf.ModeConfigs["scalp"].Size.Leverage == 99 {
		t.Error("mutation of the copy leaked into the original")
	}
}
