package defaults

import (
	"strings"
	"testing"

	"ginie-settings-service/internal/reconcile"
)

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	names := r.Names()
	want := []string{
		DomainModeConfig,
		DomainCircuitBreaker,
		DomainLLMConfig,
		DomainCapitalAllocation,
		DomainScalpReentry,
		DomainSafetySettings,
	}
	if len(names) != len(want) {
		t.Fatalf("got %d domains, want %d", len(names), len(want))
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("names[%d] = %q, want %q", i, names[i], name)
		}
	}
}

func TestRegistry_LookupUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Lookup("paper_trading"); err == nil {
		t.Fatal("expected error for unknown domain")
	}
	if r.Has("paper_trading") {
		t.Error("Has should be false for unknown domain")
	}
}

func TestRegistry_ExtractCircuitBreaker(t *testing.T) {
	r := NewRegistry()
	d, err := r.Lookup(DomainCircuitBreaker)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	leaves := reconcile.FlattenValue(d.Extract(testFile()))
	found := false
	for _, leaf := range leaves {
		if leaf.Path == "max_daily_loss" {
			found = true
		}
	}
	if !found {
		t.Error("circuit breaker extract should expose max_daily_loss")
	}
}

// Mode config visibility expands the group order across all four modes, so
// the curated section starts with ultra_fast and ends with position.
func TestRegistry_ModeConfigClassification(t *testing.T) {
	r := NewRegistry()
	leaves := reconcile.FlattenValue(testFile().ModeConfigs)

	cls := r.Rules().Classify(leaves, DomainModeConfig)
	if len(cls.Visible) == 0 {
		t.Fatal("expected visible mode config leaves")
	}

	// mode_name is not a curated group, so those four leaves stay hidden.
	for _, leaf := range cls.Hidden {
		if !strings.HasSuffix(leaf.Path, ".mode_name") {
			t.Errorf("unexpected hidden leaf %q", leaf.Path)
		}
	}
	if len(cls.Hidden) != len(TradingModes) {
		t.Errorf("hidden count = %d, want %d", len(cls.Hidden), len(TradingModes))
	}

	firstMode := cls.Visible[0].Path[:10]
	if firstMode != "ultra_fast" {
		t.Errorf("visible order should start with ultra_fast, got %q", cls.Visible[0].Path)
	}
}

func TestRegistry_SafetySettingsPrefixes(t *testing.T) {
	r := NewRegistry()
	prefixes := r.Rules().Prefixes(DomainSafetySettings)
	if len(prefixes) != len(TradingModes) {
		t.Fatalf("got %d prefixes, want %d", len(prefixes), len(TradingModes))
	}
}
