package defaults

import "testing"

func TestRiskLevel_IndexedPaths(t *testing.T) {
	sf := testFile()

	// Index entries are domain-qualified; bare leaf paths resolve through
	// the qualified form.
	cb := sf.RiskMetaFor(DomainCircuitBreaker)
	if got := cb.RiskLevel("max_daily_loss"); got != "high" {
		t.Errorf("max_daily_loss risk = %q, want high", got)
	}

	llm := sf.RiskMetaFor(DomainLLMConfig)
	if got := llm.RiskLevel("retry_count"); got != "medium" {
		t.Errorf("retry_count risk = %q, want medium", got)
	}
}

func TestRiskLevel_ModeGroupTiers(t *testing.T) {
	sf := testFile()
	meta := sf.RiskMetaFor(DomainModeConfig)

	if got := meta.RiskLevel("ultra_fast.size.leverage"); got != "high" {
		t.Errorf("leverage risk = %q, want high", got)
	}
	if got := meta.RiskLevel("swing.sltp.take_profit_percent"); got != "medium" {
		t.Errorf("take_profit risk = %q, want medium", got)
	}
	if got := meta.RiskLevel("scalp.stale_release.enabled"); got != "low" {
		t.Errorf("stale_release risk = %q, want low", got)
	}
}

func TestRiskLevel_GroupFallback(t *testing.T) {
	sf := testFile()
	sf.RiskIndex = RiskIndex{} // no explicit index, group tiers apply

	meta := sf.RiskMetaFor(DomainCapitalAllocation)
	if got := meta.RiskLevel("scalp_percent"); got != "high" {
		t.Errorf("allocation percent risk = %q, want high", got)
	}
	if got := meta.RiskLevel("allow_dynamic_rebalance"); got != "medium" {
		t.Errorf("rebalance flag risk = %q, want medium", got)
	}
}

func TestAnnotations_ExplicitInfoWins(t *testing.T) {
	sf := testFile()
	sf.RiskIndex.RiskInfo = map[string]RiskInfo{
		"ultra_fast.size.leverage": {
			Impact:         "Multiplies gains and losses",
			Recommendation: "Stay at or below 10x",
		},
	}

	meta := sf.RiskMetaFor(DomainModeConfig)
	impact, rec := meta.Annotations("ultra_fast.size.leverage")
	if impact != "Multiplies gains and losses" {
		t.Errorf("impact = %q", impact)
	}
	if rec != "Stay at or below 10x" {
		t.Errorf("recommendation = %q", rec)
	}
}

func TestAnnotations_HighRiskFallbackText(t *testing.T) {
	sf := testFile()
	meta := sf.RiskMetaFor(DomainModeConfig)

	impact, _ := meta.Annotations("scalp.size.leverage")
	if impact == "" {
		t.Error("high risk path should carry fallback impact text")
	}
}
