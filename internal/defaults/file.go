// Package defaults owns the default-settings.json file model, the domain
// registry, and the store that resolves a domain's effective defaults across
// cache, database overrides, and the file.
//
// default-settings.json is the single source of truth for shipped defaults.
// It is template-only: runtime settings always come from per-user storage,
// and this file feeds new-user seeding, the "Load Defaults" feature, and the
// admin defaults editor.
package defaults

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"ginie-settings-service/internal/logging"
)

// SettingsFile represents the complete default-settings.json structure.
type SettingsFile struct {
	Metadata          Metadata               `json:"metadata"`
	GlobalTrading     GlobalTradingDefaults  `json:"global_trading"`
	ModeConfigs       map[string]*ModeConfig `json:"mode_configs"`
	CircuitBreaker    CircuitBreakerSection  `json:"circuit_breaker"`
	LLMConfig         LLMConfigSection       `json:"llm_config"`
	CapitalAllocation CapitalAllocation      `json:"capital_allocation"`
	ScalpReentry      *ScalpReentryConfig    `json:"scalp_reentry_config,omitempty"`
	SafetySettings    *SafetySettingsAll     `json:"safety_settings,omitempty"`
	RiskIndex         RiskIndex              `json:"_settings_risk_index"`
}

// Metadata holds version and update information for the defaults file.
type Metadata struct {
	Version       string `json:"version"`
	SchemaVersion int    `json:"schema_version"`
	LastUpdated   string `json:"last_updated"`
	UpdatedBy     string `json:"updated_by"`
	Description   string `json:"description"`
}

// GlobalTradingDefaults holds cross-mode trading settings.
type GlobalTradingDefaults struct {
	RiskLevel               string  `json:"risk_level"`
	MaxUSDAllocation        float64 `json:"max_usd_allocation"`
	ProfitReinvestPercent   float64 `json:"profit_reinvest_percent"`
	ProfitReinvestRiskLevel string  `json:"profit_reinvest_risk_level"`
}

// CircuitBreakerSection wraps the global circuit breaker defaults with their
// risk annotations.
type CircuitBreakerSection struct {
	Global   GlobalCircuitBreakerConfig `json:"global"`
	RiskInfo map[string]RiskInfo        `json:"_risk_info,omitempty"`
}

// GlobalCircuitBreakerConfig holds the account-wide circuit breaker limits.
type GlobalCircuitBreakerConfig struct {
	Enabled              bool    `json:"enabled"`
	MaxLossPerHour       float64 `json:"max_loss_per_hour"`
	MaxDailyLoss         float64 `json:"max_daily_loss"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	CooldownMinutes      int     `json:"cooldown_minutes"`
	MaxTradesPerMinute   int     `json:"max_trades_per_minute"`
	MaxDailyTrades       int     `json:"max_daily_trades"`
}

// LLMConfigSection wraps the global LLM provider defaults.
type LLMConfigSection struct {
	Global   GlobalLLMConfig     `json:"global"`
	RiskInfo map[string]RiskInfo `json:"_risk_info,omitempty"`
}

// GlobalLLMConfig holds the LLM provider configuration.
type GlobalLLMConfig struct {
	Enabled          bool   `json:"enabled"`
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	FallbackProvider string `json:"fallback_provider"`
	FallbackModel    string `json:"fallback_model"`
	TimeoutMS        int    `json:"timeout_ms"`
	RetryCount       int    `json:"retry_count"`
	CacheDurationSec int    `json:"cache_duration_sec"`
}

// CapitalAllocation holds per-mode capital percentages. The four percent
// fields must sum to 100 within a 1% tolerance band.
type CapitalAllocation struct {
	UltraFastPercent      float64 `json:"ultra_fast_percent"`
	ScalpPercent          float64 `json:"scalp_percent"`
	SwingPercent          float64 `json:"swing_percent"`
	PositionPercent       float64 `json:"position_percent"`
	AllowDynamicRebalance bool    `json:"allow_dynamic_rebalance"`
	RebalanceThresholdPct float64 `json:"rebalance_threshold_pct"`
}

// ScalpReentryConfig holds the scalp re-entry position optimization settings.
// Scalp re-entry is NOT a trading mode - it is stored separately.
type ScalpReentryConfig struct {
	Enabled               bool      `json:"enabled"`
	TP1Percent            float64   `json:"tp1_percent"`
	TP2Percent            float64   `json:"tp2_percent"`
	TP3Percent            float64   `json:"tp3_percent"`
	TPAllocation          []float64 `json:"tp_allocation"`
	DCAEnabled            bool      `json:"dca_enabled"`
	DCAMaxEntries         int       `json:"dca_max_entries"`
	DCASpacingPercent     float64   `json:"dca_spacing_percent"`
	ReentryEnabled        bool      `json:"reentry_enabled"`
	ReentryMaxAttempts    int       `json:"reentry_max_attempts"`
	ReentryCooldownSec    int       `json:"reentry_cooldown_sec"`
	ReentryMinConfidence  float64   `json:"reentry_min_confidence"`
	HedgingEnabled        bool      `json:"hedging_enabled"`
	HedgeMaxSizePercent   float64   `json:"hedge_max_size_percent"`
	BreakevenAfterTP1     bool      `json:"breakeven_after_tp1"`
	TrailingAfterTP2      bool      `json:"trailing_after_tp2"`
	TrailingStopPercent   float64   `json:"trailing_stop_percent"`
}

// SafetySettingsAll contains per-mode safety settings for all trading modes.
type SafetySettingsAll struct {
	UltraFast *SafetySettingsMode `json:"ultra_fast,omitempty"`
	Scalp     *SafetySettingsMode `json:"scalp,omitempty"`
	Swing     *SafetySettingsMode `json:"swing,omitempty"`
	Position  *SafetySettingsMode `json:"position,omitempty"`
}

// SafetySettingsMode holds one mode's rate limits and monitors.
type SafetySettingsMode struct {
	MaxTradesPerMinute     int     `json:"max_trades_per_minute"`
	MaxTradesPerHour       int     `json:"max_trades_per_hour"`
	MaxTradesPerDay        int     `json:"max_trades_per_day"`
	EnableProfitMonitor    bool    `json:"enable_profit_monitor"`
	ProfitWindowMinutes    int     `json:"profit_window_minutes"`
	MaxLossPercentInWindow float64 `json:"max_loss_percent_in_window"`
	PauseCooldownMinutes   int     `json:"pause_cooldown_minutes"`
	EnableWinRateMonitor   bool    `json:"enable_win_rate_monitor"`
	WinRateSampleSize      int     `json:"win_rate_sample_size"`
	MinWinRateThreshold    float64 `json:"min_win_rate_threshold"`
	WinRateCooldownMinutes int     `json:"win_rate_cooldown_minutes"`
}

// RiskIndex categorizes setting paths by risk level. Entries match paths the
// same way visibility prefixes do: exact or dotted-ancestor.
type RiskIndex struct {
	HighRiskSettings   []string `json:"high_risk_settings"`
	MediumRiskSettings []string `json:"medium_risk_settings"`
	LowRiskSettings    []string `json:"low_risk_settings"`
	RiskInfo           map[string]RiskInfo `json:"risk_info,omitempty"`
}

// RiskInfo provides display annotations for a setting.
type RiskInfo struct {
	Impact         string `json:"impact"`
	Recommendation string `json:"recommendation"`
}

// ====== SINGLETON LOADER ======

const defaultSettingsFile = "default-settings.json"

var (
	loaded     *SettingsFile
	loadedOnce sync.Once
	loadedErr  error
	loadedPath = defaultSettingsFile
)

// Load reads default-settings.json once and caches the parsed result for the
// process lifetime. Reload resets the singleton.
func Load() (*SettingsFile, error) {
	loadedOnce.Do(func() {
		loaded, loadedErr = readFile(loadedPath)
		if loadedErr == nil {
			logging.Default().WithComponent("defaults").Info("Loaded default settings",
				"version", loaded.Metadata.Version,
				"schema_version", loaded.Metadata.SchemaVersion)
		}
	})
	return loaded, loadedErr
}

// SetPath overrides the defaults file location before first Load. Used by the
// CLI and tests; has no effect once the singleton is loaded.
func SetPath(path string) {
	loadedPath = path
}

// Reload forces a re-read of the defaults file from disk. Used by admin sync
// after the file changes, and validates the new content immediately.
func Reload() error {
	loadedOnce = sync.Once{}
	loaded = nil
	loadedErr = nil

	if _, err := Load(); err != nil {
		return fmt.Errorf("failed to reload default settings: %w", err)
	}
	return nil
}

func readFile(path string) (*SettingsFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a defaults file from a reader.
func Parse(r io.Reader) (*SettingsFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read default settings: %w", err)
	}
	sf := &SettingsFile{}
	if err := json.Unmarshal(data, sf); err != nil {
		return nil, fmt.Errorf("failed to parse default settings: %w", err)
	}
	return sf, nil
}

// Validate checks the structural invariants of a defaults file: metadata is
// present, all four trading modes exist, and capital allocation is in band.
func (sf *SettingsFile) Validate() error {
	if sf.Metadata.Version == "" {
		return fmt.Errorf("metadata.version is required")
	}
	if sf.Metadata.SchemaVersion < 1 {
		return fmt.Errorf("metadata.schema_version must be >= 1")
	}

	if len(sf.ModeConfigs) == 0 {
		return fmt.Errorf("mode_configs is empty - at least one mode must be defined")
	}
	for _, mode := range TradingModes {
		if _, exists := sf.ModeConfigs[mode]; !exists {
			return fmt.Errorf("mode_configs.%s is required", mode)
		}
	}

	total := sf.CapitalAllocation.UltraFastPercent +
		sf.CapitalAllocation.ScalpPercent +
		sf.CapitalAllocation.SwingPercent +
		sf.CapitalAllocation.PositionPercent
	if total < 99.0 || total > 101.0 {
		return fmt.Errorf("capital_allocation percentages must sum to 100%% (got %.1f%%)", total)
	}

	return nil
}

// DeepCopy clones a settings file through JSON round-tripping so cached
// defaults are never mutated by callers.
func (sf *SettingsFile) DeepCopy() *SettingsFile {
	data, err := json.Marshal(sf)
	if err != nil {
		return nil
	}
	var dst SettingsFile
	if err := json.Unmarshal(data, &dst); err != nil {
		return nil
	}
	return &dst
}
