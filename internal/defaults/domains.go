package defaults

import (
	"fmt"

	"ginie-settings-service/internal/reconcile"
)

// Domain names recognized by the service. Each maps to one section of the
// defaults file and is edited, compared, and reset as a unit.
const (
	DomainModeConfig        = "mode_config"
	DomainCircuitBreaker    = "circuit_breaker"
	DomainLLMConfig         = "llm_config"
	DomainCapitalAllocation = "capital_allocation"
	DomainScalpReentry      = "scalp_reentry"
	DomainSafetySettings    = "safety_settings"
)

// ModeGroupKeys lists the per-mode setting groups in the order the dashboard
// renders them. Paths outside these groups stay in the advanced section.
var ModeGroupKeys = []string{
	"enabled",
	"timeframe",
	"confidence",
	"size",
	"sltp",
	"risk",
	"circuit_breaker",
	"hedge",
	"averaging",
	"stale_release",
}

// Domain describes one editable configuration domain: where its defaults live
// in the settings file and which flattened paths the main dashboard surfaces.
type Domain struct {
	Name            string
	Label           string
	Description     string
	VisiblePrefixes []string
	Extract         func(*SettingsFile) interface{}
}

// Registry is the immutable set of domains loaded at startup.
type Registry struct {
	domains []Domain
	byName  map[string]*Domain
	rules   *reconcile.VisibilityRules
}

// NewRegistry builds the standard domain registry.
func NewRegistry() *Registry {
	domains := []Domain{
		{
			Name:            DomainModeConfig,
			Label:           "Mode Configuration",
			Description:     "Per-mode trading defaults for ultra_fast, scalp, swing and position",
			VisiblePrefixes: modeConfigPrefixes(),
			Extract: func(sf *SettingsFile) interface{} {
				return sf.ModeConfigs
			},
		},
		{
			Name:        DomainCircuitBreaker,
			Label:       "Global Circuit Breaker",
			Description: "Account-wide loss limits and trade rate caps",
			VisiblePrefixes: []string{
				"enabled",
				"max_loss_per_hour",
				"max_daily_loss",
				"max_consecutive_losses",
				"cooldown_minutes",
				"max_trades_per_minute",
				"max_daily_trades",
			},
			Extract: func(sf *SettingsFile) interface{} {
				return sf.CircuitBreaker.Global
			},
		},
		{
			Name:        DomainLLMConfig,
			Label:       "LLM Configuration",
			Description: "LLM provider, model and fallback defaults",
			VisiblePrefixes: []string{
				"enabled",
				"provider",
				"model",
				"fallback_provider",
				"fallback_model",
				"timeout_ms",
			},
			Extract: func(sf *SettingsFile) interface{} {
				return sf.LLMConfig.Global
			},
		},
		{
			Name:        DomainCapitalAllocation,
			Label:       "Capital Allocation",
			Description: "Per-mode capital split (must sum to 100%)",
			VisiblePrefixes: []string{
				"ultra_fast_percent",
				"scalp_percent",
				"swing_percent",
				"position_percent",
				"allow_dynamic_rebalance",
			},
			Extract: func(sf *SettingsFile) interface{} {
				return sf.CapitalAllocation
			},
		},
		{
			Name:        DomainScalpReentry,
			Label:       "Scalp Re-Entry",
			Description: "Scalp position optimization: TP ladder, DCA and re-entry",
			VisiblePrefixes: []string{
				"enabled",
				"tp1_percent",
				"tp2_percent",
				"tp3_percent",
				"tp_allocation",
				"dca_enabled",
				"dca_max_entries",
				"dca_spacing_percent",
				"reentry_enabled",
				"reentry_max_attempts",
			},
			Extract: func(sf *SettingsFile) interface{} {
				if sf.ScalpReentry == nil {
					return ScalpReentryConfig{}
				}
				return *sf.ScalpReentry
			},
		},
		{
			Name:            DomainSafetySettings,
			Label:           "Safety Settings",
			Description:     "Per-mode rate limits, profit monitor and win rate monitor",
			VisiblePrefixes: TradingModes,
			Extract: func(sf *SettingsFile) interface{} {
				if sf.SafetySettings == nil {
					return SafetySettingsAll{}
				}
				return *sf.SafetySettings
			},
		},
	}

	byName := make(map[string]*Domain, len(domains))
	prefixTable := make(map[string][]string, len(domains))
	for i := range domains {
		byName[domains[i].Name] = &domains[i]
		prefixTable[domains[i].Name] = domains[i].VisiblePrefixes
	}

	return &Registry{
		domains: domains,
		byName:  byName,
		rules:   reconcile.NewVisibilityRules(prefixTable),
	}
}

// modeConfigPrefixes expands the curated group order across the four trading
// modes: ultra_fast.enabled, ultra_fast.timeframe, ..., position.stale_release.
func modeConfigPrefixes() []string {
	prefixes := make([]string, 0, len(TradingModes)*len(ModeGroupKeys))
	for _, mode := range TradingModes {
		for _, group := range ModeGroupKeys {
			prefixes = append(prefixes, mode+"."+group)
		}
	}
	return prefixes
}

// Domains returns the registered domains in display order.
func (r *Registry) Domains() []Domain {
	out := make([]Domain, len(r.domains))
	copy(out, r.domains)
	return out
}

// Names returns the registered domain names in display order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.domains))
	for i, d := range r.domains {
		names[i] = d.Name
	}
	return names
}

// Lookup returns the domain by name.
func (r *Registry) Lookup(name string) (*Domain, error) {
	d, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown settings domain: %s", name)
	}
	return d, nil
}

// Has reports whether the domain name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Rules returns the visibility rules derived from the registry.
func (r *Registry) Rules() *reconcile.VisibilityRules {
	return r.rules
}
