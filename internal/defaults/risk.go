package defaults

import "strings"

// PathRiskMeta resolves per-path risk levels and display annotations for one
// domain. The defaults file's _settings_risk_index is consulted first; paths
// it does not mention fall back to group-based heuristics so new fields get a
// sensible tier without a file update.
type PathRiskMeta struct {
	domain string
	index  RiskIndex
	info   map[string]RiskInfo
}

// RiskMetaFor returns the risk metadata source for a domain, backed by the
// settings file's risk index and per-section risk info.
func (sf *SettingsFile) RiskMetaFor(domain string) *PathRiskMeta {
	m := &PathRiskMeta{
		domain: domain,
		index:  sf.RiskIndex,
		info:   map[string]RiskInfo{},
	}

	for path, info := range sf.RiskIndex.RiskInfo {
		m.info[path] = info
	}
	switch domain {
	case DomainCircuitBreaker:
		for path, info := range sf.CircuitBreaker.RiskInfo {
			m.info[path] = info
		}
	case DomainLLMConfig:
		for path, info := range sf.LLMConfig.RiskInfo {
			m.info[path] = info
		}
	}
	return m
}

// RiskLevel returns "high", "medium" or "low" for a flattened path.
func (m *PathRiskMeta) RiskLevel(path string) string {
	qualified := m.domain + "." + path
	if matchesAny(m.index.HighRiskSettings, path, qualified) {
		return "high"
	}
	if matchesAny(m.index.MediumRiskSettings, path, qualified) {
		return "medium"
	}
	if matchesAny(m.index.LowRiskSettings, path, qualified) {
		return "low"
	}
	return m.groupRiskLevel(path)
}

// Annotations returns the impact and recommendation text for a path.
func (m *PathRiskMeta) Annotations(path string) (string, string) {
	if info, ok := m.info[path]; ok {
		return info.Impact, info.Recommendation
	}
	if info, ok := m.info[m.domain+"."+path]; ok {
		return info.Impact, info.Recommendation
	}

	switch m.RiskLevel(path) {
	case "high":
		return "Directly affects capital at risk", "Use the shipped default unless you understand the impact"
	case "medium":
		return "May affect trading performance", "Consider using the default value"
	default:
		return "", ""
	}
}

// groupRiskLevel assigns a tier from the setting group a path belongs to.
// Mirrors the dashboard's per-section coloring.
func (m *PathRiskMeta) groupRiskLevel(path string) string {
	group, field := splitGroup(path)

	switch m.domain {
	case DomainCircuitBreaker:
		if field == "max_loss_per_hour" || field == "max_daily_loss" {
			return "high"
		}
		return "medium"
	case DomainCapitalAllocation:
		if strings.HasSuffix(field, "_percent") {
			return "high"
		}
		return "medium"
	case DomainScalpReentry:
		if field == "dca_enabled" || field == "dca_max_entries" || field == "hedging_enabled" {
			return "high"
		}
		return "medium"
	}

	switch group {
	case "confidence":
		return "high"
	case "size":
		if field == "max_size_usd" || field == "base_size_usd" || field == "leverage" {
			return "high"
		}
		return "medium"
	case "sltp", "risk":
		return "medium"
	case "circuit_breaker":
		if field == "max_loss_per_hour" || field == "max_loss_per_day" {
			return "high"
		}
		return "medium"
	case "hedge":
		if field == "allow_hedge" || field == "max_hedge_size_percent" || field == "max_total_exposure_multiplier" {
			return "high"
		}
		return "medium"
	case "averaging":
		if field == "max_averages" {
			return "medium"
		}
		return "low"
	default:
		return "low"
	}
}

// splitGroup separates a mode-config path like "scalp.size.leverage" into its
// group ("size") and field ("leverage"). Paths without a group return the
// whole path as the field.
func splitGroup(path string) (group, field string) {
	parts := strings.Split(path, ".")
	switch len(parts) {
	case 1:
		return "", parts[0]
	case 2:
		return parts[0], parts[1]
	default:
		return parts[len(parts)-2], parts[len(parts)-1]
	}
}

// matchesAny reports whether any index entry matches the bare or
// domain-qualified path, exactly or as a dotted ancestor.
func matchesAny(entries []string, path, qualified string) bool {
	for _, e := range entries {
		if e == path || e == qualified {
			return true
		}
		if strings.HasPrefix(path, e+".") || strings.HasPrefix(qualified, e+".") {
			return true
		}
	}
	return false
}
