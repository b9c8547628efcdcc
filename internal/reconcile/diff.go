package reconcile

// Risk levels attached to setting differences. These are caller-supplied
// metadata (from the defaults file's risk index); the engine only aggregates.
const (
	RiskHigh   = "high"
	RiskMedium = "medium"
	RiskLow    = "low"
)

// SettingDiff compares one leaf across the current and default configuration.
type SettingDiff struct {
	Path           string      `json:"path"`
	Current        interface{} `json:"current"`
	Default        interface{} `json:"default"`
	Changed        bool        `json:"changed"`
	RiskLevel      string      `json:"risk_level,omitempty"`
	Impact         string      `json:"impact,omitempty"`
	Recommendation string      `json:"recommendation,omitempty"`
}

// RiskMeta supplies per-path risk annotations to the diff engine. A nil
// RiskMeta leaves risk fields empty.
type RiskMeta interface {
	// RiskLevel returns "high", "medium", or "low" for a path.
	RiskLevel(path string) string
	// Annotations returns optional impact/recommendation text for a path.
	Annotations(path string) (impact, recommendation string)
}

// DiffReport is the full comparison of one domain.
type DiffReport struct {
	Diffs        []SettingDiff `json:"diffs"`
	TotalChanges int           `json:"total_changes"`
	AllMatch     bool          `json:"all_match"`
}

// Diff pairs current and default leaves by path and marks each as changed or
// already-default. Equality is canonical-serialization equality: exact for
// numbers, order-sensitive for objects and arrays. Paths present on only one
// side are skipped - both sides are expected to share a schema. Input order
// is preserved (default side drives ordering).
func Diff(currentFlat, defaultFlat []Leaf, meta RiskMeta) DiffReport {
	current := make(map[string]Leaf, len(currentFlat))
	for _, leaf := range currentFlat {
		current[leaf.Path] = leaf
	}

	report := DiffReport{Diffs: []SettingDiff{}, AllMatch: true}
	for _, def := range defaultFlat {
		cur, ok := current[def.Path]
		if !ok {
			continue
		}
		d := SettingDiff{
			Path:    def.Path,
			Current: cur.Value,
			Default: def.Value,
			Changed: CanonicalSerialize(cur.Value) != CanonicalSerialize(def.Value),
		}
		if d.Changed {
			if meta != nil {
				d.RiskLevel = meta.RiskLevel(def.Path)
				d.Impact, d.Recommendation = meta.Annotations(def.Path)
			}
			report.TotalChanges++
			report.AllMatch = false
		}
		report.Diffs = append(report.Diffs, d)
	}
	return report
}

// Changed filters a report down to the entries that differ from defaults.
// Ordering within the bucket is preserved.
func (r DiffReport) Changed() []SettingDiff {
	out := []SettingDiff{}
	for _, d := range r.Diffs {
		if d.Changed {
			out = append(out, d)
		}
	}
	return out
}

// RiskCounts tallies changed entries by risk tier.
type RiskCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// HasHighRisk reports whether any changed setting is high risk.
func (c RiskCounts) HasHighRisk() bool {
	return c.High > 0
}

// AggregateRisk counts changed diffs by risk level. Entries already at their
// default contribute nothing regardless of declared risk.
func AggregateRisk(diffs []SettingDiff) RiskCounts {
	var counts RiskCounts
	for _, d := range diffs {
		if !d.Changed {
			continue
		}
		switch d.RiskLevel {
		case RiskHigh:
			counts.High++
		case RiskMedium:
			counts.Medium++
		default:
			counts.Low++
		}
	}
	return counts
}
