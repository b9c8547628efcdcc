package reconcile

import "sort"

// VisibilityRules maps a configuration domain to the ordered list of path
// prefixes its UI surfaces directly. The prefix order is human-curated and
// drives on-screen grouping, so it is preserved through classification.
// Anything not matching a prefix is an advanced setting.
//
// The table is static configuration: built once at startup, never mutated.
type VisibilityRules struct {
	prefixes map[string][]string
}

// NewVisibilityRules builds a rules table from a domain -> prefixes mapping.
func NewVisibilityRules(prefixes map[string][]string) *VisibilityRules {
	copied := make(map[string][]string, len(prefixes))
	for domain, list := range prefixes {
		copied[domain] = append([]string(nil), list...)
	}
	return &VisibilityRules{prefixes: copied}
}

// Prefixes returns the visible prefix list for a domain (nil if unknown).
func (r *VisibilityRules) Prefixes(domain string) []string {
	return r.prefixes[domain]
}

// Classification partitions flattened paths into visible and hidden groups.
type Classification struct {
	Visible []Leaf
	Hidden  []Leaf
}

// Classify splits leaves for a domain. Unknown domains classify everything as
// hidden - nothing is assumed safe to surface by default. Visible entries are
// stably sorted by the index of the first matching prefix; hidden entries keep
// flatten order.
func (r *VisibilityRules) Classify(leaves []Leaf, domain string) Classification {
	prefixes, ok := r.prefixes[domain]
	if !ok {
		return Classification{Visible: []Leaf{}, Hidden: append([]Leaf{}, leaves...)}
	}

	result := Classification{Visible: []Leaf{}, Hidden: []Leaf{}}
	type ranked struct {
		leaf Leaf
		idx  int
	}
	visible := []ranked{}
	for _, leaf := range leaves {
		idx := matchIndex(leaf.Path, prefixes)
		if idx < 0 {
			result.Hidden = append(result.Hidden, leaf)
			continue
		}
		visible = append(visible, ranked{leaf: leaf, idx: idx})
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].idx < visible[j].idx
	})
	for _, v := range visible {
		result.Visible = append(result.Visible, v.leaf)
	}
	return result
}

// matchIndex returns the index of the first prefix matching the path, or -1.
// A prefix matches on exact equality or as a dotted ancestor.
func matchIndex(path string, prefixes []string) int {
	for i, prefix := range prefixes {
		if path == prefix {
			return i
		}
		if len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '.' {
			return i
		}
	}
	return -1
}
