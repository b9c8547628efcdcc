package api

import (
	"io"
	"net/http"

	"ginie-settings-service/internal/reconcile"

	"github.com/gin-gonic/gin"
)

// DomainInfo describes one settings domain for the registry listing
type DomainInfo struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// SettingView is one flattened setting with its risk annotations
type SettingView struct {
	Path           string      `json:"path"`
	Value          interface{} `json:"value"`
	RiskLevel      string      `json:"risk_level"`
	Impact         string      `json:"impact,omitempty"`
	Recommendation string      `json:"recommendation,omitempty"`
}

// handleGetDomains returns the settings domain registry
// GET /api/settings/domains
func (s *Server) handleGetDomains(c *gin.Context) {
	domains := s.store.Registry().Domains()

	out := make([]DomainInfo, 0, len(domains))
	for _, d := range domains {
		out = append(out, DomainInfo{
			Name:        d.Name,
			Label:       d.Label,
			Description: d.Description,
		})
	}

	successResponse(c, gin.H{"domains": out})
}

// handleGetDomainDefaults returns the effective defaults for a domain,
// flattened and split into visible and hidden settings
// GET /api/settings/defaults/:domain
func (s *Server) handleGetDomainDefaults(c *gin.Context) {
	domain := c.Param("domain")

	leaves, source, err := s.store.EffectiveLeaves(c.Request.Context(), domain)
	if err != nil {
		errorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	classified := s.store.Registry().Rules().Classify(leaves, domain)
	meta := s.store.File().RiskMetaFor(domain)

	c.JSON(http.StatusOK, gin.H{
		"domain":   domain,
		"source":   source,
		"version":  s.store.File().Metadata.Version,
		"visible":  annotate(classified.Visible, meta),
		"hidden":   annotate(classified.Hidden, meta),
		"is_admin": s.isUserAdmin(c),
	})
}

// DiffResponse is the reconciliation view of one domain
type DiffResponse struct {
	Domain       string                  `json:"domain"`
	Source       string                  `json:"source"`
	AllMatch     bool                    `json:"all_match"`
	TotalChanges int                     `json:"total_changes"`
	RiskCounts   reconcile.RiskCounts    `json:"risk_counts"`
	Visible      []reconcile.SettingDiff `json:"visible"`
	Hidden       []reconcile.SettingDiff `json:"hidden"`
}

// handleDiffDomain compares a caller-supplied current config against the
// effective defaults. With an empty body the caller's stored config is used.
// POST /api/settings/diff/:domain
func (s *Server) handleDiffDomain(c *gin.Context) {
	domain := c.Param("domain")

	defaultLeaves, source, err := s.store.EffectiveLeaves(c.Request.Context(), domain)
	if err != nil {
		errorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	currentLeaves, err := s.currentLeaves(c, domain, defaultLeaves)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	meta := s.store.File().RiskMetaFor(domain)
	report := reconcile.Diff(currentLeaves, defaultLeaves, meta)
	counts := reconcile.AggregateRisk(report.Diffs)

	visible, hidden := partitionDiffs(report.Diffs, defaultLeaves, domain, s.store.Registry().Rules())

	c.JSON(http.StatusOK, DiffResponse{
		Domain:       domain,
		Source:       source,
		AllMatch:     report.AllMatch,
		TotalChanges: report.TotalChanges,
		RiskCounts:   counts,
		Visible:      visible,
		Hidden:       hidden,
	})
}

// currentLeaves resolves the caller's current config: a request body is
// flattened as-is, otherwise the stored per-user config overlays the defaults.
func (s *Server) currentLeaves(c *gin.Context, domain string, defaultLeaves []reconcile.Leaf) ([]reconcile.Leaf, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}

	if len(body) > 0 {
		return reconcile.Flatten(body), nil
	}

	payload, err := s.userPayload(c, domain)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		// No stored config: the caller is running pure defaults.
		return defaultLeaves, nil
	}

	out := make([]reconcile.Leaf, len(defaultLeaves))
	for i, leaf := range defaultLeaves {
		if v, ok := payload[leaf.Path]; ok {
			leaf.Value = v
		}
		out[i] = leaf
	}
	return out, nil
}

// userPayload loads the caller's stored domain config, cache first
func (s *Server) userPayload(c *gin.Context, domain string) (map[string]interface{}, error) {
	userID := s.getUserID(c)
	if userID == "" {
		return nil, nil
	}

	if s.userCache != nil {
		if payload, hit := s.userCache.GetUserDomain(c.Request.Context(), userID, domain); hit {
			return payload, nil
		}
	}

	if s.repo == nil {
		return nil, nil
	}

	cfg, err := s.repo.GetUserDomainConfig(c.Request.Context(), userID, domain)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, nil
	}

	if s.userCache != nil {
		s.userCache.SetUserDomain(c.Request.Context(), userID, domain, cfg.Payload)
	}

	return cfg.Payload, nil
}

// annotate attaches risk metadata to flattened leaves
func annotate(leaves []reconcile.Leaf, meta reconcile.RiskMeta) []SettingView {
	out := make([]SettingView, 0, len(leaves))
	for _, leaf := range leaves {
		view := SettingView{Path: leaf.Path, Value: leaf.Value}
		if meta != nil {
			view.RiskLevel = meta.RiskLevel(leaf.Path)
			view.Impact, view.Recommendation = meta.Annotations(leaf.Path)
		}
		out = append(out, view)
	}
	return out
}

// partitionDiffs splits diff entries along the domain's visibility rules,
// preserving the classifier's curated visible order
func partitionDiffs(diffs []reconcile.SettingDiff, defaultLeaves []reconcile.Leaf, domain string, rules *reconcile.VisibilityRules) (visible, hidden []reconcile.SettingDiff) {
	byPath := make(map[string]reconcile.SettingDiff, len(diffs))
	for _, d := range diffs {
		byPath[d.Path] = d
	}

	classified := rules.Classify(defaultLeaves, domain)

	visible = make([]reconcile.SettingDiff, 0, len(classified.Visible))
	for _, leaf := range classified.Visible {
		if d, ok := byPath[leaf.Path]; ok {
			visible = append(visible, d)
		}
	}
	hidden = make([]reconcile.SettingDiff, 0, len(classified.Hidden))
	for _, leaf := range classified.Hidden {
		if d, ok := byPath[leaf.Path]; ok {
			hidden = append(hidden, d)
		}
	}
	return visible, hidden
}
