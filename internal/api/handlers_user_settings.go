package api

import (
	"net/http"

	"ginie-settings-service/internal/events"
	"ginie-settings-service/internal/reconcile"

	"github.com/gin-gonic/gin"
)

// handleGetUserConfig returns the caller's current config for a domain,
// stored values overlaid on the effective defaults
// GET /api/settings/user/:domain
func (s *Server) handleGetUserConfig(c *gin.Context) {
	domain := c.Param("domain")

	defaultLeaves, _, err := s.store.EffectiveLeaves(c.Request.Context(), domain)
	if err != nil {
		errorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	payload, err := s.userPayload(c, domain)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load user config")
		return
	}

	source := "defaults"
	values := make(map[string]interface{}, len(defaultLeaves))
	for _, leaf := range defaultLeaves {
		values[leaf.Path] = leaf.Value
	}
	if payload != nil {
		source = "user"
		for path, v := range payload {
			if _, ok := values[path]; ok {
				values[path] = v
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"domain": domain,
		"source": source,
		"values": values,
	})
}

// handleSaveUserConfig saves the caller's full edited config for a domain
// PUT /api/settings/user/:domain
func (s *Server) handleSaveUserConfig(c *gin.Context) {
	domain := c.Param("domain")
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}
	if s.repo == nil {
		errorResponse(c, http.StatusServiceUnavailable, "user config persistence is not configured")
		return
	}
	if !s.store.Registry().Has(domain) {
		errorResponse(c, http.StatusNotFound, "unknown settings domain: "+domain)
		return
	}

	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if verr := reconcile.NewValidator().Validate(domain, payload); verr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": verr.Message,
		})
		return
	}

	// Count changes against the effective defaults for the audit response
	defaultLeaves, _, err := s.store.EffectiveLeaves(c.Request.Context(), domain)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to resolve defaults")
		return
	}
	current := make([]reconcile.Leaf, len(defaultLeaves))
	for i, leaf := range defaultLeaves {
		if v, exists := payload[leaf.Path]; exists {
			leaf.Value = v
		}
		current[i] = leaf
	}
	report := reconcile.Diff(current, defaultLeaves, nil)

	if err := s.repo.UpsertUserDomainConfig(c.Request.Context(), userID, domain, payload); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to save user config")
		return
	}

	if s.userCache != nil {
		s.userCache.InvalidateUserDomain(c.Request.Context(), userID, domain)
	}

	if s.eventBus != nil {
		s.eventBus.Publish(events.Event{
			Type: events.EventUserConfigSaved,
			Data: map[string]interface{}{
				"user_id": userID,
				"domain":  domain,
				"changes": report.TotalChanges,
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Settings saved",
		"changes_count": report.TotalChanges,
		"config_type":   domain,
	})
}

// handleResetUserConfig drops the caller's stored config, reverting the
// domain to the effective defaults
// DELETE /api/settings/user/:domain
func (s *Server) handleResetUserConfig(c *gin.Context) {
	domain := c.Param("domain")
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}
	if s.repo == nil {
		errorResponse(c, http.StatusServiceUnavailable, "user config persistence is not configured")
		return
	}
	if !s.store.Registry().Has(domain) {
		errorResponse(c, http.StatusNotFound, "unknown settings domain: "+domain)
		return
	}

	if err := s.repo.DeleteUserDomainConfig(c.Request.Context(), userID, domain); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to reset user config")
		return
	}

	if s.userCache != nil {
		s.userCache.InvalidateUserDomain(c.Request.Context(), userID, domain)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Settings reset to defaults",
		"config_type": domain,
	})
}
