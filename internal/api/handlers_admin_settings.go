package api

import (
	"net/http"
	"strconv"

	"ginie-settings-service/internal/defaults"

	"github.com/gin-gonic/gin"
)

// handleSaveDomainDefaults saves an admin-edited default payload for a domain
// PUT /api/admin/defaults/:domain
func (s *Server) handleSaveDomainDefaults(c *gin.Context) {
	domain := c.Param("domain")

	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.store.Save(c.Request.Context(), domain, payload, s.userName(c))
	if err != nil {
		if !s.store.Registry().Has(domain) {
			errorResponse(c, http.StatusNotFound, err.Error())
			return
		}
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	if !result.Success {
		c.JSON(http.StatusBadRequest, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleResetDomainDefaults drops the admin override for a domain, reverting
// it to the shipped file defaults
// POST /api/admin/defaults/:domain/reset
func (s *Server) handleResetDomainDefaults(c *gin.Context) {
	domain := c.Param("domain")

	result, err := s.store.Reset(c.Request.Context(), domain, s.userName(c))
	if err != nil {
		if !s.store.Registry().Has(domain) {
			errorResponse(c, http.StatusNotFound, err.Error())
			return
		}
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleGetAuditTrail returns recent default change events
// GET /api/admin/defaults/audit?domain=...&limit=...
func (s *Server) handleGetAuditTrail(c *gin.Context) {
	domain := c.Query("domain")
	if domain != "" && !s.store.Registry().Has(domain) {
		errorResponse(c, http.StatusNotFound, "unknown settings domain: "+domain)
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	events, err := s.store.AuditTrail(c.Request.Context(), domain, limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(c, gin.H{"events": events, "count": len(events)})
}

// handleReloadDefaults re-reads the defaults file from disk
// POST /api/admin/defaults/reload
func (s *Server) handleReloadDefaults(c *gin.Context) {
	if err := defaults.Reload(); err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	file, err := defaults.Load()
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	s.store.ReplaceFile(file)

	if s.eventBus != nil {
		s.eventBus.PublishDefaultsReloaded(file.Metadata.Version, s.userName(c))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Defaults reloaded",
		"version": file.Metadata.Version,
	})
}
