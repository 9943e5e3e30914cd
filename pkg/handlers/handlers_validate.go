package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Validate dry-runs location resolution over the current input batch
func (h *Handler) Validate(c *gin.Context) {
	res, err := h.Pipeline.Validate(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":  len(res.Unmatched) == 0,
		"result": res,
		"stats": gin.H{
			"signup_count":   res.Signups,
			"location_count": len(res.Locations),
			"precinct_count": res.Precincts,
		},
	})
}

// Resolve maps one free-text location to a precinct
func (h *Handler) Resolve(c *gin.Context) {
	var req struct {
		Location string `json:"location" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, mt, err := h.Pipeline.Resolve(req.Location)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"location":   req.Location,
		"matched":    m != nil,
		"match_type": mt,
		"match":      m,
	})
}

// ListAliases returns the manual location overrides
func (h *Handler) ListAliases(c *gin.Context) {
	aliases, err := h.Pipeline.Aliases.Load()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"aliases": aliases})
}

// AddAlias stores a location override. The precinct must be on the roster.
func (h *Handler) AddAlias(c *gin.Context) {
	var req struct {
		Location string `json:"location" binding:"required"`
		Precinct string `json:"precinct" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	known, err := h.Pipeline.KnownPrecinct(req.Precinct)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !known {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown precinct: " + req.Precinct})
		return
	}

	h.mu.Lock()
	err = h.Pipeline.Aliases.Add(req.Location, strings.TrimSpace(req.Precinct))
	h.mu.Unlock()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alias saved"})
}

// RemoveAlias deletes a location override
func (h *Handler) RemoveAlias(c *gin.Context) {
	var req struct {
		Location string `json:"location" form:"location" binding:"required"`
	}

	// Try JSON first, then Query
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "location is required"})
			return
		}
	}

	h.mu.Lock()
	err := h.Pipeline.Aliases.Remove(req.Location)
	h.mu.Unlock()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alias removed"})
}
