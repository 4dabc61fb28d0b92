package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tescaelements/mashgiach/backend/internal/services"
)

type AgencyHandler struct{}

func NewAgencyHandler() *AgencyHandler {
	return &AgencyHandler{}
}

// List handles GET /api/agencies.
func (h *AgencyHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agencies": services.Agencies()})
}

// Lookup handles GET /api/agencies/:symbol. A miss is a normal answer, not
// an error: unknown marks are exactly what the UI warns about.
func (h *AgencyHandler) Lookup(c *gin.Context) {
	agency, found := services.LookupAgency(c.Param("symbol"))
	if !found {
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "agency": agency})
}
