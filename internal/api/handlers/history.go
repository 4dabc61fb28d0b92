package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tescaelements/mashgiach/backend/internal/services"
)

type HistoryHandler struct {
	history *services.HistoryService
	images  *services.ImageStorageService
}

func NewHistoryHandler(history *services.HistoryService, images *services.ImageStorageService) *HistoryHandler {
	return &HistoryHandler{history: history, images: images}
}

// List handles GET /api/history?limit=N, most recent first.
func (h *HistoryHandler) List(c *gin.Context) {
	limit := services.DefaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	scans, err := h.history.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": scans, "count": len(scans)})
}

type favoriteRequest struct {
	Favorite bool `json:"favorite"`
}

// SetFavorite handles POST /api/history/:id/favorite.
func (h *HistoryHandler) SetFavorite(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scan id"})
		return
	}

	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	if err := h.history.SetFavorite(uint(id), req.Favorite); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "favorite": req.Favorite})
}

// Remove handles DELETE /api/history/:id.
func (h *HistoryHandler) Remove(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scan id"})
		return
	}

	scan, err := h.history.Remove(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return
	}
	if scan.ImageFile != "" {
		_ = h.images.DeleteImage(scan.ImageFile)
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// ClearAll handles DELETE /api/history. Admin-key guarded in the router.
func (h *HistoryHandler) ClearAll(c *gin.Context) {
	if err := h.history.ClearAll(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// Image handles GET /api/history/:id/image, serving the stored label photo.
func (h *HistoryHandler) Image(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scan id"})
		return
	}

	scan, err := h.history.Get(uint(id))
	if err != nil || scan.ImageFile == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no image for scan"})
		return
	}
	c.File(h.images.GetImagePath(scan.ImageFile))
}
