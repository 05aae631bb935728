// Package media exposes read access to cached media records.
package media

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mediatrakker/internal/storage"
)

type Handler struct {
	Media storage.MediaStore
}

func NewHandler(media storage.MediaStore) *Handler {
	return &Handler{Media: media}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/media/:id", h.getByID)
}

func (h *Handler) getByID(c *gin.Context) {
	rec, err := h.Media.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "media item not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
