// Package userlist implements the saved-items CRUD and the stats fold for
// the configured user.
package userlist

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mediatrakker/internal/notify"
	"mediatrakker/internal/storage"
	"mediatrakker/pkg/models"
)

type Handler struct {
	Lists storage.ListStore
	Media storage.MediaStore
	User  models.UserContext
	Hub   *notify.Hub
	Log   *zap.Logger
}

func NewHandler(lists storage.ListStore, media storage.MediaStore, user models.UserContext, hub *notify.Hub, log *zap.Logger) *Handler {
	return &Handler{Lists: lists, Media: media, User: user, Hub: hub, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/user-list", h.add)
	rg.GET("/user-list", h.list)
	rg.PUT("/user-list/:id", h.update)
	rg.DELETE("/user-list/:id", h.remove)
	rg.GET("/stats", h.stats)
}

type addReq struct {
	MediaID   string          `json:"media_id"`
	MediaType string          `json:"media_type"`
	Status    string          `json:"status"`
	Progress  models.Progress `json:"progress"`
	Rating    *float64        `json:"rating"`
	Notes     *string         `json:"notes"`
}

func (h *Handler) add(c *gin.Context) {
	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if strings.TrimSpace(req.MediaID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media_id required"})
		return
	}
	mt, ok := models.ParseMediaType(req.MediaType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media_type"})
		return
	}
	status := models.NormalizeStatus(req.Status)
	if status == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be one of: watching, reading, playing, completed, paused, planning, dropped",
		})
		return
	}

	entry := models.ListEntry{
		UserID:    h.User.UserID,
		MediaID:   strings.TrimSpace(req.MediaID),
		MediaType: mt,
		Status:    status,
		Progress:  req.Progress,
		Rating:    req.Rating,
		Notes:     req.Notes,
	}

	saved, err := h.Lists.Insert(c.Request.Context(), entry)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Item already in your list"})
			return
		}
		h.Log.Error("list insert failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	h.broadcast(notify.EventListAdded, saved)
	c.JSON(http.StatusOK, gin.H{"message": "Item added to your list", "id": saved.ID})
}

func (h *Handler) list(c *gin.Context) {
	f := storage.ListFilter{}
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		f.Status = models.NormalizeStatus(s)
		if f.Status == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
	}
	if mtRaw := strings.TrimSpace(c.Query("media_type")); mtRaw != "" {
		mt, ok := models.ParseMediaType(mtRaw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media_type filter"})
			return
		}
		f.MediaType = mt
	}

	entries, err := h.Lists.List(c.Request.Context(), h.User.UserID, f)
	if err != nil {
		h.Log.Error("list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	// enrich each entry with its media record; dangling references are
	// skipped rather than erroring
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		rec, err := h.Media.FindByID(c.Request.Context(), e.MediaID)
		if err != nil {
			h.Log.Error("media enrich failed", zap.String("media_id", e.MediaID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
			return
		}
		if rec == nil {
			continue
		}
		out = append(out, gin.H{"list_item": e, "media_item": rec})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) update(c *gin.Context) {
	var upd models.ListEntryUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if upd.Status != nil {
		status := models.NormalizeStatus(*upd.Status)
		if status == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		upd.Status = &status
	}

	saved, err := h.Lists.Update(c.Request.Context(), c.Param("id"), h.User.UserID, upd)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "List item not found"})
			return
		}
		h.Log.Error("list update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	h.broadcast(notify.EventListUpdated, *saved)
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")
	err := h.Lists.Delete(c.Request.Context(), id, h.User.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "List item not found"})
			return
		}
		h.Log.Error("list delete failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	h.broadcast(notify.EventListRemoved, models.ListEntry{ID: id, UserID: h.User.UserID})
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from list"})
}

// stats groups the user's entries by (media_type, status) into nested
// counts. This is a local fold over the list store, nothing upstream.
func (h *Handler) stats(c *gin.Context) {
	entries, err := h.Lists.List(c.Request.Context(), h.User.UserID, storage.ListFilter{})
	if err != nil {
		h.Log.Error("stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}

	stats := make(map[string]map[string]int)
	for _, e := range entries {
		mt := string(e.MediaType)
		if stats[mt] == nil {
			stats[mt] = make(map[string]int)
		}
		stats[mt][e.Status]++
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) broadcast(event string, e models.ListEntry) {
	if h.Hub == nil {
		return
	}
	go h.Hub.BroadcastJSON(notify.ListEvent{
		Type:      event,
		EntryID:   e.ID,
		UserID:    e.UserID,
		MediaID:   e.MediaID,
		MediaType: string(e.MediaType),
		Status:    e.Status,
		At:        time.Now().UTC(),
	})
}
