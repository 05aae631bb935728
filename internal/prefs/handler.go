// Package prefs serves the singleton-per-user preferences record.
package prefs

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mediatrakker/internal/storage"
	"mediatrakker/pkg/models"
)

type Handler struct {
	Prefs storage.PrefsStore
	User  models.UserContext
	Log   *zap.Logger
}

func NewHandler(prefs storage.PrefsStore, user models.UserContext, log *zap.Logger) *Handler {
	return &Handler{Prefs: prefs, User: user, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/user-preferences", h.get)
	rg.PUT("/user-preferences", h.put)
}

// get returns the stored preferences, creating the defaults on first read.
func (h *Handler) get(c *gin.Context) {
	p, err := h.Prefs.Get(c.Request.Context(), h.User.UserID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.Log.Error("preferences get failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
			return
		}
		p, err = h.Prefs.Upsert(c.Request.Context(), models.DefaultPreferences(h.User.UserID))
		if err != nil {
			h.Log.Error("preferences init failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
			return
		}
	}
	c.JSON(http.StatusOK, p)
}

type updateReq struct {
	Theme                *string `json:"theme"`
	Language             *string `json:"language"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
}

// put merges only the provided fields over the stored (or default) row.
func (h *Handler) put(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	current, err := h.Prefs.Get(c.Request.Context(), h.User.UserID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.Log.Error("preferences get failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
		defaults := models.DefaultPreferences(h.User.UserID)
		current = &defaults
	}

	if req.Theme != nil {
		current.Theme = *req.Theme
	}
	if req.Language != nil {
		current.Language = *req.Language
	}
	if req.NotificationsEnabled != nil {
		current.NotificationsEnabled = *req.NotificationsEnabled
	}

	saved, err := h.Prefs.Upsert(c.Request.Context(), *current)
	if err != nil {
		h.Log.Error("preferences update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, saved)
}
