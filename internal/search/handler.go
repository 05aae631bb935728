package search

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	Agg *Aggregator
	Log *zap.Logger
}

func NewHandler(agg *Aggregator, log *zap.Logger) *Handler {
	return &Handler{Agg: agg, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
}

func (h *Handler) search(c *gin.Context) {
	query := c.Query("query")
	mediaType := c.Query("media_type")
	page := parseInt(c.Query("page"), 1)

	results, source, err := h.Agg.Search(c.Request.Context(), query, mediaType, page)
	if err != nil {
		if errors.Is(err, ErrEmptyQuery) || errors.Is(err, ErrUnknownMediaType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.Log.Error("search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "an error occurred while searching"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"source":  source,
	})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
