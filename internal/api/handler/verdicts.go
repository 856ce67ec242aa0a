package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/phishlens/internal/verdictlog"
	"go.uber.org/zap"
)

const (
	defaultVerdictLimit = 20
	maxVerdictLimit     = 100
)

// VerdictHandler exposes read-only HTTP endpoints for the verdict log.
type VerdictHandler struct {
	log    verdictlog.Log
	logger *zap.Logger
}

// NewVerdictHandler creates a new VerdictHandler.
func NewVerdictHandler(l verdictlog.Log, logger *zap.Logger) *VerdictHandler {
	return &VerdictHandler{log: l, logger: logger}
}

// Register mounts the verdict log routes on the given router group.
func (h *VerdictHandler) Register(rg *gin.RouterGroup) {
	v := rg.Group("/verdicts")
	{
		v.GET("", h.Recent)
		v.GET("/root", h.Root)
		v.GET("/verify", h.Verify)
		v.GET("/:index", h.GetEntry)
	}
}

// Recent handles GET /verdicts?limit=. Newest entries first.
func (h *VerdictHandler) Recent(c *gin.Context) {
	limit := defaultVerdictLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxVerdictLimit)
	}

	entries, err := h.log.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("verdict log Recent", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query verdict log"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// Root handles GET /verdicts/root. Returns the chain length and tip hash.
func (h *VerdictHandler) Root(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.log.Len(ctx)
	if err != nil {
		h.logger.Error("verdict log Len", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query verdict log"})
		return
	}

	root, err := h.log.Root(ctx)
	if err != nil {
		h.logger.Error("verdict log Root", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query verdict log root"})
		return
	}

	SetVerdictLogGauge(count)
	c.JSON(http.StatusOK, gin.H{
		"entries": count,
		"root":    root,
	})
}

// Verify handles GET /verdicts/verify. Walks the full chain and reports integrity.
func (h *VerdictHandler) Verify(c *gin.Context) {
	if err := h.log.Verify(c.Request.Context()); err != nil {
		h.logger.Warn("verdict log integrity check failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// GetEntry handles GET /verdicts/:index. Returns a single entry.
func (h *VerdictHandler) GetEntry(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a non-negative integer"})
		return
	}

	entry, err := h.log.Get(c.Request.Context(), idx)
	if errors.Is(err, verdictlog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}
	if err != nil {
		h.logger.Error("verdict log Get", zap.Int("index", idx), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query verdict log"})
		return
	}
	c.JSON(http.StatusOK, entry)
}
