package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/phishlens/internal/analysis"
	"github.com/jmerrifield20/phishlens/internal/threat"
	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
	"go.uber.org/zap"
)

// MaxBatchSize is the largest number of URLs accepted by one batch request.
const MaxBatchSize = 50

// Analyzer is the subset of *analysis.Analyzer the HTTP surface needs.
type Analyzer interface {
	Analyze(ctx context.Context, raw string) (*analysis.Assessment, error)
	AnalyzeBatch(ctx context.Context, urls []string, concurrency int) ([]*analysis.Assessment, error)
	Inspect(ctx context.Context, raw string) (urlfeatures.URLFeatures, *threat.Report)
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// BatchRequest is the body of POST /analyze/batch.
type BatchRequest struct {
	URLs []string `json:"urls" binding:"required"`
}

// FeaturesResponse is returned by GET /features.
type FeaturesResponse struct {
	Features  urlfeatures.URLFeatures `json:"features"`
	Heuristic *threat.Report          `json:"heuristic"`
}

// AnalysisHandler handles URL analysis requests.
type AnalysisHandler struct {
	analyzer         Analyzer
	batchConcurrency int
	quota            *AnalysisQuota // nil = unlimited
	logger           *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler. batchConcurrency bounds
// the oracle calls in flight for one batch request.
func NewAnalysisHandler(a Analyzer, batchConcurrency int, logger *zap.Logger) *AnalysisHandler {
	if batchConcurrency < 1 {
		batchConcurrency = 1
	}
	return &AnalysisHandler{analyzer: a, batchConcurrency: batchConcurrency, logger: logger}
}

// Register mounts the analysis routes on the given router group.
func (h *AnalysisHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.Analyze)
	rg.POST("/analyze/batch", h.AnalyzeBatch)
	rg.GET("/features", h.Features)
}

// Analyze handles POST /analyze. Runs the full pipeline for one URL.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if analysis.IsBlank(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	res, err := h.analyzer.Analyze(c.Request.Context(), req.URL)
	if err != nil {
		h.abandoned(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AnalyzeBatch handles POST /analyze/batch. Analyses up to MaxBatchSize URLs.
func (h *AnalysisHandler) AnalyzeBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.URLs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "urls must not be empty"})
		return
	}
	if len(req.URLs) > MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("maximum %d URLs per batch", MaxBatchSize)})
		return
	}
	for i, u := range req.URLs {
		if analysis.IsBlank(u) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("urls[%d] is blank", i)})
			return
		}
	}

	if h.quota != nil && !h.quota.ChargeBatch(c, len(req.URLs)) {
		return
	}

	results, err := h.analyzer.AnalyzeBatch(c.Request.Context(), req.URLs, h.batchConcurrency)
	if err != nil {
		h.abandoned(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Features handles GET /features?url=. Features and heuristic report only.
func (h *AnalysisHandler) Features(c *gin.Context) {
	raw := c.Query("url")
	if analysis.IsBlank(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	f, report := h.analyzer.Inspect(c.Request.Context(), raw)
	c.JSON(http.StatusOK, FeaturesResponse{Features: f, Heuristic: report})
}

// abandoned answers a request whose analysis stopped because the client
// went away or the server is shutting down.
func (h *AnalysisHandler) abandoned(c *gin.Context, err error) {
	h.logger.Debug("analysis abandoned",
		zap.String("request_id", RequestIDFrom(c)),
		zap.Error(err),
	)
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis cancelled"})
}
