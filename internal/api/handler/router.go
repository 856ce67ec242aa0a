package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/phishlens/internal/health"
	"github.com/jmerrifield20/phishlens/internal/verdictlog"
	"go.uber.org/zap"
)

// RouterConfig collects everything NewRouter wires together.
type RouterConfig struct {
	Analyzer         Analyzer
	VerdictLog       verdictlog.Log  // nil = verdict routes not mounted
	Checker          *health.Checker // nil = /healthz always ok
	Version          string
	CORSOrigins      []string
	RateLimitRPS     int // oracle calls per second per IP; 0 = unlimited
	RateLimitBurst   int
	BatchConcurrency int
	Logger           *zap.Logger
}

// NewRouter builds the HTTP router. Background goroutines started by the
// middleware stop when ctx is cancelled.
func NewRouter(ctx context.Context, cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())

	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
			AllowCredentials: !containsWildcard(cfg.CORSOrigins),
			MaxAge:           12 * time.Hour,
		}))
	}

	router.Use(SecurityHeaders())
	router.Use(BodyLimit(1 << 20))
	router.Use(PrometheusMiddleware())
	var quota *AnalysisQuota
	if cfg.RateLimitRPS > 0 {
		quota = NewAnalysisQuota(cfg.RateLimitRPS, cfg.RateLimitBurst)
		quota.StartSweeper(ctx, 5*time.Minute, 10*time.Minute)
		router.Use(quota.Middleware())
	}
	router.Use(RequestLogger(logger))

	router.GET("/healthz", NewHealthHandler(cfg.Checker, cfg.Version).Healthz)
	router.GET("/metrics", MetricsHandler())

	v1 := router.Group("/api/v1")
	analysisHandler := NewAnalysisHandler(cfg.Analyzer, cfg.BatchConcurrency, logger)
	analysisHandler.quota = quota
	analysisHandler.Register(v1)
	if cfg.VerdictLog != nil {
		NewVerdictHandler(cfg.VerdictLog, logger).Register(v1)
	}
	return router
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
