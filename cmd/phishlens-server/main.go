package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/phishlens/internal/alerts"
	"github.com/jmerrifield20/phishlens/internal/analysis"
	"github.com/jmerrifield20/phishlens/internal/api/grpcapi"
	"github.com/jmerrifield20/phishlens/internal/api/handler"
	"github.com/jmerrifield20/phishlens/internal/config"
	"github.com/jmerrifield20/phishlens/internal/events"
	"github.com/jmerrifield20/phishlens/internal/health"
	"github.com/jmerrifield20/phishlens/internal/verdictlog"
	"github.com/jmerrifield20/phishlens/migrations"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(os.Getenv("PHISHLENS_CONFIG"), logger); err != nil {
		logger.Fatal("phishlens-server exited with error", zap.Error(err))
	}
}

func run(cfgFile string, logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	cfg, err := config.Load(config.Options{File: cfgFile}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Verdict log ──────────────────────────────────────────────────────────
	var (
		vlog   verdictlog.Log
		probes []health.Probe
	)
	if cfg.Database.URL != "" {
		if cfg.Database.AutoMigrate {
			if err := migrations.Up(cfg.Database.URL); err != nil {
				return err
			}
			logger.Info("database migrations applied")
		}

		db, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()

		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("connected to postgres")

		vlog = verdictlog.NewPostgresLog(db, logger)
		probes = append(probes, health.Probe{Name: "postgres", Check: db.Ping})
	} else {
		vlog = verdictlog.NewMemoryLog()
		logger.Info("verdict log: in-memory (set database.url to persist)")
	}

	if err := vlog.Verify(ctx); err != nil {
		logger.Warn("verdict log integrity check FAILED", zap.Error(err))
	} else {
		n, _ := vlog.Len(ctx)
		root, _ := vlog.Root(ctx)
		handler.SetVerdictLogGauge(n)
		logger.Info("verdict log verified", zap.Int("entries", n), zap.String("root", root))
	}

	// ── Analyzer ─────────────────────────────────────────────────────────────
	orc := cfg.Oracle.NewOracle(logger)
	probes = append(probes, health.Probe{Name: "oracle", Check: orc.Ping, Optional: true})

	recorders := analysis.Recorders{verdictlog.NewRecorder(vlog)}
	var notifier *alerts.Notifier
	if len(cfg.Alerts.Webhooks) > 0 {
		notifier = alerts.NewNotifier(cfg.Alerts.Webhooks, cfg.Alerts.MinRiskScore, logger)
		notifier.SetMetricsRecorder(handler.RecordAlertDelivery)
		recorders = append(recorders, notifier)
		logger.Info("phishing alerts enabled", zap.Int("webhooks", len(cfg.Alerts.Webhooks)))
	}

	if len(cfg.Events.Brokers) > 0 {
		pub, err := events.NewPublisher(cfg.Events, logger)
		if err != nil {
			return err
		}
		defer pub.Close() //nolint:errcheck
		recorders = append(recorders, pub)
		logger.Info("verdict events enabled",
			zap.Strings("brokers", cfg.Events.Brokers),
			zap.String("topic", cfg.Events.Topic),
		)
	}

	analyzer := analysis.New(orc, logger,
		analysis.WithOracleTimeout(cfg.Oracle.Timeout),
		analysis.WithCacheTTL(cfg.Analysis.CacheTTL),
		analysis.WithRecorder(recorders),
		analysis.WithMetrics(handler.RecordAnalysis),
	)

	checker := health.New(probes, health.Config{
		CheckInterval: cfg.Health.CheckInterval,
		FailThreshold: cfg.Health.FailThreshold,
	}, logger)
	checker.SetMetricsRecord(handler.RecordDependencyCheck)

	// ── HTTP router ──────────────────────────────────────────────────────────
	router := handler.NewRouter(ctx, handler.RouterConfig{
		Analyzer:         analyzer,
		VerdictLog:       vlog,
		Checker:          checker,
		Version:          version,
		CORSOrigins:      cfg.Server.CORSOrigins,
		RateLimitRPS:     cfg.Server.RateLimitRPS,
		RateLimitBurst:   cfg.Server.RateLimitBurst,
		BatchConcurrency: cfg.Analysis.BatchConcurrency,
		Logger:           logger,
	})

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── gRPC ─────────────────────────────────────────────────────────────────
	var (
		grpcSrv *grpcapi.Server
		grpcLis net.Listener
	)
	if cfg.Server.GRPCPort > 0 {
		grpcLis, err = net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcSrv = grpcapi.NewServer(analyzer, logger, cfg.Server.GRPCReflection)
	}

	// ── Serve ────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		checker.Start(gctx)
		return nil
	})
	analyzer.StartCacheEviction(gctx, cfg.Analysis.CacheTTL)

	g.Go(func() error {
		logger.Info("phishlens HTTP listening", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http listen: %w", err)
		}
		return nil
	})

	if grpcSrv != nil {
		g.Go(func() error { return grpcSrv.Serve(grpcLis) })
	}

	// ── Graceful shutdown ────────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down phishlens...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown error", zap.Error(err))
		}
		if notifier != nil {
			notifier.Wait()
		}
		return nil
	})

	err = g.Wait()
	logger.Info("phishlens stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
