// Package grpcapi serves the analyzer over gRPC without generated protobuf
// stubs: messages travel through a registered JSON codec.
package grpcapi

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/jmerrifield20/phishlens/internal/analysis"
	"github.com/jmerrifield20/phishlens/internal/threat"
	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// Analyzer is the subset of *analysis.Analyzer the gRPC surface needs.
type Analyzer interface {
	Analyze(ctx context.Context, raw string) (*analysis.Assessment, error)
	Inspect(ctx context.Context, raw string) (urlfeatures.URLFeatures, *threat.Report)
}

// Service implements AnalyzerServiceServer over an Analyzer.
type Service struct {
	UnimplementedAnalyzerServiceServer
	analyzer Analyzer
}

// NewService creates a Service.
func NewService(a Analyzer) *Service {
	return &Service{analyzer: a}
}

// Analyze implements AnalyzerServiceServer.
func (s *Service) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error) {
	if analysis.IsBlank(req.URL) {
		return nil, status.Error(codes.InvalidArgument, "url is required")
	}
	res, err := s.analyzer.Analyze(ctx, req.URL)
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}
	return &AnalyzeResponse{Assessment: res}, nil
}

// ExtractFeatures implements AnalyzerServiceServer.
func (s *Service) ExtractFeatures(ctx context.Context, req *ExtractFeaturesRequest) (*ExtractFeaturesResponse, error) {
	if analysis.IsBlank(req.URL) {
		return nil, status.Error(codes.InvalidArgument, "url is required")
	}
	f, report := s.analyzer.Inspect(ctx, req.URL)
	return &ExtractFeaturesResponse{Features: f, Heuristic: report}, nil
}

// Server wraps a gRPC server with AnalyzerService and the health service registered.
type Server struct {
	gs     *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewServer creates and configures the gRPC server. Reflection is only
// registered when enableReflection is true.
func NewServer(a Analyzer, logger *zap.Logger, enableReflection bool) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(loggingInterceptor(logger)),
	)

	RegisterAnalyzerServiceServer(gs, NewService(a))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	if enableReflection {
		reflection.Register(gs)
	}

	return &Server{gs: gs, health: healthSrv, logger: logger}
}

// Serve accepts connections on lis until Stop or GracefulStop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	if err := s.gs.Serve(lis); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// GracefulStop marks the service NOT_SERVING and stops the server gracefully.
func (s *Server) GracefulStop() {
	s.logger.Info("gRPC server shutting down")
	s.health.Shutdown()
	s.gs.GracefulStop()
}

// loggingInterceptor returns a gRPC unary server interceptor that logs each call.
func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)),
		)
		return resp, err
	}
}
