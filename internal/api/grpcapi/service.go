package grpcapi

// service.go hand-writes what protoc-gen-go-grpc would emit for
// phishlens.v1.AnalyzerService. Messages are plain structs carried by the
// JSON codec.

import (
	"context"

	"github.com/jmerrifield20/phishlens/internal/analysis"
	"github.com/jmerrifield20/phishlens/internal/threat"
	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "phishlens.v1.AnalyzerService"

const (
	analyzeMethod         = "/" + ServiceName + "/Analyze"
	extractFeaturesMethod = "/" + ServiceName + "/ExtractFeatures"
)

// AnalyzeRequest asks for a full analysis of one URL.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// AnalyzeResponse carries the completed assessment.
type AnalyzeResponse struct {
	Assessment *analysis.Assessment `json:"assessment"`
}

// ExtractFeaturesRequest asks for lexical features and the heuristic report.
type ExtractFeaturesRequest struct {
	URL string `json:"url"`
}

// ExtractFeaturesResponse carries features and the heuristic report.
type ExtractFeaturesResponse struct {
	Features  urlfeatures.URLFeatures `json:"features"`
	Heuristic *threat.Report          `json:"heuristic"`
}

// AnalyzerServiceServer is the server API for AnalyzerService.
type AnalyzerServiceServer interface {
	Analyze(context.Context, *AnalyzeRequest) (*AnalyzeResponse, error)
	ExtractFeatures(context.Context, *ExtractFeaturesRequest) (*ExtractFeaturesResponse, error)
}

// UnimplementedAnalyzerServiceServer provides forward-compatible default implementations.
type UnimplementedAnalyzerServiceServer struct{}

func (UnimplementedAnalyzerServiceServer) Analyze(context.Context, *AnalyzeRequest) (*AnalyzeResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Analyze not implemented")
}

func (UnimplementedAnalyzerServiceServer) ExtractFeatures(context.Context, *ExtractFeaturesRequest) (*ExtractFeaturesResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ExtractFeatures not implemented")
}

// RegisterAnalyzerServiceServer registers srv with s.
func RegisterAnalyzerServiceServer(s grpc.ServiceRegistrar, srv AnalyzerServiceServer) {
	s.RegisterService(&analyzerServiceDesc, srv)
}

var analyzerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnalyzerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: analyzeHandler},
		{MethodName: "ExtractFeatures", Handler: extractFeaturesHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func analyzeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AnalyzeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalyzerServiceServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: analyzeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AnalyzerServiceServer).Analyze(ctx, req.(*AnalyzeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func extractFeaturesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ExtractFeaturesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalyzerServiceServer).ExtractFeatures(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: extractFeaturesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AnalyzerServiceServer).ExtractFeatures(ctx, req.(*ExtractFeaturesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// AnalyzerServiceClient is the client API for AnalyzerService.
type AnalyzerServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAnalyzerServiceClient wraps cc. Every call uses the JSON codec.
func NewAnalyzerServiceClient(cc grpc.ClientConnInterface) *AnalyzerServiceClient {
	return &AnalyzerServiceClient{cc: cc}
}

// Analyze calls AnalyzerService.Analyze.
func (c *AnalyzerServiceClient) Analyze(ctx context.Context, in *AnalyzeRequest, opts ...grpc.CallOption) (*AnalyzeResponse, error) {
	out := new(AnalyzeResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, analyzeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractFeatures calls AnalyzerService.ExtractFeatures.
func (c *AnalyzerServiceClient) ExtractFeatures(ctx context.Context, in *ExtractFeaturesRequest, opts ...grpc.CallOption) (*ExtractFeaturesResponse, error) {
	out := new(ExtractFeaturesResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, extractFeaturesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
