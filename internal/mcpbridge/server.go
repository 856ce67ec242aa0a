// Package mcpbridge implements a Model Context Protocol (MCP) server that
// exposes PhishLens URL analysis as MCP tools.
//
// The server speaks JSON-RPC 2.0 over stdio, which is the standard transport
// for local MCP hosts. Tool calls run concurrently, each under its own
// deadline, and a host may abandon one with notifications/cancelled.
package mcpbridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

const protocolVersion = "2025-06-18"

// maxMessageSize bounds a single inbound JSON-RPC line.
const maxMessageSize = 1 << 20

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"` // nil = notification
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// methodFunc answers one request. A nil result and nil error means no reply.
type methodFunc func(ctx context.Context, req rpcRequest) (any, *rpcError)

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported in serverInfo.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithCallTimeout bounds every tools/call. Zero means no bound beyond the
// analyzer's own oracle timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Server) { s.callTimeout = d }
}

// Server is a stdio MCP server.
type Server struct {
	tools       *ToolRegistry
	version     string
	callTimeout time.Duration
	logger      *zap.Logger
	methods     map[string]methodFunc

	outMu sync.Mutex
	out   *json.Encoder

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	calls    sync.WaitGroup
}

// NewServer creates an MCP server that writes responses to w. logger must
// not write to w.
func NewServer(w io.Writer, tools *ToolRegistry, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		tools:    tools,
		version:  "dev",
		logger:   logger,
		out:      json.NewEncoder(w),
		inflight: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.methods = map[string]methodFunc{
		"initialize": s.initialize,
		"ping":       func(context.Context, rpcRequest) (any, *rpcError) { return struct{}{}, nil },
		"tools/list": s.listTools,
		"tools/call": s.callTool,
	}
	return s
}

// Serve reads newline-delimited JSON-RPC messages from r until EOF or ctx
// is cancelled. It returns once every in-flight tool call has answered.
func (s *Server) Serve(ctx context.Context, r io.Reader) error {
	defer s.calls.Wait()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxMessageSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.reply(json.RawMessage(`null`), nil, &rpcError{Code: codeParseError, Message: "parse error"})
			continue
		}
		if len(req.ID) == 0 {
			s.notify(req)
			continue
		}
		if req.Method == "tools/call" {
			s.startCall(ctx, req)
			continue
		}
		s.handle(ctx, req)
	}
	return scanner.Err()
}

func (s *Server) handle(ctx context.Context, req rpcRequest) {
	m, ok := s.methods[req.Method]
	if !ok {
		s.reply(req.ID, nil, &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)})
		return
	}
	result, rerr := m(ctx, req)
	if result == nil && rerr == nil {
		return
	}
	s.reply(req.ID, result, rerr)
}

// startCall runs a tool call in the background under its own cancellable
// context, registered by request id.
func (s *Server) startCall(ctx context.Context, req rpcRequest) {
	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if s.callTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	key := string(req.ID)

	s.mu.Lock()
	s.inflight[key] = cancel
	s.mu.Unlock()

	s.calls.Add(1)
	go func() {
		defer s.calls.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
			cancel()
		}()
		s.handle(callCtx, req)
	}()
}

// notify handles the notifications a host may send. Only cancellation
// changes server state.
func (s *Server) notify(req rpcRequest) {
	if req.Method != "notifications/cancelled" {
		return
	}
	var p struct {
		RequestID json.RawMessage `json:"requestId"`
		Reason    string          `json:"reason"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil || len(p.RequestID) == 0 {
		return
	}
	s.mu.Lock()
	cancel, ok := s.inflight[string(p.RequestID)]
	s.mu.Unlock()
	if ok {
		s.logger.Info("tool call cancelled by host",
			zap.String("request_id", string(p.RequestID)),
			zap.String("reason", p.Reason),
		)
		cancel()
	}
}

func (s *Server) initialize(context.Context, rpcRequest) (any, *rpcError) {
	return map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{"tools": map[string]any{}},
		"serverInfo":      map[string]any{"name": "phishlens-mcp", "version": s.version},
	}, nil
}

func (s *Server) listTools(context.Context, rpcRequest) (any, *rpcError) {
	return map[string]any{"tools": s.tools.Definitions()}, nil
}

// callResult is the MCP tools/call result body.
type callResult struct {
	Content           []textContent `json:"content"`
	StructuredContent any           `json:"structuredContent,omitempty"`
	IsError           bool          `json:"isError"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (s *Server) callTool(ctx context.Context, req rpcRequest) (any, *rpcError) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid params"}
	}

	start := time.Now()
	res := s.tools.Call(ctx, params.Name, params.Arguments)
	if errors.Is(ctx.Err(), context.Canceled) {
		// The host abandoned the request; it expects no reply.
		return nil, nil
	}
	s.logger.Info("tool call",
		zap.String("tool", params.Name),
		zap.Bool("is_error", res.IsError),
		zap.Duration("duration", time.Since(start)),
	)
	return callResult{
		Content:           []textContent{{Type: "text", Text: res.Text}},
		StructuredContent: res.Structured,
		IsError:           res.IsError,
	}, nil
}

func (s *Server) reply(id json.RawMessage, result any, rerr *rpcError) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if err := s.out.Encode(rpcResponse{JSONRPC: "2.0", ID: id, Result: result, Error: rerr}); err != nil {
		s.logger.Warn("write error", zap.Error(err))
	}
}
