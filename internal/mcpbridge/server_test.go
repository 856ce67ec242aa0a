package mcpbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jmerrifield20/phishlens/internal/analysis"
	"github.com/jmerrifield20/phishlens/internal/oracle"
	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rpcReply struct {
	ID     json.RawMessage `json:"id"`
	Result struct {
		ProtocolVersion string           `json:"protocolVersion"`
		Tools           []ToolDefinition `json:"tools"`
		Content         []struct {
			Text string `json:"text"`
		} `json:"content"`
		StructuredContent json.RawMessage `json:"structuredContent"`
		IsError           bool            `json:"isError"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

// roundTrip feeds lines to a fresh server and returns replies keyed by id.
func roundTrip(t *testing.T, o oracle.Oracle, lines ...string) map[string]rpcReply {
	t.Helper()
	return roundTripWith(t, o, nil, lines...)
}

func roundTripWith(t *testing.T, o oracle.Oracle, opts []Option, lines ...string) map[string]rpcReply {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithVersion("test")}, opts...)
	srv := NewServer(&out, NewToolRegistry(analysis.New(o, zap.NewNop())), zap.NewNop(), opts...)
	require.NoError(t, srv.Serve(context.Background(), strings.NewReader(strings.Join(lines, "\n"))))

	replies := make(map[string]rpcReply)
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r rpcReply
		require.NoError(t, dec.Decode(&r))
		replies[string(r.ID)] = r
	}
	return replies
}

func TestServe_initializeAndList(t *testing.T) {
	replies := roundTrip(t, nil,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
	)
	require.Len(t, replies, 3, "notifications get no reply")

	assert.Equal(t, protocolVersion, replies["1"].Result.ProtocolVersion)

	var names []string
	for _, d := range replies["2"].Result.Tools {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"analyze_url", "extract_features"}, names)
	assert.Nil(t, replies["3"].Error)
}

func TestServe_errors(t *testing.T) {
	replies := roundTrip(t, nil,
		`not json`,
		`{"jsonrpc":"2.0","id":7,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":8,"method":"tools/call","params":"bad"}`,
	)

	require.NotNil(t, replies["null"].Error)
	assert.Equal(t, codeParseError, replies["null"].Error.Code)
	require.NotNil(t, replies["7"].Error)
	assert.Equal(t, codeMethodNotFound, replies["7"].Error.Code)
	require.NotNil(t, replies["8"].Error)
	assert.Equal(t, codeInvalidParams, replies["8"].Error.Code)
}

func TestToolsCall_analyzeURL(t *testing.T) {
	replies := roundTrip(t, oracle.StaticOracle{Outcome: oracle.Failed(oracle.ErrTransport)},
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"analyze_url","arguments":{"url":"http://192.168.0.1@paypal.com.verify-account.net/login"}}}`,
	)

	r := replies["1"]
	require.Len(t, r.Result.Content, 1)
	assert.False(t, r.Result.IsError)
	text := r.Result.Content[0].Text
	assert.True(t, strings.HasPrefix(text, "PHISHING (risk 60/100, confidence 70%, source fallback)"), text)
	assert.Contains(t, text, analysis.FallbackVerdict)

	var out AnalyzeOutput
	require.NoError(t, json.Unmarshal(r.Result.StructuredContent, &out))
	assert.True(t, out.IsPhishing)
	assert.Equal(t, 60, out.RiskScore)
	assert.Equal(t, "fallback", out.Source)
	assert.True(t, out.Features.HasAtSymbol)
	assert.NotEmpty(t, out.AnalysisID)
	require.NotNil(t, out.Heuristic)
	assert.Equal(t, 60, out.Heuristic.Score)
}

func TestToolsCall_extractFeatures(t *testing.T) {
	called := false
	o := oracle.FuncOracle(func(context.Context, urlfeatures.URLFeatures, int) oracle.Outcome {
		called = true
		return oracle.Failed(nil)
	})
	replies := roundTrip(t, o,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"extract_features","arguments":{"url":"https://example.com"}}}`,
	)

	r := replies["1"]
	require.Len(t, r.Result.Content, 1)
	assert.False(t, r.Result.IsError)

	var payload struct {
		Features  map[string]any `json:"features"`
		Heuristic map[string]any `json:"heuristic"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.Result.Content[0].Text), &payload))
	assert.Equal(t, true, payload.Features["hasHttps"])
	assert.Equal(t, float64(0), payload.Heuristic["score"])
	assert.False(t, called)

	var out FeaturesOutput
	require.NoError(t, json.Unmarshal(r.Result.StructuredContent, &out))
	assert.True(t, out.Features.HasHTTPS)
}

func TestToolsCall_invalidArguments(t *testing.T) {
	replies := roundTrip(t, nil,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"analyze_url","arguments":{"url":"  "}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"nope","arguments":{}}}`,
	)

	for _, id := range []string{"1", "2"} {
		r := replies[id]
		require.Len(t, r.Result.Content, 1, id)
		assert.True(t, r.Result.IsError, id)
	}
	assert.Equal(t, "url is required", replies["1"].Result.Content[0].Text)
}

// blockingOracle waits until its context ends.
func blockingOracle() oracle.Oracle {
	return oracle.FuncOracle(func(ctx context.Context, _ urlfeatures.URLFeatures, _ int) oracle.Outcome {
		<-ctx.Done()
		return oracle.Failed(ctx.Err())
	})
}

func TestToolsCall_timeout(t *testing.T) {
	replies := roundTripWith(t, blockingOracle(), []Option{WithCallTimeout(20 * time.Millisecond)},
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"analyze_url","arguments":{"url":"http://example.com"}}}`,
	)

	r := replies["1"]
	require.Len(t, r.Result.Content, 1)
	assert.True(t, r.Result.IsError)
	assert.Equal(t, "analysis timed out", r.Result.Content[0].Text)
}

func TestToolsCall_cancelledByHost(t *testing.T) {
	replies := roundTrip(t, blockingOracle(),
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"analyze_url","arguments":{"url":"http://example.com"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":5,"reason":"user moved on"}}`,
		`{"jsonrpc":"2.0","id":6,"method":"ping"}`,
	)

	_, answered := replies["5"]
	assert.False(t, answered, "cancelled calls get no reply")
	assert.Contains(t, replies, "6")
}

func TestToolsList_outputSchemas(t *testing.T) {
	for _, d := range NewToolRegistry(nil).Definitions() {
		assert.NotEmpty(t, d.OutputSchema, d.Name)
		assert.Equal(t, urlInputSchema, d.InputSchema, d.Name)
	}
}
