// phishlens-mcp exposes URL phishing analysis as MCP tools, so any
// MCP-compatible AI host can ask whether a link is safe to open.
//
// Add to an MCP host's server list:
//
//	{
//	  "mcpServers": {
//	    "phishlens": {
//	      "command": "/path/to/phishlens-mcp",
//	      "env": {"GEMINI_API_KEY": "..."}
//	    }
//	  }
//	}
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jmerrifield20/phishlens/internal/analysis"
	"github.com/jmerrifield20/phishlens/internal/config"
	"github.com/jmerrifield20/phishlens/internal/mcpbridge"
	"github.com/jmerrifield20/phishlens/internal/oracle"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile string
	offline bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "phishlens-mcp",
	Short: "MCP bridge for PhishLens URL analysis",
	Long: `phishlens-mcp is a stdio MCP server that exposes two tools to any
MCP-compatible AI host:

  analyze_url      assess a URL and return a phishing verdict
  extract_features show the URL's lexical features and heuristic score

The bridge runs in stdio mode (the MCP standard for local servers).
All logging goes to stderr so it does not interfere with the protocol.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default configs/phishlens.yaml)")
	rootCmd.Flags().BoolVar(&offline, "offline", false, "never call the AI model; heuristic verdicts only")
}

func newStderrLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	return cfg.Build()
}

func run(cmd *cobra.Command, _ []string) error {
	logger, err := newStderrLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(config.Options{File: cfgFile}, logger)
	if err != nil {
		return err
	}

	var o oracle.Oracle
	if offline {
		o = oracle.NewUnavailableOracle(logger)
	} else {
		o = cfg.Oracle.NewOracle(logger)
	}
	analyzer := analysis.New(o, logger,
		analysis.WithOracleTimeout(cfg.Oracle.Timeout),
		analysis.WithCacheTTL(cfg.Analysis.CacheTTL),
	)
	analyzer.StartCacheEviction(cmd.Context(), cfg.Analysis.CacheTTL)

	tools := mcpbridge.NewToolRegistry(analyzer)
	// Leave room for the heuristic path after an oracle timeout.
	callTimeout := cfg.Oracle.Timeout
	if callTimeout == 0 {
		callTimeout = analysis.DefaultOracleTimeout
	}
	server := mcpbridge.NewServer(os.Stdout, tools, logger,
		mcpbridge.WithVersion(version),
		mcpbridge.WithCallTimeout(callTimeout+5*time.Second),
	)

	logger.Info("phishlens MCP bridge ready", zap.Strings("tools", []string{"analyze_url", "extract_features"}))
	return server.Serve(cmd.Context(), os.Stdin)
}
