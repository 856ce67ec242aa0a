package main

import (
	"fmt"
	"os"

	"github.com/jmerrifield20/phishlens/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	cfgFile   string
	offline   bool
	verbose   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "phishlens",
	Short: "Phishing risk analysis for URLs",
	Long: `phishlens scores URLs for phishing risk.

Analysis runs locally by default: lexical features are extracted, a
heuristic score is computed and, when an API key is configured, an AI model
reviews the result. Use --server to send URLs to a phishlens-server instead.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default configs/phishlens.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "phishlens-server base URL; analyse locally when empty")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "skip the AI model and use the heuristic verdict only")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(verdictsCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger returns a stderr logger when --verbose is set and a no-op one
// otherwise, so stdout stays clean for piping.
func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newBackend picks the remote client or a local analyzer from the flags.
func newBackend(logger *zap.Logger) (backend, error) {
	if serverURL != "" {
		return newRemoteBackend(serverURL)
	}
	cfg, err := config.Load(config.Options{File: cfgFile}, logger)
	if err != nil {
		return nil, err
	}
	return newLocalBackend(cfg, offline, logger), nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the phishlens CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "phishlens %s\n", version)
	},
}
