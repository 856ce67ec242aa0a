package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmerrifield20/phishlens/internal/analysis"
	"github.com/jmerrifield20/phishlens/pkg/client"
	"github.com/spf13/cobra"
)

// ── analyze ──────────────────────────────────────────────────────────────────

var analyzeFormat string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url> [url] ...",
	Short: "Assess one or more URLs for phishing risk",
	Long: `Analyze extracts lexical features from each URL, scores them and asks the
AI model (when configured) for a verdict. If the model cannot be reached the
heuristic verdict is reported instead.

  phishlens analyze "http://192.168.0.1@paypal.com.verify-account.net/login"

Multiple URLs are analysed concurrently and displayed as a table:

  phishlens analyze --offline example.com paypal-secure-login.tk`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "text", "Output format: text or json")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	for _, raw := range args {
		if analysis.IsBlank(raw) {
			return errors.New("url must not be empty")
		}
	}
	if err := checkFormat(analyzeFormat); err != nil {
		return err
	}

	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	b, err := newBackend(logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var results []*client.Assessment
	if len(args) == 1 {
		a, err := b.Analyze(ctx, args[0])
		if err != nil {
			return fmt.Errorf("analyze %q: %w", args[0], err)
		}
		results = []*client.Assessment{a}
	} else {
		results, err = b.AnalyzeBatch(ctx, args)
		if err != nil {
			return fmt.Errorf("analyze batch: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if analyzeFormat == "json" {
		return printJSON(out, unwrapSingle(results))
	}
	if len(results) == 1 {
		return printAssessment(out, results[0])
	}
	return printAssessmentTable(out, results)
}

// ── features ─────────────────────────────────────────────────────────────────

var featuresFormat string

var featuresCmd = &cobra.Command{
	Use:   "features <url>",
	Short: "Show the lexical features and heuristic score of a URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if analysis.IsBlank(args[0]) {
			return errors.New("url must not be empty")
		}
		if err := checkFormat(featuresFormat); err != nil {
			return err
		}

		logger := newLogger()
		defer logger.Sync() //nolint:errcheck

		b, err := newBackend(logger)
		if err != nil {
			return err
		}
		res, err := b.Features(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("features %q: %w", args[0], err)
		}

		if featuresFormat == "json" {
			return printJSON(cmd.OutOrStdout(), res)
		}
		return printFeatures(cmd.OutOrStdout(), res)
	},
}

func init() {
	featuresCmd.Flags().StringVar(&featuresFormat, "format", "text", "Output format: text or json")
}

func checkFormat(f string) error {
	switch f {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", f)
	}
}

// unwrapSingle returns the only element of a one-item slice, for
// friendlier JSON output.
func unwrapSingle(results []*client.Assessment) any {
	if len(results) == 1 {
		return results[0]
	}
	return results
}
