package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jmerrifield20/phishlens/internal/analysis"
	"github.com/jmerrifield20/phishlens/internal/config"
	"github.com/spf13/cobra"
)

// ── interactive ──────────────────────────────────────────────────────────────

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Analyse URLs typed one per line",
	Long: `Interactive reads URLs from standard input, one per line, and prints a
verdict for each. Entering a new URL while the previous one is still being
analysed abandons the earlier request; only the latest result is shown.

Type "quit" or send EOF to exit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverURL != "" {
			return errors.New("interactive mode analyses locally; drop --server")
		}

		logger := newLogger()
		defer logger.Sync() //nolint:errcheck

		cfg, err := config.Load(config.Options{File: cfgFile}, logger)
		if err != nil {
			return err
		}
		b := newLocalBackend(cfg, offline, logger)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runInteractive(ctx, analysis.NewSession(b.analyzer), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runInteractive feeds each non-blank input line to s. Results are printed
// as they arrive; superseded submissions print nothing.
func runInteractive(ctx context.Context, s *analysis.Session, in io.Reader, out io.Writer) error {
	var (
		wg    sync.WaitGroup
		outMu sync.Mutex
	)
	defer wg.Wait()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if analysis.IsBlank(line) {
			continue
		}
		if strings.TrimSpace(line) == "quit" {
			s.Cancel()
			return nil
		}

		wg.Add(1)
		go func(raw string) {
			defer wg.Done()
			res, err := s.Submit(ctx, raw)

			outMu.Lock()
			defer outMu.Unlock()
			switch {
			case errors.Is(err, analysis.ErrSuperseded):
			case err != nil:
				fmt.Fprintf(out, "error: %s: %v\n", raw, err)
			default:
				_ = printAssessment(out, toClientAssessment(res))
				fmt.Fprintln(out)
			}
		}(line)
	}
	return scanner.Err()
}
