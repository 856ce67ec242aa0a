package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmerrifield20/phishlens/pkg/client"
	"github.com/spf13/cobra"
)

// ── verdicts ─────────────────────────────────────────────────────────────────

var (
	verdictsLimit  int
	verdictsFormat string
	verdictsVerify bool
)

var verdictsCmd = &cobra.Command{
	Use:   "verdicts",
	Short: "List recent verdicts recorded by a phishlens-server",
	Long: `Verdicts shows the newest entries of the server's tamper-evident verdict
log. With --verify the server re-checks the whole hash chain.

  phishlens --server http://localhost:8080 verdicts --limit 10 --verify`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverURL == "" {
			return errors.New("verdicts requires --server")
		}
		if err := checkFormat(verdictsFormat); err != nil {
			return err
		}
		c, err := client.New(serverURL)
		if err != nil {
			return err
		}
		ctx := context.Background()

		entries, err := c.RecentVerdicts(ctx, verdictsLimit)
		if err != nil {
			return fmt.Errorf("list verdicts: %w", err)
		}

		out := cmd.OutOrStdout()
		if verdictsFormat == "json" {
			if err := printJSON(out, entries); err != nil {
				return err
			}
		} else if err := printVerdicts(out, entries); err != nil {
			return err
		}

		if !verdictsVerify {
			return nil
		}
		valid, reason, err := c.VerifyVerdicts(ctx)
		if err != nil {
			return fmt.Errorf("verify verdict log: %w", err)
		}
		if !valid {
			return fmt.Errorf("verdict log integrity check failed: %s", reason)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "verdict log chain verified")
		return nil
	},
}

func init() {
	verdictsCmd.Flags().IntVar(&verdictsLimit, "limit", 20, "Number of entries to show (max 100)")
	verdictsCmd.Flags().StringVar(&verdictsFormat, "format", "text", "Output format: text or json")
	verdictsCmd.Flags().BoolVar(&verdictsVerify, "verify", false, "Also verify the log's hash chain")
}
