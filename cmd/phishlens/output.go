package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/jmerrifield20/phishlens/pkg/client"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func verdictLabel(isPhishing bool) string {
	if isPhishing {
		return "PHISHING"
	}
	return "SAFE"
}

func percent(c float64) int {
	return int(math.Round(c * 100))
}

func printAssessment(w io.Writer, a *client.Assessment) error {
	r := a.Result
	fmt.Fprintf(w, "URL:         %s\n", r.Features.URL)
	fmt.Fprintf(w, "Verdict:     %s\n", verdictLabel(r.IsPhishing))
	fmt.Fprintf(w, "Risk score:  %d/100\n", r.RiskScore)
	fmt.Fprintf(w, "Confidence:  %d%%\n", percent(r.Confidence))
	fmt.Fprintf(w, "Source:      %s", a.Source)
	if a.Cached {
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)
	if a.Heuristic != nil {
		fmt.Fprintf(w, "Heuristic:   %d (%s)\n", a.Heuristic.Score, a.Heuristic.Severity)
	}
	fmt.Fprintf(w, "AI verdict:  %s\n", r.AIVerdict)

	if a.Heuristic != nil {
		return printReportDetails(w, a.Heuristic)
	}
	return nil
}

func printAssessmentTable(w io.Writer, results []*client.Assessment) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tVERDICT\tRISK\tCONFIDENCE\tSOURCE")
	for _, a := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d%%\t%s\n",
			a.Result.Features.URL, verdictLabel(a.Result.IsPhishing),
			a.Result.RiskScore, percent(a.Result.Confidence), a.Source)
	}
	return tw.Flush()
}

func printFeatures(w io.Writer, res *client.FeaturesResult) error {
	f := res.Features
	fmt.Fprintf(w, "URL:          %s\n", f.URL)
	fmt.Fprintf(w, "Length:       %d\n", f.Length)
	fmt.Fprintf(w, "Has @:        %t\n", f.HasAtSymbol)
	fmt.Fprintf(w, "HTTPS:        %t\n", f.HasHTTPS)
	fmt.Fprintf(w, "Dots:         %d\n", f.DotCount)
	fmt.Fprintf(w, "IP host:      %t\n", f.IsIPAddress)
	if res.Heuristic == nil {
		return nil
	}
	fmt.Fprintf(w, "Heuristic:    %d (%s)\n", res.Heuristic.Score, res.Heuristic.Severity)
	return printReportDetails(w, res.Heuristic)
}

func printReportDetails(w io.Writer, r *client.HeuristicReport) error {
	if len(r.Signals) > 0 {
		fmt.Fprintln(w, "\nSignals:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, s := range r.Signals {
			fmt.Fprintf(tw, "  [%s]\t%s\t%s\n", s.Status, s.Name, s.Value)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if len(r.Findings) > 0 {
		fmt.Fprintln(w, "\nFindings:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, f := range r.Findings {
			fmt.Fprintf(tw, "  +%d\t%s\t%s\n", f.Weight, f.Rule, f.Description)
		}
		return tw.Flush()
	}
	return nil
}

func printVerdicts(w io.Writer, entries []client.VerdictEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tTIME\tVERDICT\tRISK\tSOURCE\tURL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			e.Index, e.Timestamp.Format("2006-01-02 15:04:05"), e.Verdict, e.RiskScore, e.Source, e.URL)
	}
	return tw.Flush()
}
