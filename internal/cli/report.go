package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chapter-verse/bookfront/internal/analytics"
	"github.com/chapter-verse/bookfront/internal/store"
)

var (
	reportSince time.Duration
	reportJSON  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the brand experiment results",
	Long: `Show per-brand sessions, entries, conversions and conversion rates,
with 95% confidence intervals and the current leader.

Examples:
  bookfront report
  bookfront report --since 24h
  bookfront report --json`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().DurationVar(&reportSince, "since", 0, "only count events newer than this (e.g. 24h)")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		filter := store.EventFilter{}
		if reportSince > 0 {
			filter.Since = time.Now().Add(-reportSince)
		}

		events, err := s.ListEvents(context.Background(), filter)
		if err != nil {
			return fmt.Errorf("failed to get events: %w", err)
		}

		report := analytics.BuildReport(events)

		if reportJSON {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(report)
		}
		printReport(cmd.OutOrStdout(), report, filter.Since)
		return nil
	})
}

func printReport(w io.Writer, r analytics.Report, since time.Time) {
	// Print header
	fmt.Fprintln(w, "EXPERIMENT: brand")
	if !since.IsZero() {
		fmt.Fprintf(w, "SINCE: %s\n", since.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "EVENTS: %d\n", r.TotalEvents)
	fmt.Fprintln(w)

	// Print table header
	fmt.Fprintln(w, "VARIANT           SESSIONS  ENTRIES  CONVERSIONS  RATE     95% CI")
	fmt.Fprintln(w, strings.Repeat("─", 70))

	for _, m := range r.Metrics {
		indicator := ""
		if !r.Winner.Tie && m.Variant == r.Winner.Variant {
			indicator = " ← LEADING"
		}

		ciStr := fmt.Sprintf("[%.1f%%, %.1f%%]", m.RateLower, m.RateUpper)
		if m.EntryCount == 0 {
			ciStr = "N/A"
		}

		fmt.Fprintf(w, "%-16s  %-8d  %-7d  %-11d  %-7s  %s%s\n",
			m.Name,
			m.SessionCount,
			m.EntryCount,
			m.ConversionCount,
			formatPercent(m.ConversionRate),
			ciStr,
			indicator,
		)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Verdict())
	if r.Excluded > 0 {
		fmt.Fprintf(w, "%d malformed events excluded\n", r.Excluded)
	}
}

// formatPercent prints an already-rounded percentage.
func formatPercent(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", rate)
}
