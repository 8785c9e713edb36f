package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chapter-verse/bookfront/internal/analytics"
	"github.com/chapter-verse/bookfront/internal/brand"
	"github.com/chapter-verse/bookfront/internal/store"
)

var (
	exportFormat  string
	exportVariant string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export raw event data",
	Long: `Export raw analytics events in CSV or JSON format.

Examples:
  bookfront export --format csv > events.csv
  bookfront export --format json > events.json
  bookfront export --variant modern`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv or json)")
	exportCmd.Flags().StringVar(&exportVariant, "variant", "", "only export events for this brand (poetic or modern)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "csv" && exportFormat != "json" {
		return fmt.Errorf("invalid format: must be 'csv' or 'json'")
	}

	filter := store.EventFilter{}
	if exportVariant != "" {
		v, err := brand.ParseVariant(exportVariant)
		if err != nil {
			return fmt.Errorf("invalid variant: %w", err)
		}
		filter.Variant = string(v)
	}

	return withStore(func(s *store.SQLiteStore) error {
		events, err := s.ListEvents(context.Background(), filter)
		if err != nil {
			return fmt.Errorf("failed to get events: %w", err)
		}

		if exportFormat == "csv" {
			return exportCSV(cmd.OutOrStdout(), events)
		}
		return exportJSON(cmd.OutOrStdout(), events)
	})
}

func exportCSV(out io.Writer, events []analytics.Event) error {
	w := csv.NewWriter(out)

	// Write header
	if err := w.Write([]string{"id", "timestamp", "event_type", "brand_variant", "session_id", "metadata"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Write rows
	for _, e := range events {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", e.ID, err)
		}
		row := []string{
			e.ID,
			strconv.FormatInt(e.CreatedAt.UnixMilli(), 10),
			string(e.Kind),
			string(e.Variant),
			e.SessionID,
			string(metadata),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

type jsonExport struct {
	Events []jsonEvent `json:"events"`
}

type jsonEvent struct {
	ID        string         `json:"id"`
	Timestamp int64          `json:"timestamp"`
	EventType string         `json:"event_type"`
	Variant   string         `json:"brand_variant"`
	SessionID string         `json:"session_id"`
	Metadata  map[string]any `json:"metadata"`
}

func exportJSON(out io.Writer, events []analytics.Event) error {
	export := jsonExport{
		Events: make([]jsonEvent, len(events)),
	}

	for i, e := range events {
		export.Events[i] = jsonEvent{
			ID:        e.ID,
			Timestamp: e.CreatedAt.UnixMilli(),
			EventType: string(e.Kind),
			Variant:   string(e.Variant),
			SessionID: e.SessionID,
			Metadata:  e.Metadata,
		}
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}
