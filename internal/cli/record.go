package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chapter-verse/bookfront/internal/analytics"
	"github.com/chapter-verse/bookfront/internal/brand"
	"github.com/chapter-verse/bookfront/internal/store"
)

var (
	recordEvent    string
	recordVariant  string
	recordSession  string
	recordMetadata string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Write one analytics event to the database",
	Long: `Record a single analytics event directly in the database, the same way
the server does for page interactions. Useful for seeding a fresh database
or replaying an event by hand.

Examples:
  bookfront record --event hero_shop_click --variant poetic
  bookfront record --event pre_order_submission --variant modern \
    --session 1700000000000-abc123xyz --metadata '{"book_title":"Circe"}'`,
	Args: cobra.NoArgs,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordEvent, "event", "", "event type (required)")
	recordCmd.Flags().StringVar(&recordVariant, "variant", "", "brand variant, poetic or modern (required)")
	recordCmd.Flags().StringVar(&recordSession, "session", "", "session id (default: a new one)")
	recordCmd.Flags().StringVar(&recordMetadata, "metadata", "", "event metadata as a JSON object")
	recordCmd.MarkFlagRequired("event")
	recordCmd.MarkFlagRequired("variant")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	kind, err := analytics.ParseEventKind(recordEvent)
	if err != nil {
		return err
	}
	variant, err := brand.ParseVariant(recordVariant)
	if err != nil {
		return fmt.Errorf("invalid variant: %w", err)
	}

	var metadata map[string]any
	if recordMetadata != "" {
		if err := json.Unmarshal([]byte(recordMetadata), &metadata); err != nil {
			return fmt.Errorf("invalid metadata: %w", err)
		}
	}

	session := recordSession
	if session == "" {
		session = analytics.NewSessionID(time.Now())
	}

	return withStore(func(s *store.SQLiteStore) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		rec := analytics.NewRecorder(s, logger, analytics.RecorderOptions{})
		defer rec.Close(ctx)

		if err := rec.Track(ctx, kind, variant, session, metadata); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s for %s (session %s)\n", kind, variant.DisplayName(), session)
		return nil
	})
}
