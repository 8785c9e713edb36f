package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/chapter-verse/bookfront/internal/analytics"
	"github.com/chapter-verse/bookfront/internal/brand"
	"github.com/chapter-verse/bookfront/internal/config"
	"github.com/chapter-verse/bookfront/internal/server"
	"github.com/chapter-verse/bookfront/internal/store"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the bookfront HTTP server.

The server provides:
  - Brand assignment for the marketing page
  - Event endpoint for the brand experiment
  - Pre-order, contact and saved-book forms
  - Dashboard for viewing results

Configuration is read from BOOKFRONT_* environment variables and an
optional .env file.

Example:
  bookfront serve --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default $BOOKFRONT_PORT or 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = dbPath
	}
	if port != 0 {
		cfg.Port = port
	}
	if cfg.GeneratedSessionKey {
		logger.Warn("using a generated session secret; visitor cookies will not survive a restart")
	}

	// Open database
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	recorder := analytics.NewRecorder(s, logger.Named("analytics"), analytics.RecorderOptions{})

	srv := server.New(s, recorder, server.Options{
		Port:               cfg.Port,
		TokenFile:          tokenFilePath(cfg.DBPath),
		SessionSecret:      cfg.SessionSecret,
		SecureCookies:      !cfg.Development(),
		AllowBrandOverride: cfg.AllowBrandOverride,
		EventRate:          rate.Limit(cfg.EventRatePerSecond),
		EventBurst:         cfg.EventBurst,
		Logger:             logger.Named("http"),
		Assigner:           brand.NewAssigner(brand.WithLogger(logger.Named("brand"))),
	})

	printStartup(cmd.OutOrStdout(), cfg, srv.Token())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := srv.Start(ctx)

	// Drain queued events before the store closes.
	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := recorder.Close(drainCtx); err != nil {
		logger.Warn("analytics events lost on shutdown", zap.Error(err))
	}

	return serveErr
}

func printStartup(w io.Writer, cfg *config.Config, token string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Server running at http://localhost:%d\n", cfg.Port)
	fmt.Fprintf(w, "Dashboard: http://localhost:%d/dashboard?token=%s\n", cfg.Port, token)
	if cfg.AllowBrandOverride {
		fmt.Fprintf(w, "Brand override enabled: add ?brand=%s or ?brand=%s\n", brand.Poetic, brand.Modern)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  report     Show the brand experiment results")
	fmt.Fprintln(w, "  export     Export raw analytics events")
	fmt.Fprintln(w, "  token      Show dashboard URL")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Press Ctrl+C to stop")
}
