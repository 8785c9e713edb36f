package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chapter-verse/bookfront/internal/config"
	"github.com/chapter-verse/bookfront/internal/logging"
)

var (
	dbPath  string
	verbose bool

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "bookfront",
	Short: "Bookfront - marketing site backend for the bookstore brand experiment",
	Long: `Bookfront serves the bookstore marketing site API, assigns each visitor
one of two brand identities, and records which one converts better.

Running without a subcommand starts the server (same as 'bookfront serve').`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadDotEnv()
		if !cmd.Flags().Changed("db") {
			dbPath = config.DBPath()
		}

		l, err := logging.New(os.Getenv("BOOKFRONT_ENV") == config.EnvDevelopment, verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runServe, // Default action is to start server
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath, "database path (default $BOOKFRONT_DB_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default $BOOKFRONT_PORT or 8080)")
}
