package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chapter-verse/bookfront/internal/config"
)

var tokenBaseURL string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show dashboard URL with access token",
	Long: `Show the dashboard URL with your access token.

Use this when you've scrolled past the startup message or need to
share the dashboard link. The token changes every time the server starts.

Example:
  bookfront token
  bookfront token --url https://books.example.com`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenBaseURL, "url", "", "public server URL (default http://localhost:$BOOKFRONT_PORT)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("url") {
		tokenBaseURL = config.BaseURL()
	}

	data, err := os.ReadFile(tokenFilePath(dbPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no server running. Start with: bookfront")
		}
		return fmt.Errorf("failed to read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return fmt.Errorf("token file is empty. Restart the server with: bookfront")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Dashboard: %s/dashboard?token=%s\n", strings.TrimRight(tokenBaseURL, "/"), token)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Tip: Bookmark this URL or run 'bookfront token' anytime.")
	return nil
}
