package cli

import (
	"fmt"
	"path/filepath"

	"github.com/chapter-verse/bookfront/internal/store"
)

// withStore opens the database, executes the function, and handles cleanup.
func withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

// tokenFilePath returns where the running server keeps its admin token,
// alongside the database.
func tokenFilePath(db string) string {
	return filepath.Join(filepath.Dir(db), ".bookfront-token")
}
