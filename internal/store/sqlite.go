package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chapter-verse/bookfront/internal/analytics"
	"github.com/chapter-verse/bookfront/internal/brand"
)

var ErrNotFound = errors.New("not found")

type SQLiteStore struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS analytics_events (
    id TEXT PRIMARY KEY,
    event_type TEXT NOT NULL,
    brand_variant TEXT NOT NULL,
    session_id TEXT NOT NULL,
    metadata TEXT NOT NULL DEFAULT '{}',
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_variant ON analytics_events(brand_variant);
CREATE INDEX IF NOT EXISTS idx_events_created ON analytics_events(created_at);

CREATE TABLE IF NOT EXISTS pre_orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    book_title TEXT NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_pre_orders_title ON pre_orders(book_title);

CREATE TABLE IF NOT EXISTS contact_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    message TEXT NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS saved_books (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    visitor_id TEXT NOT NULL,
    book_title TEXT NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_saved_books_visitor_title ON saved_books(visitor_id, book_title);

CREATE TABLE IF NOT EXISTS subscription_selections (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    visitor_id TEXT NOT NULL UNIQUE,
    tier_name TEXT NOT NULL,
    price_monthly INTEGER NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; the pragmas below are per connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertEvent appends one analytics event.
func (s *SQLiteStore) InsertEvent(ctx context.Context, e *analytics.Event) error {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analytics_events (id, event_type, brand_variant, session_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), string(e.Variant), e.SessionID, string(metadataJSON), e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// ListEvents reads a snapshot of the event log, oldest first. Rows are
// returned as stored; callers decide what counts as malformed.
func (s *SQLiteStore) ListEvents(ctx context.Context, filter EventFilter) ([]analytics.Event, error) {
	query := `SELECT id, event_type, brand_variant, session_id, metadata, created_at FROM analytics_events`

	var where []string
	var args []any
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UnixMilli())
	}
	if filter.Variant != "" {
		where = append(where, "brand_variant = ?")
		args = append(args, filter.Variant)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []analytics.Event
	for rows.Next() {
		var e analytics.Event
		var kind, variant, metadataJSON string
		var createdAt int64
		if err := rows.Scan(&e.ID, &kind, &variant, &e.SessionID, &metadataJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = analytics.EventKind(kind)
		e.Variant = brand.Variant(variant)
		e.CreatedAt = time.UnixMilli(createdAt)

		if err := json.Unmarshal([]byte(metadataJSON), &e.Metadata); err != nil || e.Metadata == nil {
			e.Metadata = map[string]any{}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	return events, nil
}

func (s *SQLiteStore) CountEvents(ctx context.Context) (int, error) {
	return s.count(ctx, "analytics_events")
}

func (s *SQLiteStore) CreatePreOrder(ctx context.Context, name, email, bookTitle string) (*PreOrder, error) {
	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO pre_orders (name, email, book_title, created_at) VALUES (?, ?, ?, ?)`,
		name, email, bookTitle, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert pre-order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return &PreOrder{
		ID:        id,
		Name:      name,
		Email:     email,
		BookTitle: bookTitle,
		CreatedAt: time.Unix(now, 0),
	}, nil
}

func (s *SQLiteStore) CountPreOrders(ctx context.Context) (int, error) {
	return s.count(ctx, "pre_orders")
}

// PopularTitles ranks pre-ordered titles by count, ties broken by title.
func (s *SQLiteStore) PopularTitles(ctx context.Context, limit int) ([]TitleCount, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT book_title, COUNT(*) AS n
		FROM pre_orders
		GROUP BY book_title
		ORDER BY n DESC, book_title ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get popular titles: %w", err)
	}
	defer rows.Close()

	var titles []TitleCount
	for rows.Next() {
		var tc TitleCount
		if err := rows.Scan(&tc.Title, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		titles = append(titles, tc)
	}

	return titles, rows.Err()
}

func (s *SQLiteStore) CreateContactMessage(ctx context.Context, name, email, message string) (*ContactMessage, error) {
	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_messages (name, email, message, created_at) VALUES (?, ?, ?, ?)`,
		name, email, message, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert contact message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return &ContactMessage{
		ID:        id,
		Name:      name,
		Email:     email,
		Message:   message,
		CreatedAt: time.Unix(now, 0),
	}, nil
}

func (s *SQLiteStore) CountContactMessages(ctx context.Context) (int, error) {
	return s.count(ctx, "contact_messages")
}

// SaveBook adds a title to a visitor's wishlist. Saving twice is a no-op.
func (s *SQLiteStore) SaveBook(ctx context.Context, visitorID, bookTitle string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO saved_books (visitor_id, book_title, created_at) VALUES (?, ?, ?)`,
		visitorID, bookTitle, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save book: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UnsaveBook(ctx context.Context, visitorID, bookTitle string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM saved_books WHERE visitor_id = ? AND book_title = ?`,
		visitorID, bookTitle,
	)
	if err != nil {
		return fmt.Errorf("failed to unsave book: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLiteStore) ListSavedBooks(ctx context.Context, visitorID string) ([]*SavedBook, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, visitor_id, book_title, created_at
		 FROM saved_books WHERE visitor_id = ? ORDER BY created_at DESC, id DESC`,
		visitorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved books: %w", err)
	}
	defer rows.Close()

	var books []*SavedBook
	for rows.Next() {
		var b SavedBook
		var createdAt int64
		if err := rows.Scan(&b.ID, &b.VisitorID, &b.BookTitle, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan saved book: %w", err)
		}
		b.CreatedAt = time.Unix(createdAt, 0)
		books = append(books, &b)
	}

	return books, rows.Err()
}

func (s *SQLiteStore) CountSavedBooks(ctx context.Context) (int, error) {
	return s.count(ctx, "saved_books")
}

// SelectSubscription records the visitor's chosen tier. Choosing again
// replaces the earlier selection.
func (s *SQLiteStore) SelectSubscription(ctx context.Context, visitorID, tierName string, priceMonthly int) (*SubscriptionSelection, error) {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscription_selections (visitor_id, tier_name, price_monthly, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(visitor_id) DO UPDATE SET
		     tier_name = excluded.tier_name,
		     price_monthly = excluded.price_monthly,
		     created_at = excluded.created_at`,
		visitorID, tierName, priceMonthly, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save subscription selection: %w", err)
	}
	return s.GetSubscription(ctx, visitorID)
}

func (s *SQLiteStore) GetSubscription(ctx context.Context, visitorID string) (*SubscriptionSelection, error) {
	var sel SubscriptionSelection
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, visitor_id, tier_name, price_monthly, created_at
		 FROM subscription_selections WHERE visitor_id = ?`,
		visitorID,
	).Scan(&sel.ID, &sel.VisitorID, &sel.TierName, &sel.PriceMonthly, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription selection: %w", err)
	}
	sel.CreatedAt = time.Unix(createdAt, 0)
	return &sel, nil
}

// SubscriptionsByTier counts current selections per tier name, most
// popular first.
func (s *SQLiteStore) SubscriptionsByTier(ctx context.Context) ([]TierCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tier_name, COUNT(*) AS n
		FROM subscription_selections
		GROUP BY tier_name
		ORDER BY n DESC, tier_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	defer rows.Close()

	var counts []TierCount
	for rows.Next() {
		var tc TierCount
		if err := rows.Scan(&tc.TierName, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tier count: %w", err)
		}
		counts = append(counts, tc)
	}

	return counts, rows.Err()
}

func (s *SQLiteStore) CountSubscriptions(ctx context.Context) (int, error) {
	return s.count(ctx, "subscription_selections")
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Path returns the file the store was opened from.
func (s *SQLiteStore) Path() string {
	return s.path
}

// count is only called with table names from this file.
func (s *SQLiteStore) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
