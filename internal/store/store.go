package store

import (
	"context"

	"github.com/chapter-verse/bookfront/internal/analytics"
)

// Store defines the storage operations behind the site
type Store interface {
	// Analytics events (append-only)
	InsertEvent(ctx context.Context, e *analytics.Event) error
	ListEvents(ctx context.Context, filter EventFilter) ([]analytics.Event, error)
	CountEvents(ctx context.Context) (int, error)

	// Pre-orders
	CreatePreOrder(ctx context.Context, name, email, bookTitle string) (*PreOrder, error)
	CountPreOrders(ctx context.Context) (int, error)
	PopularTitles(ctx context.Context, limit int) ([]TitleCount, error)

	// Contact form
	CreateContactMessage(ctx context.Context, name, email, message string) (*ContactMessage, error)
	CountContactMessages(ctx context.Context) (int, error)

	// Saved books
	SaveBook(ctx context.Context, visitorID, bookTitle string) error
	UnsaveBook(ctx context.Context, visitorID, bookTitle string) error
	ListSavedBooks(ctx context.Context, visitorID string) ([]*SavedBook, error)
	CountSavedBooks(ctx context.Context) (int, error)

	// Subscription tiers (one selection per visitor)
	SelectSubscription(ctx context.Context, visitorID, tierName string, priceMonthly int) (*SubscriptionSelection, error)
	GetSubscription(ctx context.Context, visitorID string) (*SubscriptionSelection, error)
	SubscriptionsByTier(ctx context.Context) ([]TierCount, error)
	CountSubscriptions(ctx context.Context) (int, error)

	// Lifecycle
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
var _ analytics.EventSink = (*SQLiteStore)(nil)
