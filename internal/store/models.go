package store

import "time"

type PreOrder struct {
	ID        int64
	Name      string
	Email     string
	BookTitle string
	CreatedAt time.Time
}

type ContactMessage struct {
	ID        int64
	Name      string
	Email     string
	Message   string
	CreatedAt time.Time
}

type SavedBook struct {
	ID        int64
	VisitorID string
	BookTitle string
	CreatedAt time.Time
}

// SubscriptionSelection is a visitor's current pricing tier.
type SubscriptionSelection struct {
	ID           int64
	VisitorID    string
	TierName     string
	PriceMonthly int
	CreatedAt    time.Time
}

// TierCount is the number of visitors on one tier.
type TierCount struct {
	TierName string
	Count    int
}

// TitleCount is one row of the popular-titles ranking.
type TitleCount struct {
	Title string
	Count int
}

// EventFilter narrows ListEvents. Zero fields match everything.
type EventFilter struct {
	Since   time.Time
	Variant string
}
