// Package analytics records brand-tagged interaction events and reduces
// them to per-variant experiment metrics.
package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/chapter-verse/bookfront/internal/brand"
)

var (
	// ErrBackendUnavailable wraps any failure of the event store write.
	ErrBackendUnavailable = errors.New("analytics backend unavailable")
	// ErrInvalidEvent marks an event with an unknown kind or variant.
	ErrInvalidEvent = errors.New("invalid analytics event")
)

// EventKind is the closed set of tracked interactions.
type EventKind string

const (
	HeroShopClick      EventKind = "hero_shop_click"
	HeroVisitClick     EventKind = "hero_visit_click"
	PreOrderSubmission EventKind = "pre_order_submission"
	ContactSubmission  EventKind = "contact_submission"
	NavClick           EventKind = "nav_click"
)

var EventKinds = []EventKind{
	HeroShopClick,
	HeroVisitClick,
	PreOrderSubmission,
	ContactSubmission,
	NavClick,
}

func ParseEventKind(s string) (EventKind, error) {
	k := EventKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, s)
	}
	return k, nil
}

func (k EventKind) Valid() bool {
	switch k {
	case HeroShopClick, HeroVisitClick, PreOrderSubmission, ContactSubmission, NavClick:
		return true
	}
	return false
}

// IsEntry reports whether k signals first engagement with a call to action.
func (k EventKind) IsEntry() bool {
	return k == HeroShopClick || k == HeroVisitClick
}

// IsConversion reports whether k is a completed outcome.
func (k EventKind) IsConversion() bool {
	return k == PreOrderSubmission || k == ContactSubmission
}

// Event is one recorded interaction. Events are appended and never updated.
type Event struct {
	ID        string
	Kind      EventKind
	Variant   brand.Variant
	SessionID string
	Metadata  map[string]any
	CreatedAt time.Time
}

// Valid reports whether the event can take part in aggregation.
func (e Event) Valid() bool {
	return e.Kind.Valid() && e.Variant.Valid()
}

func validate(kind EventKind, variant brand.Variant) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, kind)
	}
	if !variant.Valid() {
		return fmt.Errorf("%w: unknown variant %q", ErrInvalidEvent, variant)
	}
	return nil
}
