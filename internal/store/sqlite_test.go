package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chapter-verse/bookfront/internal/analytics"
	"github.com/chapter-verse/bookfront/internal/brand"
	"github.com/chapter-verse/bookfront/internal/store"
	"github.com/chapter-verse/bookfront/internal/testutil"
)

func newEvent(id string, kind analytics.EventKind, v brand.Variant, at time.Time) *analytics.Event {
	return &analytics.Event{
		ID:        id,
		Kind:      kind,
		Variant:   v,
		SessionID: "sess-" + id,
		Metadata:  map[string]any{"n": id},
		CreatedAt: at,
	}
}

func TestOpen(t *testing.T) {
	s := testutil.SetupTestStore(t)
	if s == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestOpen_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	ctx := context.Background()
	if err := s.InsertEvent(ctx, newEvent("e1", analytics.NavClick, brand.Poetic, time.Now())); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	s.Close()

	s, err = store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	n, err := s.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d events after reopen, want 1", n)
	}
	if s.Path() != dbPath {
		t.Errorf("got Path %s, want %s", s.Path(), dbPath)
	}
}

func TestInsertAndListEvents(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	base := time.UnixMilli(1700000000000)
	events := []*analytics.Event{
		newEvent("e1", analytics.HeroShopClick, brand.Poetic, base),
		newEvent("e2", analytics.PreOrderSubmission, brand.Poetic, base.Add(time.Second)),
		newEvent("e3", analytics.HeroVisitClick, brand.Modern, base.Add(2*time.Second)),
	}
	for _, e := range events {
		if err := s.InsertEvent(ctx, e); err != nil {
			t.Fatalf("InsertEvent(%s) failed: %v", e.ID, err)
		}
	}

	got, err := s.ListEvents(ctx, store.EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}

	for i, e := range got {
		want := events[i]
		if e.ID != want.ID || e.Kind != want.Kind || e.Variant != want.Variant || e.SessionID != want.SessionID {
			t.Errorf("event %d: got %+v, want %+v", i, e, want)
		}
		if !e.CreatedAt.Equal(want.CreatedAt) {
			t.Errorf("event %d: got CreatedAt %v, want %v", i, e.CreatedAt, want.CreatedAt)
		}
		if e.Metadata["n"] != want.ID {
			t.Errorf("event %d: metadata not round-tripped: %v", i, e.Metadata)
		}
	}

	n, err := s.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if n != 3 {
		t.Errorf("got count %d, want 3", n)
	}
}

func TestInsertEvent_DuplicateID(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	e := newEvent("dup", analytics.NavClick, brand.Modern, time.Now())
	if err := s.InsertEvent(ctx, e); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := s.InsertEvent(ctx, e); err == nil {
		t.Fatal("expected error inserting duplicate id")
	}
}

func TestInsertEvent_NilMetadata(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	e := newEvent("e1", analytics.NavClick, brand.Modern, time.Now())
	e.Metadata = nil
	if err := s.InsertEvent(ctx, e); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}

	got, err := s.ListEvents(ctx, store.EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if got[0].Metadata == nil {
		t.Error("expected empty, non-nil metadata")
	}
}

func TestListEvents_Filter(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	base := time.UnixMilli(1700000000000)
	_ = s.InsertEvent(ctx, newEvent("old", analytics.NavClick, brand.Poetic, base.Add(-48*time.Hour)))
	_ = s.InsertEvent(ctx, newEvent("p", analytics.NavClick, brand.Poetic, base))
	_ = s.InsertEvent(ctx, newEvent("m", analytics.NavClick, brand.Modern, base))

	got, err := s.ListEvents(ctx, store.EventFilter{Since: base.Add(-time.Hour)})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("since filter: got %d events, want 2", len(got))
	}

	got, err = s.ListEvents(ctx, store.EventFilter{Variant: "modern"})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "m" {
		t.Errorf("variant filter: got %+v", got)
	}
}

func TestListEvents_MalformedRowsKept(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	_, err := s.DB().ExecContext(ctx,
		`INSERT INTO analytics_events (id, event_type, brand_variant, session_id, metadata, created_at)
		 VALUES ('bad', 'page_view', 'classic', 's', 'not json', 0)`)
	if err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}

	got, err := s.ListEvents(ctx, store.EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].Valid() {
		t.Error("expected row to be reported as invalid")
	}
	if got[0].Metadata == nil || len(got[0].Metadata) != 0 {
		t.Errorf("expected empty metadata for undecodable JSON, got %v", got[0].Metadata)
	}
}

func TestInsertEvent_Concurrent(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := newEvent(string(rune('a'+i)), analytics.NavClick, brand.Poetic, time.Now())
			if err := s.InsertEvent(ctx, e); err != nil {
				t.Errorf("concurrent insert %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	n, _ := s.CountEvents(ctx)
	if n != 20 {
		t.Errorf("got %d events, want 20", n)
	}
}

func TestPreOrders(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	orders := []struct{ name, email, title string }{
		{"Ada", "ada@example.com", "The Night Circus"},
		{"Ben", "ben@example.com", "Piranesi"},
		{"Cy", "cy@example.com", "The Night Circus"},
		{"Di", "di@example.com", "Circe"},
		{"Ed", "ed@example.com", "Piranesi"},
		{"Flo", "flo@example.com", "The Night Circus"},
	}
	for _, o := range orders {
		po, err := s.CreatePreOrder(ctx, o.name, o.email, o.title)
		if err != nil {
			t.Fatalf("CreatePreOrder failed: %v", err)
		}
		if po.ID == 0 {
			t.Error("expected non-zero ID")
		}
	}

	n, err := s.CountPreOrders(ctx)
	if err != nil {
		t.Fatalf("CountPreOrders failed: %v", err)
	}
	if n != 6 {
		t.Errorf("got %d pre-orders, want 6", n)
	}

	titles, err := s.PopularTitles(ctx, 2)
	if err != nil {
		t.Fatalf("PopularTitles failed: %v", err)
	}
	want := []store.TitleCount{{Title: "The Night Circus", Count: 3}, {Title: "Piranesi", Count: 2}}
	if len(titles) != len(want) {
		t.Fatalf("got %d titles, want %d", len(titles), len(want))
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("rank %d: got %+v, want %+v", i, titles[i], want[i])
		}
	}
}

func TestPopularTitles_Empty(t *testing.T) {
	s := testutil.SetupTestStore(t)

	titles, err := s.PopularTitles(context.Background(), 5)
	if err != nil {
		t.Fatalf("PopularTitles failed: %v", err)
	}
	if len(titles) != 0 {
		t.Errorf("got %d titles, want 0", len(titles))
	}
}

func TestContactMessages(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	msg, err := s.CreateContactMessage(ctx, "Ada", "ada@example.com", "Do you ship abroad?")
	if err != nil {
		t.Fatalf("CreateContactMessage failed: %v", err)
	}
	if msg.Message != "Do you ship abroad?" {
		t.Errorf("got Message %q", msg.Message)
	}

	n, _ := s.CountContactMessages(ctx)
	if n != 1 {
		t.Errorf("got %d messages, want 1", n)
	}
}

func TestSavedBooks(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if err := s.SaveBook(ctx, "v1", "Circe"); err != nil {
		t.Fatalf("SaveBook failed: %v", err)
	}
	// Saving twice is ignored.
	if err := s.SaveBook(ctx, "v1", "Circe"); err != nil {
		t.Fatalf("second SaveBook failed: %v", err)
	}
	if err := s.SaveBook(ctx, "v1", "Piranesi"); err != nil {
		t.Fatalf("SaveBook failed: %v", err)
	}
	if err := s.SaveBook(ctx, "v2", "Circe"); err != nil {
		t.Fatalf("SaveBook failed: %v", err)
	}

	books, err := s.ListSavedBooks(ctx, "v1")
	if err != nil {
		t.Fatalf("ListSavedBooks failed: %v", err)
	}
	if len(books) != 2 {
		t.Errorf("got %d books for v1, want 2", len(books))
	}

	n, _ := s.CountSavedBooks(ctx)
	if n != 3 {
		t.Errorf("got %d saved books, want 3", n)
	}

	if err := s.UnsaveBook(ctx, "v1", "Circe"); err != nil {
		t.Fatalf("UnsaveBook failed: %v", err)
	}
	err = s.UnsaveBook(ctx, "v1", "Circe")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	books, _ = s.ListSavedBooks(ctx, "v1")
	if len(books) != 1 || books[0].BookTitle != "Piranesi" {
		t.Errorf("got %+v after unsave", books)
	}
}

func TestSubscriptions(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.GetSubscription(ctx, "v1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before selecting, got %v", err)
	}

	sel, err := s.SelectSubscription(ctx, "v1", "Curated Book Box", 19)
	if err != nil {
		t.Fatalf("SelectSubscription failed: %v", err)
	}
	if sel.ID == 0 || sel.TierName != "Curated Book Box" || sel.PriceMonthly != 19 {
		t.Errorf("got %+v", sel)
	}

	// Choosing again replaces the selection.
	sel, err = s.SelectSubscription(ctx, "v1", "Premium Coaching Bundle", 49)
	if err != nil {
		t.Fatalf("second SelectSubscription failed: %v", err)
	}
	if sel.TierName != "Premium Coaching Bundle" || sel.PriceMonthly != 49 {
		t.Errorf("got %+v after reselecting", sel)
	}

	s.SelectSubscription(ctx, "v2", "Premium Coaching Bundle", 49)
	s.SelectSubscription(ctx, "v3", "Monthly PDF Digest", 5)

	n, _ := s.CountSubscriptions(ctx)
	if n != 3 {
		t.Errorf("got %d subscriptions, want 3", n)
	}

	counts, err := s.SubscriptionsByTier(ctx)
	if err != nil {
		t.Fatalf("SubscriptionsByTier failed: %v", err)
	}
	want := []store.TierCount{
		{TierName: "Premium Coaching Bundle", Count: 2},
		{TierName: "Monthly PDF Digest", Count: 1},
	}
	if len(counts) != len(want) {
		t.Fatalf("got %+v, want %+v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("rank %d: got %+v, want %+v", i, counts[i], want[i])
		}
	}
}
