package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chapter-verse/bookfront/internal/analytics"
	"github.com/chapter-verse/bookfront/internal/brand"
	"github.com/chapter-verse/bookfront/internal/server"
)

func TestDashboard_RequiresAuth(t *testing.T) {
	h := newHarness(t, nil, server.Options{})

	w := h.do(http.MethodGet, "/dashboard", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 without token, got %d", w.Code)
	}

	w = h.do(http.MethodGet, "/dashboard?token=wrong", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 with bad token, got %d", w.Code)
	}

	w = h.do(http.MethodGet, "/dashboard", nil, []*http.Cookie{{Name: "bookfront_admin", Value: "wrong"}})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 with bad cookie, got %d", w.Code)
	}
}

func TestDashboard_TokenSetsCookie(t *testing.T) {
	h := newHarness(t, nil, server.Options{})

	w := h.do(http.MethodGet, "/dashboard?token="+h.srv.Token(), nil, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); strings.Contains(loc, "token=") {
		t.Errorf("redirect should drop the token, got %s", loc)
	}

	jar := merge(nil, w)
	w = h.do(http.MethodGet, "/dashboard", nil, jar)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html, got %s", ct)
	}
}

func TestDashboard_RendersOverview(t *testing.T) {
	h := newHarness(t, nil, server.Options{})
	ctx := context.Background()

	h.store.CreatePreOrder(ctx, "Ada", "ada@example.com", "Circe")
	h.store.CreatePreOrder(ctx, "Bea", "bea@example.com", "Circe")
	h.store.SaveBook(ctx, "visitor-1", "Piranesi")
	h.store.SelectSubscription(ctx, "visitor-1", "Curated Book Box", 19)

	for _, e := range []struct {
		kind    analytics.EventKind
		variant brand.Variant
	}{
		{analytics.HeroShopClick, brand.Modern},
		{analytics.PreOrderSubmission, brand.Modern},
		{analytics.HeroShopClick, brand.Poetic},
	} {
		if err := h.recorder.Track(ctx, e.kind, e.variant, "s1", nil); err != nil {
			t.Fatalf("failed to track event: %v", err)
		}
	}

	w := h.do(http.MethodGet, "/dashboard", nil, []*http.Cookie{{Name: "bookfront_admin", Value: h.srv.Token()}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{
		"Chapter &amp; Verse",
		"Verso",
		"Circe",
		"Curated Book Box",
		"$19/month",
		"Verso (modern) leads by 100.0 points",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestDashboard_Logout(t *testing.T) {
	h := newHarness(t, nil, server.Options{})

	w := h.do(http.MethodGet, "/dashboard?logout=1", nil, []*http.Cookie{{Name: "bookfront_admin", Value: h.srv.Token()}})
	if w.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "bookfront_admin" && c.MaxAge >= 0 {
			t.Errorf("expected admin cookie to be cleared, got MaxAge %d", c.MaxAge)
		}
	}
}

func TestExperimentAPI(t *testing.T) {
	h := newHarness(t, nil, server.Options{})
	ctx := context.Background()

	h.recorder.Track(ctx, analytics.HeroVisitClick, brand.Poetic, "s1", nil)
	h.recorder.Track(ctx, analytics.ContactSubmission, brand.Poetic, "s1", nil)
	h.store.SelectSubscription(ctx, "visitor-1", "Premium Coaching Bundle", 49)
	h.store.SelectSubscription(ctx, "visitor-2", "Premium Coaching Bundle", 49)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/api/experiment", nil)
	req.AddCookie(&http.Cookie{Name: "bookfront_admin", Value: h.srv.Token()})
	w := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var o server.Overview
	if err := json.NewDecoder(w.Body).Decode(&o); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(o.Experiment.Metrics) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(o.Experiment.Metrics))
	}
	poetic := o.Experiment.Metrics[0]
	if poetic.Variant != brand.Poetic || poetic.ConversionRate != 100.0 {
		t.Errorf("unexpected poetic metrics: %+v", poetic)
	}
	if o.Experiment.Winner.Tie || o.Experiment.Winner.Variant != brand.Poetic {
		t.Errorf("expected poetic to lead, got %+v", o.Experiment.Winner)
	}

	// Every tier is listed, including those with no selections.
	if len(o.Subscriptions) != 3 {
		t.Fatalf("expected 3 tiers, got %+v", o.Subscriptions)
	}
	for _, tc := range o.Subscriptions {
		want := 0
		if tc.Tier == "coaching_bundle" {
			want = 2
		}
		if tc.Count != want {
			t.Errorf("tier %s: got count %d, want %d", tc.Tier, tc.Count, want)
		}
	}
}
