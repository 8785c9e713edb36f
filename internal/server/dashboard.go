package server

import (
	"bytes"
	"context"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/chapter-verse/bookfront/internal/analytics"
	"github.com/chapter-verse/bookfront/internal/dashboard"
	"github.com/chapter-verse/bookfront/internal/pricing"
	"github.com/chapter-verse/bookfront/internal/store"
)

var dashboardTemplates = template.Must(template.ParseFS(dashboard.Templates, "templates/*.html"))

// Dashboard template data structures
type layoutData struct {
	Title   string
	CSS     template.CSS
	Content template.HTML
}

type overviewData struct {
	PreOrders       int
	SavedBooks      int
	ContactMessages int
	PopularTitles   []store.TitleCount
	Subscriptions   []tierCount
	Variants        []overviewVariant
	Verdict         string
	Excluded        int
}

type overviewVariant struct {
	analytics.VariantMetrics
	Leading bool
}

// Overview is the JSON form of the dashboard.
type Overview struct {
	PreOrders       int              `json:"pre_orders"`
	SavedBooks      int              `json:"saved_books"`
	ContactMessages int              `json:"contact_messages"`
	PopularTitles   []popularTitle   `json:"popular_titles"`
	Subscriptions   []tierCount      `json:"subscriptions"`
	Experiment      analytics.Report `json:"experiment"`
}

// tierCount lists every tier, including those nobody has chosen.
type tierCount struct {
	Tier         string `json:"tier"`
	Name         string `json:"name"`
	PriceMonthly int    `json:"price_monthly"`
	Count        int    `json:"count"`
}

type popularTitle struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func (s *Server) loadOverview(ctx context.Context) (*Overview, error) {
	preOrders, err := s.store.CountPreOrders(ctx)
	if err != nil {
		return nil, err
	}
	saved, err := s.store.CountSavedBooks(ctx)
	if err != nil {
		return nil, err
	}
	contacts, err := s.store.CountContactMessages(ctx)
	if err != nil {
		return nil, err
	}
	titles, err := s.store.PopularTitles(ctx, 5)
	if err != nil {
		return nil, err
	}
	byTier, err := s.store.SubscriptionsByTier(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx, store.EventFilter{})
	if err != nil {
		return nil, err
	}

	o := &Overview{
		PreOrders:       preOrders,
		SavedBooks:      saved,
		ContactMessages: contacts,
		PopularTitles:   make([]popularTitle, 0, len(titles)),
		Subscriptions:   make([]tierCount, 0, len(pricing.Tiers)),
		Experiment:      analytics.BuildReport(events),
	}
	counts := make(map[string]int, len(byTier))
	for _, tc := range byTier {
		counts[tc.TierName] = tc.Count
	}
	for _, t := range pricing.Tiers {
		o.Subscriptions = append(o.Subscriptions, tierCount{
			Tier:         t.ID,
			Name:         t.Name,
			PriceMonthly: t.PriceMonthly,
			Count:        counts[t.Name],
		})
	}
	for _, t := range titles {
		o.PopularTitles = append(o.PopularTitles, popularTitle{Title: t.Title, Count: t.Count})
	}
	return o, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	// Handle logout
	if r.URL.Query().Get("logout") == "1" {
		http.SetCookie(w, &http.Cookie{
			Name:   tokenCookieName,
			Value:  "",
			Path:   "/dashboard",
			MaxAge: -1,
		})
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	o, err := s.loadOverview(r.Context())
	if err != nil {
		s.logger.Error("failed to load dashboard", zap.Error(err))
		http.Error(w, "Failed to load dashboard data", http.StatusInternalServerError)
		return
	}

	data := overviewData{
		PreOrders:       o.PreOrders,
		SavedBooks:      o.SavedBooks,
		ContactMessages: o.ContactMessages,
		Subscriptions:   o.Subscriptions,
		Verdict:         o.Experiment.Verdict(),
		Excluded:        o.Experiment.Excluded,
	}
	for _, t := range o.PopularTitles {
		data.PopularTitles = append(data.PopularTitles, store.TitleCount{Title: t.Title, Count: t.Count})
	}
	for _, m := range o.Experiment.Metrics {
		data.Variants = append(data.Variants, overviewVariant{
			VariantMetrics: m,
			Leading:        !o.Experiment.Winner.Tie && m.Variant == o.Experiment.Winner.Variant,
		})
	}

	s.renderDashboard(w, "Dashboard", "overview.html", data)
}

func (s *Server) handleExperimentAPI(w http.ResponseWriter, r *http.Request) {
	o, err := s.loadOverview(r.Context())
	if err != nil {
		s.logger.Error("failed to load experiment report", zap.Error(err))
		http.Error(w, "Failed to load report", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) renderDashboard(w http.ResponseWriter, title, contentTemplate string, data any) {
	cssBytes, err := dashboard.Assets.ReadFile("assets/style.css")
	if err != nil {
		http.Error(w, "Failed to load styles", http.StatusInternalServerError)
		return
	}

	var content bytes.Buffer
	if err := dashboardTemplates.ExecuteTemplate(&content, contentTemplate, data); err != nil {
		s.logger.Error("failed to render dashboard", zap.String("template", contentTemplate), zap.Error(err))
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}

	var page bytes.Buffer
	err = dashboardTemplates.ExecuteTemplate(&page, "layout.html", layoutData{
		Title:   title,
		CSS:     template.CSS(cssBytes),
		Content: template.HTML(content.String()),
	})
	if err != nil {
		s.logger.Error("failed to render layout", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page.Bytes())
}
