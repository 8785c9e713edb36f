package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/chapter-verse/bookfront/internal/analytics"
	"github.com/chapter-verse/bookfront/internal/brand"
	"github.com/chapter-verse/bookfront/internal/clientstate"
	"github.com/chapter-verse/bookfront/internal/forms"
	"github.com/chapter-verse/bookfront/internal/pricing"
	"github.com/chapter-verse/bookfront/internal/store"
)

const maxBodyBytes = 16 << 10

type HealthResponse struct {
	Status        string `json:"status"`
	EventsCount   int    `json:"events_count"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	events, err := s.store.CountEvents(ctx)
	if err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Get database size
	var dbSize int64
	row := s.store.DB().QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	if err := row.Scan(&dbSize); err != nil {
		// Try the file size as a fallback
		if info, statErr := os.Stat(s.store.Path()); statErr == nil {
			dbSize = info.Size()
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		EventsCount:   events,
		DBSizeBytes:   dbSize,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

// visitor is everything a handler needs to know about the caller. It is
// resolved once per request and passed along explicitly.
type visitor struct {
	Brand     brand.Brand
	SessionID string
	ID        string
}

// resolveVisitor loads or creates the caller's client state and writes any
// new cookies. It must run before the response body is written.
func (s *Server) resolveVisitor(w http.ResponseWriter, r *http.Request) visitor {
	state := s.cookies.For(w, r)

	var force brand.Variant
	if s.allowOverride {
		force = brand.Variant(r.URL.Query().Get("brand"))
	}

	v := visitor{
		Brand:     brand.For(s.assigner.GetOrAssignWith(state.Visitor(), force)),
		SessionID: analytics.SessionID(state.Session(), time.Now()),
		ID:        clientstate.VisitorID(state.Visitor()),
	}

	if err := state.Save(); err != nil {
		s.logger.Warn("failed to persist client state", zap.Error(err))
	}
	return v
}

func (s *Server) handleBrand(w http.ResponseWriter, r *http.Request) {
	v := s.resolveVisitor(w, r)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, v.Brand)
}

// EventRequest is an interaction reported by the page.
type EventRequest struct {
	EventType string         `json:"event_type"`
	Metadata  map[string]any `json:"metadata"`
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	v := s.resolveVisitor(w, r)

	// Unknown kinds are logged by the recorder and dropped; the page never
	// sees an analytics failure.
	s.recorder.Record(analytics.EventKind(req.EventType), v.Brand.Variant, v.SessionID, req.Metadata)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePreOrder(w http.ResponseWriter, r *http.Request) {
	var form forms.PreOrder
	if !s.decodeForm(w, r, &form) {
		return
	}

	v := s.resolveVisitor(w, r)

	order, err := s.store.CreatePreOrder(r.Context(), form.Name, form.Email, form.BookTitle)
	if err != nil {
		s.logger.Error("failed to create pre-order", zap.Error(err))
		http.Error(w, "Failed to submit your pre-order", http.StatusInternalServerError)
		return
	}

	s.recorder.Record(analytics.PreOrderSubmission, v.Brand.Variant, v.SessionID, map[string]any{
		"book_title": form.BookTitle,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         order.ID,
		"book_title": order.BookTitle,
	})
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var form forms.Contact
	if !s.decodeForm(w, r, &form) {
		return
	}

	v := s.resolveVisitor(w, r)

	msg, err := s.store.CreateContactMessage(r.Context(), form.Name, form.Email, form.Message)
	if err != nil {
		s.logger.Error("failed to store contact message", zap.Error(err))
		http.Error(w, "Failed to send your message", http.StatusInternalServerError)
		return
	}

	s.recorder.Record(analytics.ContactSubmission, v.Brand.Variant, v.SessionID, nil)

	writeJSON(w, http.StatusCreated, map[string]any{"id": msg.ID})
}

func (s *Server) handleListSavedBooks(w http.ResponseWriter, r *http.Request) {
	v := s.resolveVisitor(w, r)

	books, err := s.store.ListSavedBooks(r.Context(), v.ID)
	if err != nil {
		s.logger.Error("failed to list saved books", zap.Error(err))
		http.Error(w, "Failed to load saved books", http.StatusInternalServerError)
		return
	}

	titles := make([]string, 0, len(books))
	for _, b := range books {
		titles = append(titles, b.BookTitle)
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": titles})
}

func (s *Server) handleSaveBook(w http.ResponseWriter, r *http.Request) {
	var form forms.SavedBook
	if !s.decodeForm(w, r, &form) {
		return
	}

	v := s.resolveVisitor(w, r)

	if err := s.store.SaveBook(r.Context(), v.ID, form.BookTitle); err != nil {
		s.logger.Error("failed to save book", zap.Error(err))
		http.Error(w, "Failed to save book", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUnsaveBook(w http.ResponseWriter, r *http.Request) {
	var form forms.SavedBook
	if !s.decodeForm(w, r, &form) {
		return
	}

	v := s.resolveVisitor(w, r)

	err := s.store.UnsaveBook(r.Context(), v.ID, form.BookTitle)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Book not saved", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("failed to unsave book", zap.Error(err))
		http.Error(w, "Failed to remove book", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tiers": pricing.Tiers})
}

// SubscriptionResponse is the visitor's current tier.
type SubscriptionResponse struct {
	Tier         string `json:"tier"`
	Name         string `json:"name"`
	PriceMonthly int    `json:"price_monthly"`
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	v := s.resolveVisitor(w, r)

	sel, err := s.store.GetSubscription(r.Context(), v.ID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "No subscription selected", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("failed to load subscription", zap.Error(err))
		http.Error(w, "Failed to load subscription", http.StatusInternalServerError)
		return
	}

	resp := SubscriptionResponse{Name: sel.TierName, PriceMonthly: sel.PriceMonthly}
	for _, t := range pricing.Tiers {
		if t.Name == sel.TierName {
			resp.Tier = t.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSelectSubscription(w http.ResponseWriter, r *http.Request) {
	var form forms.Subscription
	if !s.decodeForm(w, r, &form) {
		return
	}

	v := s.resolveVisitor(w, r)

	tier, _ := pricing.Lookup(form.Tier)
	sel, err := s.store.SelectSubscription(r.Context(), v.ID, tier.Name, tier.PriceMonthly)
	if err != nil {
		s.logger.Error("failed to save subscription", zap.String("tier", tier.ID), zap.Error(err))
		http.Error(w, "Failed to select subscription", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, SubscriptionResponse{
		Tier:         tier.ID,
		Name:         sel.TierName,
		PriceMonthly: sel.PriceMonthly,
	})
}

type validatable interface {
	Normalize()
	Validate() error
}

// decodeForm parses, trims and validates a JSON form. On failure the error
// response has been written and it returns false.
func (s *Server) decodeForm(w http.ResponseWriter, r *http.Request, f validatable) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(f); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}

	f.Normalize()
	if err := f.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"errors": forms.FieldErrors(err),
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
