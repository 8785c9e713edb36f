package analytics

import (
	"fmt"
	"math"

	"github.com/chapter-verse/bookfront/internal/brand"
)

// VariantMetrics is derived from the event log on every report and never
// stored. Rates are percentages rounded to one decimal.
type VariantMetrics struct {
	Variant         brand.Variant `json:"variant"`
	Name            string        `json:"name"`
	EventCount      int           `json:"event_count"`
	SessionCount    int           `json:"session_count"`
	EntryCount      int           `json:"entry_count"`
	ConversionCount int           `json:"conversion_count"`
	ConversionRate  float64       `json:"conversion_rate"`
	RateLower       float64       `json:"rate_lower"`
	RateUpper       float64       `json:"rate_upper"`
}

// Summarize groups events by variant. Both variants are always present.
// Events with an unknown kind or variant are skipped. The result does not
// depend on input order.
func Summarize(events []Event) map[brand.Variant]VariantMetrics {
	type acc struct {
		VariantMetrics
		sessions map[string]struct{}
	}

	accs := make(map[brand.Variant]*acc, len(brand.Variants))
	for _, v := range brand.Variants {
		accs[v] = &acc{
			VariantMetrics: VariantMetrics{Variant: v, Name: v.DisplayName()},
			sessions:       make(map[string]struct{}),
		}
	}

	for _, e := range events {
		if !e.Valid() {
			continue
		}
		a := accs[e.Variant]
		a.EventCount++
		if e.SessionID != "" {
			a.sessions[e.SessionID] = struct{}{}
		}
		switch {
		case e.Kind.IsEntry():
			a.EntryCount++
		case e.Kind.IsConversion():
			a.ConversionCount++
		}
	}

	out := make(map[brand.Variant]VariantMetrics, len(accs))
	for v, a := range accs {
		m := a.VariantMetrics
		m.SessionCount = len(a.sessions)
		if m.EntryCount > 0 {
			m.ConversionRate = round1(float64(m.ConversionCount) / float64(m.EntryCount) * 100)
			lower, upper := WilsonInterval(m.ConversionCount, m.EntryCount, 0.95)
			m.RateLower = round1(lower * 100)
			m.RateUpper = round1(upper * 100)
		}
		out[v] = m
	}
	return out
}

// Winner is the outcome of comparing the two arms.
type Winner struct {
	Tie          bool          `json:"tie"`
	Variant      brand.Variant `json:"variant,omitempty"`
	MarginPoints float64       `json:"margin_points"`
	// Confidence that Variant truly converts better, from a two-proportion
	// z-test. Informational; it does not change the pick.
	Confidence float64 `json:"confidence"`
}

// PickWinner returns the arm with the strictly higher conversion rate and
// the gap in percentage points. Equal rates are a tie.
func PickWinner(metrics map[brand.Variant]VariantMetrics) Winner {
	p, m := metrics[brand.Poetic], metrics[brand.Modern]
	if p.ConversionRate == m.ConversionRate {
		return Winner{Tie: true, Confidence: 0.5}
	}

	win, lose := p, m
	if m.ConversionRate > p.ConversionRate {
		win, lose = m, p
	}
	return Winner{
		Variant:      win.Variant,
		MarginPoints: round1(math.Abs(win.ConversionRate - lose.ConversionRate)),
		Confidence:   SignificanceTest(win.ConversionCount, win.EntryCount, lose.ConversionCount, lose.EntryCount),
	}
}

// Report is what the dashboard and the report command show.
type Report struct {
	Metrics     []VariantMetrics `json:"metrics"`
	Winner      Winner           `json:"winner"`
	TotalEvents int              `json:"total_events"`
	Excluded    int              `json:"excluded"`
}

func BuildReport(events []Event) Report {
	byVariant := Summarize(events)

	r := Report{
		Metrics:     make([]VariantMetrics, 0, len(brand.Variants)),
		Winner:      PickWinner(byVariant),
		TotalEvents: len(events),
	}
	for _, v := range brand.Variants {
		r.Metrics = append(r.Metrics, byVariant[v])
	}
	for _, e := range events {
		if !e.Valid() {
			r.Excluded++
		}
	}
	return r
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Verdict is a one-line reading of the comparison.
func (r Report) Verdict() string {
	if r.Winner.Tie {
		return "No winner yet: both brands convert at the same rate"
	}
	v := r.Winner.Variant
	conf := r.Winner.Confidence * 100
	line := fmt.Sprintf("%s (%s) leads by %.1f points", v.DisplayName(), v, r.Winner.MarginPoints)
	if conf >= 95 {
		return fmt.Sprintf("%s, %.1f%% confident", line, conf)
	}
	return line + " (not yet significant)"
}
