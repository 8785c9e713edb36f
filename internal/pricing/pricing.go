// Package pricing holds the fixed subscription tiers offered on the
// pricing page.
package pricing

// Tier is one subscription plan. Prices are whole dollars per month.
type Tier struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	PriceMonthly int      `json:"price_monthly"`
	Description  string   `json:"description"`
	Features     []string `json:"features"`
	Highlighted  bool     `json:"highlighted,omitempty"`
}

const (
	PDFDigest      = "pdf_digest"
	BookBox        = "book_box"
	CoachingBundle = "coaching_bundle"
)

// Tiers lists every plan in display order.
var Tiers = []Tier{
	{
		ID:           PDFDigest,
		Name:         "Monthly PDF Digest",
		PriceMonthly: 5,
		Description:  "Perfect for light readers",
		Features: []string{
			"Monthly curated book summaries",
			"PDF format for easy reading",
			"Key insights and takeaways",
			"Email delivery",
		},
	},
	{
		ID:           BookBox,
		Name:         "Curated Book Box",
		PriceMonthly: 19,
		Description:  "For dedicated book lovers",
		Features: []string{
			"1 carefully selected book per month",
			"Exclusive reading notes",
			"Author insights & context",
			"Free shipping",
			"Digital companion guide",
		},
		Highlighted: true,
	},
	{
		ID:           CoachingBundle,
		Name:         "Premium Coaching Bundle",
		PriceMonthly: 49,
		Description:  "Ultimate reading experience",
		Features: []string{
			"Monthly book bundle (2-3 books)",
			"Personal coaching session",
			"Exclusive community access",
			"Priority support",
			"Custom reading roadmap",
			"All lower tier benefits",
		},
	},
}

// Lookup returns the tier with the given id.
func Lookup(id string) (Tier, bool) {
	for _, t := range Tiers {
		if t.ID == id {
			return t, true
		}
	}
	return Tier{}, false
}
