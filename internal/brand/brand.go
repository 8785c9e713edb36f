package brand

import (
	"errors"
	"fmt"
)

// Variant is one arm of the brand experiment.
type Variant string

const (
	Poetic Variant = "poetic"
	Modern Variant = "modern"
)

// Variants lists every arm in display order.
var Variants = []Variant{Poetic, Modern}

// ErrAssignmentCorrupted marks a persisted value outside the closed set.
var ErrAssignmentCorrupted = errors.New("brand variant corrupted")

func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case Poetic, Modern:
		return Variant(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrAssignmentCorrupted, s)
}

func (v Variant) Valid() bool {
	return v == Poetic || v == Modern
}

func (v Variant) String() string { return string(v) }

func (v Variant) DisplayName() string { return DisplayName(v) }

func (v Variant) Tagline() string { return Tagline(v) }

// DisplayName returns the store name shown for v.
func DisplayName(v Variant) string {
	if v == Modern {
		return "Verso"
	}
	return "Chapter & Verse"
}

// Tagline returns the hero tagline shown for v.
func Tagline(v Variant) string {
	if v == Modern {
		return "Books Reimagined"
	}
	return "Discover Your Next Great Read"
}

// Brand is the resolved branding for one visitor. Handlers receive it
// explicitly rather than looking it up.
type Brand struct {
	Variant Variant `json:"variant"`
	Name    string  `json:"name"`
	Tagline string  `json:"tagline"`
}

func For(v Variant) Brand {
	return Brand{Variant: v, Name: DisplayName(v), Tagline: Tagline(v)}
}
