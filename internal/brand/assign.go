// Package brand implements the two-arm brand experiment: the variant
// type, its display strings, and sticky per-visitor assignment.
package brand

import (
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/chapter-verse/bookfront/internal/clientstate"
)

// StateKey is where the assignment lives in client state.
const StateKey = "brand_variant"

// Assigner buckets visitors into variants.
type Assigner struct {
	rand   func() float64
	logger *zap.Logger
}

type Option func(*Assigner)

// WithRand replaces the random source. It must return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(a *Assigner) { a.rand = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Assigner) { a.logger = l }
}

func NewAssigner(opts ...Option) *Assigner {
	a := &Assigner{
		rand:   rand.Float64,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetOrAssign returns the visitor's persisted variant, drawing and
// persisting one when none is stored or the stored value is corrupted.
func (a *Assigner) GetOrAssign(state clientstate.Store) Variant {
	return a.GetOrAssignWith(state, "")
}

// GetOrAssignWith behaves like GetOrAssign, except that a valid force
// variant is persisted and returned regardless of state. An empty or
// invalid force is ignored.
func (a *Assigner) GetOrAssignWith(state clientstate.Store, force Variant) Variant {
	if force.Valid() {
		state.Set(StateKey, string(force))
		return force
	}

	if raw, ok := state.Get(StateKey); ok {
		v, err := ParseVariant(raw)
		if err == nil {
			return v
		}
		a.logger.Debug("reassigning corrupted brand variant", zap.Error(err))
	}

	v := a.draw()
	state.Set(StateKey, string(v))
	return v
}

func (a *Assigner) draw() Variant {
	if a.rand() < 0.5 {
		return Poetic
	}
	return Modern
}
