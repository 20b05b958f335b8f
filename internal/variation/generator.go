// Package variation produces bounded random perturbations of base figures.
package variation

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPct is the variation band used when callers have no specific preference
const DefaultPct = 15.0

// Generator perturbs base values within a percentage band.
// A Generator is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// New creates a generator drawing from src
func New(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// NewSeeded creates a reproducible generator
func NewSeeded(seed uint64) *Generator {
	return New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewRandom creates a generator seeded from the clock
func NewRandom() *Generator {
	return NewSeeded(uint64(time.Now().UnixNano()))
}

// Vary returns base perturbed uniformly within ±pct percent, rounded to whole units.
// A negative pct is treated as its magnitude.
func (g *Generator) Vary(base, pct float64) decimal.Decimal {
	return g.VaryPlaces(base, pct, 0)
}

// VaryPlaces is Vary rounded to the given number of decimal places, for ratio metrics
func (g *Generator) VaryPlaces(base, pct float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(g.perturb(base, pct)).Round(places)
}

// Float returns a uniform value in [0, 1)
func (g *Generator) Float() float64 {
	return g.rng.Float64()
}

func (g *Generator) perturb(base, pct float64) float64 {
	pct = math.Abs(pct)
	// Draw even when pct is zero so the stream position does not depend on the band.
	u := g.rng.Float64()
	if pct == 0 {
		return base
	}
	return base + (u-0.5)*2*base*pct/100
}
