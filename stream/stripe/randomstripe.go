// Package stripe generates runs of colour for striped effects.
package stripe

import (
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
)

// A Stripe is a run of pixels in one colour.
type Stripe struct {
	Colour colorful.Color
	Length int
}

type RandomStripeGenerator struct {
	palette   []colorful.Color
	current   int
	stripeMin int
	stripeMax int
	rng       *rand.Rand
}

// NewRandomStripeGenerator creates a generator of stripes between min and
// max pixels long. With no palette, colours are random hues.
func NewRandomStripeGenerator(palette []colorful.Color, min, max int, seed int64) *RandomStripeGenerator {
	g := new(RandomStripeGenerator)
	g.palette = palette
	g.current = -1
	g.stripeMin = min
	g.stripeMax = max
	if g.stripeMin < 1 {
		g.stripeMin = 1
	}
	if g.stripeMax < g.stripeMin {
		g.stripeMax = g.stripeMin
	}
	g.rng = rand.New(rand.NewSource(seed))
	return g
}

// CreateStripe returns the next stripe. Consecutive palette stripes never
// share a colour.
func (g *RandomStripeGenerator) CreateStripe() Stripe {
	length := g.stripeMin + g.rng.Intn(g.stripeMax-g.stripeMin+1)
	switch n := len(g.palette); n {
	case 0:
		return Stripe{Colour: colorful.Hsl(g.rng.Float64()*360, 1, 0.2), Length: length}
	case 1:
		return Stripe{Colour: g.palette[0], Length: length}
	default:
		var next int
		if g.current < 0 {
			next = g.rng.Intn(n)
		} else if next = g.rng.Intn(n - 1); next >= g.current {
			next++
		}
		g.current = next
		return Stripe{Colour: g.palette[next], Length: length}
	}
}
