package stream

import (
	"fmt"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// GradientStop is a hue at a position between 0 and 1.
type GradientStop struct {
	Hue float64 `mapstructure:"hue"`
	Pos float64 `mapstructure:"pos"`
}

// GradientTable is a hue gradient. Stops are ordered by position.
type GradientTable []GradientStop

// Rainbow runs through the hues and wraps back to pink.
var Rainbow = GradientTable{
	{0.0, 0.0},
	{6.0, 0.04},   // Pink
	{87.0, 0.14},  // Red
	{88.0, 0.28},  // Orange
	{98.0, 0.42},  // Yellow
	{180.0, 0.56}, // Green
	{190.0, 0.70}, // Turquiose
	{320.0, 0.84}, // Blue
	{328.0, 0.91}, // Violet
	{360.0, 1.0},  // Pink wrap
}

// Check reports stops out of order or outside [0, 1].
func (g GradientTable) Check() error {
	for i, s := range g {
		if s.Pos < 0 || s.Pos > 1 {
			return fmt.Errorf("%w: gradient stop %d at %v", ErrBadParams, i, s.Pos)
		}
		if i > 0 && s.Pos < g[i-1].Pos {
			return fmt.Errorf("%w: gradient stop %d out of order", ErrBadParams, i)
		}
	}
	return nil
}

// GetColor returns the HCL colour at t, blending hue between the stops
// either side. t wraps around [0, 1).
func (g GradientTable) GetColor(t, s, l float64) colorful.Color {
	t -= math.Floor(t)
	i := sort.Search(len(g), func(i int) bool { return g[i].Pos >= t })
	switch {
	case i == 0:
		return colorful.Hcl(g[0].Hue, s, l)
	case i == len(g):
		return colorful.Hcl(g[len(g)-1].Hue, s, l)
	}
	a, b := g[i-1], g[i]
	h := a.Hue + (t-a.Pos)/(b.Pos-a.Pos)*(b.Hue-a.Hue)
	return colorful.Hcl(h, s, l)
}
