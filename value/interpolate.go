package value

import (
	"math"

	"github.com/matt-g-everett/ledmotion/util"
)

// Modifier transforms an interpolated number before it is composed.
type Modifier func(float64) float64

// Interpolate returns the value progress p of the way from from to to. The
// two values must already be reconciled. Numbers are rounded to precision
// decimals (negative means unrounded) and passed through mod when set.
// Colour channels are rounded to integers and clamped to 0-255, alpha to 0-1.
func Interpolate(from, to Value, p float64, precision int, mod Modifier) Value {
	if mod == nil {
		mod = identity
	}
	lerp := func(a, b float64) float64 {
		return mod(util.Round(util.Lerp(a, b, p), precision))
	}

	out := Value{Kind: to.Kind, Unit: to.Unit}
	switch to.Kind {
	case Number, Unit:
		out.Number = lerp(from.Number, to.Number)
	case Color:
		out.Numbers = make([]float64, 4)
		for i := 0; i < 3; i++ {
			c := mod(util.Lerp(from.channel(i), to.channel(i), p))
			out.Numbers[i] = math.Round(util.Clamp(c, 0, 255))
		}
		out.Numbers[3] = util.Clamp(lerp(from.channel(3), to.channel(3)), 0, 1)
	case Complex:
		out.Numbers = make([]float64, len(to.Numbers))
		for i := range to.Numbers {
			out.Numbers[i] = lerp(from.channel(i), to.Numbers[i])
		}
		out.Strings = append([]string(nil), to.Strings...)
		if len(out.Numbers) > 0 {
			out.Number = out.Numbers[0]
		}
	}
	return out
}

// InterpolateDelta interpolates every number of from and to without the
// colour clamping of Interpolate. Additive layers carry negative channel
// offsets and go through here.
func InterpolateDelta(from, to Value, p float64, precision int) Value {
	out := to.Clone()
	out.Operator = NoOp
	out.Number = util.Round(util.Lerp(from.Number, to.Number, p), precision)
	for i := range out.Numbers {
		out.Numbers[i] = util.Round(util.Lerp(from.channel(i), to.Numbers[i], p), precision)
	}
	return out
}

// Sum adds the numbers of each delta to base, channel by channel. It is used
// to compose additive layers.
func Sum(base Value, deltas ...Value) Value {
	out := base.Clone()
	for _, d := range deltas {
		switch out.Kind {
		case Number, Unit:
			out.Number += d.Float()
		default:
			for i := range out.Numbers {
				if i < len(d.Numbers) {
					out.Numbers[i] += d.Numbers[i]
				}
			}
		}
	}
	if out.Kind == Color && len(out.Numbers) == 4 {
		for i := 0; i < 3; i++ {
			out.Numbers[i] = math.Round(util.Clamp(out.Numbers[i], 0, 255))
		}
		out.Numbers[3] = util.Clamp(out.Numbers[3], 0, 1)
	}
	if out.Kind == Complex && len(out.Numbers) > 0 {
		out.Number = out.Numbers[0]
	}
	return out
}

// Diff returns a minus b with a's shape.
func Diff(a, b Value) Value {
	out := a.Clone()
	switch out.Kind {
	case Number, Unit:
		out.Number -= b.Float()
	default:
		for i := range out.Numbers {
			out.Numbers[i] -= b.channel(i)
		}
		if len(out.Numbers) > 0 {
			out.Number = out.Numbers[0]
		}
	}
	return out
}

// Zero returns a value shaped like v with every number set to zero.
func Zero(v Value) Value {
	out := v.Clone()
	out.Number = 0
	for i := range out.Numbers {
		out.Numbers[i] = 0
	}
	out.Operator = NoOp
	return out
}

func (v Value) channel(i int) float64 {
	if i < len(v.Numbers) {
		return v.Numbers[i]
	}
	if i == 0 && (v.Kind == Number || v.Kind == Unit) {
		return v.Number
	}
	return 0
}

func identity(v float64) float64 { return v }
