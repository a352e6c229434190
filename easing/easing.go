// Package easing provides the easing curves used by the animation engine.
//
// Every curve maps linear progress t in [0, 1] to eased progress. The named
// Penner curves come from github.com/fogleman/ease; the parametric ones
// (power, steps, cubic bézier and spring) are built here.
//
// Curves are usually picked by name from scene files or config:
//
//	e, err := easing.Parse("inOutQuad")
//	e, err := easing.Parse("cubicBezier(.4, 0, .2, 1)")
//	e, err := easing.Parse("spring(1, 100, 10, 0)")
package easing

import (
	"math"
	"time"

	"github.com/fogleman/ease"
)

// Easing maps linear progress to eased progress.
type Easing interface {
	Ease(t float64) float64
}

// Settler is implemented by easings that define their own duration, such as
// springs. A tween using a Settler takes the settling duration instead of the
// declared one.
type Settler interface {
	Easing
	SettlingDuration() time.Duration
}

// Func adapts an ordinary function to Easing.
type Func func(t float64) float64

// Ease calls f(t).
func (f Func) Ease(t float64) float64 {
	return f(t)
}

// Linear returns t unchanged.
var Linear = Func(ease.Linear)

// DefaultPower is the exponent used by In, Out and InOut when none is given.
const DefaultPower = 1.675

var named = map[string]Func{
	"linear":       ease.Linear,
	"inquad":       ease.InQuad,
	"outquad":      ease.OutQuad,
	"inoutquad":    ease.InOutQuad,
	"incubic":      ease.InCubic,
	"outcubic":     ease.OutCubic,
	"inoutcubic":   ease.InOutCubic,
	"inquart":      ease.InQuart,
	"outquart":     ease.OutQuart,
	"inoutquart":   ease.InOutQuart,
	"inquint":      ease.InQuint,
	"outquint":     ease.OutQuint,
	"inoutquint":   ease.InOutQuint,
	"insine":       ease.InSine,
	"outsine":      ease.OutSine,
	"inoutsine":    ease.InOutSine,
	"inexpo":       ease.InExpo,
	"outexpo":      ease.OutExpo,
	"inoutexpo":    ease.InOutExpo,
	"incirc":       ease.InCirc,
	"outcirc":      ease.OutCirc,
	"inoutcirc":    ease.InOutCirc,
	"inelastic":    ease.InElastic,
	"outelastic":   ease.OutElastic,
	"inoutelastic": ease.InOutElastic,
	"inback":       ease.InBack,
	"outback":      ease.OutBack,
	"inoutback":    ease.InOutBack,
	"inbounce":     ease.InBounce,
	"outbounce":    ease.OutBounce,
	"inoutbounce":  ease.InOutBounce,
	"in":           In(DefaultPower),
	"out":          Out(DefaultPower),
	"inout":        InOut(DefaultPower),
	"outin":        OutIn(DefaultPower),
}

// Named returns the curve registered under name. Lookups ignore case and an
// optional "ease" prefix, so "easeInOutQuad" and "inOutQuad" are the same.
func Named(name string) (Func, bool) {
	fn, ok := named[normalize(name)]
	return fn, ok
}

// In accelerates with t^power.
func In(power float64) Func {
	return func(t float64) float64 {
		return math.Pow(t, power)
	}
}

// Out decelerates; it is In mirrored around the centre.
func Out(power float64) Func {
	in := In(power)
	return func(t float64) float64 {
		return 1 - in(1-t)
	}
}

// InOut accelerates over the first half and decelerates over the second.
func InOut(power float64) Func {
	in := In(power)
	return func(t float64) float64 {
		if t < 0.5 {
			return in(t*2) / 2
		}
		return 1 - in(-t*2+2)/2
	}
}

// OutIn decelerates into the centre and accelerates out of it.
func OutIn(power float64) Func {
	out := Out(power)
	return func(t float64) float64 {
		if t < 0.5 {
			return out(t*2) / 2
		}
		return 1 - out(-t*2+2)/2
	}
}

// Steps jumps in n equal increments. With fromStart the jump happens at the
// beginning of each step instead of the end.
func Steps(n int, fromStart bool) Func {
	if n < 1 {
		n = 1
	}
	round := math.Floor
	if fromStart {
		round = math.Ceil
	}
	return func(t float64) float64 {
		return round(clampUnit(t)*float64(n)) / float64(n)
	}
}

// Reversed plays e backwards: progress 0 maps to e(1).
func Reversed(e Easing) Func {
	return func(t float64) float64 {
		return 1 - e.Ease(1-t)
	}
}
