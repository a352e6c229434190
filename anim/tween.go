package anim

import (
	"time"

	"github.com/matt-g-everett/ledmotion/easing"
	"github.com/matt-g-everett/ledmotion/value"
)

// Tween interpolates one property of one target over part of an animation.
// Times are in the owning animation's iteration time base except absStart,
// which is in the engine's.
type Tween struct {
	owner    *Timer
	target   Target
	property string

	from, to       value.Value
	absFrom, absTo value.Value
	origin         value.Value
	hasOrigin      bool
	current        value.Value

	ease        easing.Easing
	modifier    value.Modifier
	composition Composition

	delay          time.Duration
	start          time.Duration
	updateDuration time.Duration
	changeDuration time.Duration
	absStart       time.Duration
	currentTime    time.Duration

	overlapped bool
	overridden bool
}

func (tw *Tween) Target() Target { return tw.target }
func (tw *Tween) Property() string { return tw.property }
func (tw *Tween) Owner() *Timer { return tw.owner }
func (tw *Tween) Composition() Composition { return tw.composition }

// From and To return the decomposed end points. Blended tweens hold deltas.
func (tw *Tween) From() value.Value { return tw.from.Clone() }
func (tw *Tween) To() value.Value { return tw.to.Clone() }

// Value returns the last rendered value.
func (tw *Tween) Value() value.Value { return tw.current.Clone() }

// Start is the tween's start within its animation's iteration.
func (tw *Tween) Start() time.Duration { return tw.start }

// Duration is the full interpolation length.
func (tw *Tween) Duration() time.Duration { return tw.updateDuration }

// ChangeDuration is the part of Duration the tween still renders; it shrinks
// when a later tween overlaps it.
func (tw *Tween) ChangeDuration() time.Duration { return tw.changeDuration }

// AbsoluteStart is the start in engine time.
func (tw *Tween) AbsoluteStart() time.Duration { return tw.absStart }

// Overridden reports whether a later tween fully replaced this one.
func (tw *Tween) Overridden() bool { return tw.overridden }

// Overlapped reports whether a later tween cut this one short.
func (tw *Tween) Overlapped() bool { return tw.overlapped }

func (tw *Tween) key() propKey { return propKey{tw.target, tw.property} }

func (tw *Tween) absEnd() time.Duration { return tw.absStart + tw.changeDuration }

func (tw *Tween) stretch(k float64) {
	tw.updateDuration = normalizeDuration(scale(tw.updateDuration, k))
	tw.changeDuration = normalizeDuration(scale(tw.changeDuration, k))
	tw.currentTime = scale(tw.currentTime, k)
	tw.start = scale(tw.start, k)
	tw.delay = scale(tw.delay, k)
}

func scale(d time.Duration, k float64) time.Duration {
	f := float64(d) * k
	if f > float64(maxDuration) {
		return maxDuration
	}
	if f < -float64(maxDuration) {
		return -maxDuration
	}
	return time.Duration(f)
}

func normalizeDuration(d time.Duration) time.Duration {
	if d < minDuration {
		return minDuration
	}
	if d > maxDuration {
		return maxDuration
	}
	return d
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
