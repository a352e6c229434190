package anim

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/matt-g-everett/ledmotion/easing"
	"github.com/matt-g-everett/ledmotion/value"
)

// Target identifies something whose properties are animated. Targets are
// compared with ==, so they must be comparable: pointers, strings, ints.
type Target = any

// Composition decides how concurrent tweens on the same target property
// interact.
type Composition int

const (
	compositionUnset Composition = iota
	// Replace lets the most recently declared tween win.
	Replace
	// None leaves tweens uncoordinated.
	None
	// Blend sums every running tween on the property.
	Blend
)

func (c Composition) String() string {
	switch c {
	case Replace:
		return "replace"
	case None:
		return "none"
	case Blend:
		return "blend"
	default:
		return "unset"
	}
}

// ParseComposition maps "replace", "none" and "blend" to a Composition.
func ParseComposition(s string) (Composition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replace":
		return Replace, nil
	case "none":
		return None, nil
	case "blend", "add":
		return Blend, nil
	}
	return compositionUnset, fmt.Errorf("unknown composition %q", s)
}

// Infinite as a loop count repeats forever.
const Infinite = -1

// NoLoop as a loop count plays once, overriding a looping default.
const NoLoop = -2

// massTargetThreshold is the target count above which composition defaults
// to None.
const massTargetThreshold = 1000

// Defaults are the timing values nodes fall back on. An Engine takes a
// snapshot at construction, and a Timeline layers its own over the engine's.
type Defaults struct {
	Duration    time.Duration
	Delay       time.Duration
	LoopDelay   time.Duration
	Loop        int
	Alternate   bool
	Reversed    bool
	Ease        easing.Easing
	Composition Composition
	Modifier    value.Modifier
	Speed       float64
	FPS         float64
}

// StandardDefaults returns one second, outQuad, replace.
func StandardDefaults() Defaults {
	return Defaults{
		Duration:    time.Second,
		Ease:        easing.MustParse("outQuad"),
		Composition: Replace,
		Speed:       1,
		FPS:         maxFPS,
	}
}

// merge returns d with every non-zero field of o laid over it.
func (d Defaults) merge(o Defaults) Defaults {
	if o.Duration != 0 {
		d.Duration = o.Duration
	}
	if o.Delay != 0 {
		d.Delay = o.Delay
	}
	if o.LoopDelay != 0 {
		d.LoopDelay = o.LoopDelay
	}
	if o.Loop != 0 {
		d.Loop = o.Loop
	}
	d.Alternate = d.Alternate || o.Alternate
	d.Reversed = d.Reversed || o.Reversed
	if o.Ease != nil {
		d.Ease = o.Ease
	}
	if o.Composition != compositionUnset {
		d.Composition = o.Composition
	}
	if o.Modifier != nil {
		d.Modifier = o.Modifier
	}
	if o.Speed != 0 {
		d.Speed = o.Speed
	}
	if o.FPS != 0 {
		d.FPS = o.FPS
	}
	return d
}

// Callbacks are lifecycle hooks. They run on the goroutine driving the
// engine and are muted during internal renders.
type Callbacks struct {
	OnBegin        func(*Timer)
	OnLoop         func(*Timer)
	OnBeforeUpdate func(*Timer)
	OnUpdate       func(*Timer)
	OnRender       func(*Timer)
	OnPause        func(*Timer)
	OnComplete     func(*Timer)
}

// DelayFunc computes a per-target delay.
type DelayFunc func(target Target, i, n int) time.Duration

// Params configures a timer, an animation or a timeline. Zero fields fall
// back on the defaults in effect.
type Params struct {
	// ID registers the node with its engine for lookup. Children of a
	// timeline are never registered.
	ID           string
	Duration     time.Duration
	Delay        time.Duration
	DelayFunc    DelayFunc
	LoopDelay    time.Duration
	Loop         int
	Alternate    bool
	Reversed     bool
	Paused       bool
	Ease         easing.Easing
	PlaybackEase easing.Easing
	Composition  Composition
	Modifier     value.Modifier
	Speed        float64
	FPS          float64
	Callbacks
}

// TimelineParams configures a timeline. Defaults apply to its children.
type TimelineParams struct {
	Params
	Defaults Defaults
}

// Props maps property names to values. A value is one of:
//
//   - a scalar (number, string, value.Value, colorful.Color): the end value
//   - a two element slice: from and to
//   - a longer slice: successive keyframes sharing the duration
//   - a Keyframe or []Keyframe
//   - a Func, evaluated per target into any of the above
type Props map[string]any

// Keyframe describes one tween explicitly. Zero fields inherit from the
// animation.
type Keyframe struct {
	From        any
	To          any
	Duration    time.Duration
	Delay       time.Duration
	Ease        easing.Easing
	Composition Composition
	Modifier    value.Modifier
}

// Func produces a property value per target.
type Func func(target Target, i, n int) any

// StaggerFrom picks where a stagger starts. Non-negative values are target
// indices.
type StaggerFrom int

const (
	FromFirst  StaggerFrom = 0
	FromLast   StaggerFrom = -1
	FromCenter StaggerFrom = -2
)

// StaggerParams shapes the delays produced by Stagger.
type StaggerParams struct {
	Start    time.Duration
	From     StaggerFrom
	Reversed bool
	Ease     easing.Easing
}

// Stagger spreads delays by step across targets, growing with the distance
// from p.From.
func Stagger(step time.Duration, p StaggerParams) DelayFunc {
	return func(_ Target, i, n int) time.Duration {
		if n <= 1 {
			return p.Start
		}
		var origin float64
		switch {
		case p.From == FromLast:
			origin = float64(n - 1)
		case p.From == FromCenter:
			origin = float64(n-1) / 2
		case int(p.From) < n:
			origin = float64(p.From)
		default:
			origin = float64(n - 1)
		}
		maxDist := math.Max(origin, float64(n-1)-origin)
		dist := math.Abs(float64(i) - origin)
		if p.Ease != nil && maxDist > 0 {
			dist = p.Ease.Ease(dist/maxDist) * maxDist
		}
		if p.Reversed {
			dist = maxDist - dist
		}
		return p.Start + time.Duration(math.Round(dist*float64(step)))
	}
}
