package anim

import (
	"reflect"
	"sort"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matt-g-everett/ledmotion/easing"
	"github.com/matt-g-everett/ledmotion/value"
)

// Animation is a Timer that owns tweens generated from a property map.
type Animation struct {
	*Timer
	targets []Target
}

// Targets returns the targets the animation was built for.
func (a *Animation) Targets() []Target {
	return append([]Target(nil), a.targets...)
}

// Animate builds an animation of props on targets and, unless p.Paused,
// starts playing it on the next frame.
func (e *Engine) Animate(targets []Target, props Props, p Params) *Animation {
	a := newAnimation(e, targets, props, p, e.defaults, nil, 0)
	a.init(false)
	e.register(a.Timer)
	return a
}

func newAnimation(e *Engine, targets []Target, props Props, p Params, d Defaults, parent *Timer, position time.Duration) *Animation {
	t := newTimer(e, kindAnimation, p, d, parent, position)
	a := &Animation{Timer: t, targets: e.filterTargets(targets)}

	n := len(a.targets)
	composition := p.Composition
	if composition == compositionUnset {
		composition = d.Composition
		if n >= massTargetThreshold {
			composition = None
		}
	}
	ease := p.Ease
	if ease == nil {
		ease = d.Ease
	}
	if ease == nil {
		ease = easing.Linear
	}
	modifier := p.Modifier
	if modifier == nil {
		modifier = d.Modifier
	}
	total := orDuration(p.Duration, d.Duration)
	baseDelay := orDuration(p.Delay, d.Delay)
	absOffset := t.absoluteOffset()

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	shortest := maxDuration
	var end time.Duration
	for i, target := range a.targets {
		delay := baseDelay
		if p.DelayFunc != nil {
			delay = p.DelayFunc(target, i, n)
		}
		for _, name := range names {
			frames := keyframesOf(props[name], target, i, n)
			var prev *Tween
			var prevEnd time.Duration
			for k, kf := range frames {
				tw := &Tween{
					owner:       t,
					target:      target,
					property:    name,
					ease:        kf.Ease,
					modifier:    kf.Modifier,
					composition: kf.Composition,
				}
				if tw.ease == nil {
					tw.ease = ease
				}
				if tw.modifier == nil {
					tw.modifier = modifier
				}
				if tw.composition == compositionUnset {
					tw.composition = composition
				}

				dur := kf.Duration
				if dur == 0 {
					dur = total / time.Duration(len(frames))
				}
				if s, ok := tw.ease.(easing.Settler); ok {
					dur = s.SettlingDuration()
				}
				dur = normalizeDuration(dur)

				tw.delay = kf.Delay
				if k == 0 {
					tw.delay += delay
				}
				tw.start = prevEnd + tw.delay
				tw.updateDuration = dur
				tw.changeDuration = dur
				tw.absStart = absOffset + tw.start

				a.resolveValues(tw, kf, prev)

				t.tweens = append(t.tweens, tw)
				e.registry.compose(tw)

				prev = tw
				prevEnd = tw.start + dur
				if tw.start < shortest {
					shortest = tw.start
				}
				if prevEnd > end {
					end = prevEnd
				}
			}
		}
	}

	if len(t.tweens) == 0 {
		e.log.Warn("animation has nothing to animate", "targets", n, "properties", len(props))
		shortest = 0
		end = 0
	}
	// Shift every tween so the earliest starts the iteration; the lead in
	// becomes the timer delay.
	for _, tw := range t.tweens {
		if tw.start == tw.delay {
			tw.delay -= shortest
		}
		tw.start -= shortest
	}
	t.delay = shortest
	t.currentTime = -shortest

	iteration := end - shortest
	if iteration <= 0 {
		t.iterationDuration = minDuration
		t.iterationCount = 0
		t.duration = minDuration
		return a
	}
	t.iterationDuration = iteration
	t.duration = totalDuration(iteration, t.loopDelay, t.iterationCount)
	return a
}

// resolveValues sets the end points of tw. An implicit or relative from is
// taken from the previous keyframe, from a not yet rendered earlier tween
// of the same timeline, or from the sink.
func (a *Animation) resolveValues(tw *Tween, kf Keyframe, prev *Tween) {
	e := a.engine
	to := e.decompose(kf.To, tw)

	base := func() value.Value {
		key := tw.key()
		if tw.composition == Blend {
			if v, ok := e.registry.blendBase(key); ok {
				return v
			}
		} else if tw.composition == Replace {
			if s := e.registry.previous(key, tw.absStart); s != nil && s.owner.root() == a.root() {
				return s.absTo.Clone()
			}
		}
		raw, ok := e.sink.Read(tw.target, tw.property)
		if !ok {
			return value.Num(0)
		}
		v := e.decompose(raw, tw)
		if prev == nil {
			tw.origin = v.Clone()
			tw.hasOrigin = true
		}
		return v
	}

	var from value.Value
	switch {
	case kf.From != nil:
		from = e.decompose(kf.From, tw)
		if from.Operator != value.NoOp {
			from = value.ResolveRelative(base(), from)
		}
	case prev != nil:
		from = prev.absTo.Clone()
	default:
		from = base()
	}
	if to.Operator != value.NoOp {
		to = value.ResolveRelative(from, to)
	}

	from, to, err := value.Reconcile(from, to, e.converter(tw.target, tw.property))
	if err != nil {
		e.log.Debug("unit conversion", "property", tw.property, "error", err)
	}
	tw.from, tw.to = from, to
	tw.absFrom, tw.absTo = from.Clone(), to.Clone()
	tw.current = from.Clone()
}

// keyframesOf normalises a property value into keyframes.
func keyframesOf(raw any, target Target, i, n int) []Keyframe {
	switch v := raw.(type) {
	case nil:
		return nil
	case Func:
		return keyframesOf(v(target, i, n), target, i, n)
	case func(Target, int, int) any:
		return keyframesOf(v(target, i, n), target, i, n)
	case Keyframe:
		return []Keyframe{v}
	case []Keyframe:
		return v
	case string, value.Value, colorful.Color:
		return []Keyframe{{To: v}}
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []Keyframe{{To: raw}}
	}
	items := make([]any, rv.Len())
	plain := true
	for j := range items {
		items[j] = rv.Index(j).Interface()
		if _, ok := items[j].(Keyframe); ok {
			plain = false
		}
	}
	if plain && len(items) == 2 {
		return []Keyframe{{From: items[0], To: items[1]}}
	}
	frames := make([]Keyframe, 0, len(items))
	for _, item := range items {
		if kf, ok := item.(Keyframe); ok {
			frames = append(frames, kf)
			continue
		}
		frames = append(frames, Keyframe{To: item})
	}
	return frames
}
