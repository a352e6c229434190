package anim

import (
	"time"

	"github.com/matt-g-everett/ledmotion/easing"
)

// Timeline is a Timer that sequences child timers, animations and
// timelines. Its iteration lasts until its last child ends.
type Timeline struct {
	*Timer
}

// Timeline creates an empty timeline. Add its children before the next
// frame, or create it paused and Play it once built.
func (e *Engine) Timeline(p TimelineParams) *Timeline {
	tl := newTimeline(e, p, e.defaults, nil, 0)
	tl.init(false)
	e.register(tl.Timer)
	return tl
}

func newTimeline(e *Engine, p TimelineParams, d Defaults, parent *Timer, position time.Duration) *Timeline {
	t := newTimer(e, kindTimeline, p.Params, d, parent, position)
	t.defaults = d.merge(p.Defaults)
	t.labels = make(map[string]time.Duration)
	t.iterationDuration = minDuration
	t.duration = minDuration
	return &Timeline{Timer: t}
}

// Add appends an animation of props on targets at pos.
func (tl *Timeline) Add(targets []Target, props Props, p Params, pos Position) *Animation {
	var a *Animation
	tl.addChild(p.Duration, pos, func(at time.Duration) *Timer {
		a = newAnimation(tl.engine, targets, props, p, tl.defaults, tl.Timer, at)
		return a.Timer
	})
	return a
}

// AddTimer appends a plain timer, typically for its callbacks.
func (tl *Timeline) AddTimer(p Params, pos Position) *Timer {
	return tl.addChild(p.Duration, pos, func(at time.Duration) *Timer {
		return newTimer(tl.engine, kindTimer, p, tl.defaults, tl.Timer, at)
	})
}

// AddTimeline nests a new timeline at pos. Its defaults layer over this
// timeline's.
func (tl *Timeline) AddTimeline(p TimelineParams, pos Position) *Timeline {
	var child *Timeline
	tl.addChild(0, pos, func(at time.Duration) *Timer {
		child = newTimeline(tl.engine, p, tl.defaults, tl.Timer, at)
		return child.Timer
	})
	return child
}

// Set jumps props on targets to their values at pos.
func (tl *Timeline) Set(targets []Target, props Props, pos Position) *Animation {
	return tl.Add(targets, props, Params{
		Duration:    minDuration,
		Ease:        easing.Linear,
		Composition: Replace,
	}, pos)
}

// Call runs fn when the playhead crosses pos.
func (tl *Timeline) Call(fn func(*Timer), pos Position) *Timeline {
	tl.AddTimer(Params{
		Duration:  minDuration,
		Callbacks: Callbacks{OnComplete: func(*Timer) { fn(tl.Timer) }},
	}, pos)
	return tl
}

// Label names the offset pos for later positions.
func (tl *Timeline) Label(name string, pos Position) *Timeline {
	tl.labels[name] = tl.resolvePosition(pos)
	return tl
}

// Labels returns a copy of the label offsets.
func (tl *Timeline) Labels() map[string]time.Duration {
	out := make(map[string]time.Duration, len(tl.labels))
	for k, v := range tl.labels {
		out[k] = v
	}
	return out
}

func (tl *Timeline) addChild(duration time.Duration, pos Position, build func(at time.Duration) *Timer) *Timer {
	at := tl.resolvePosition(pos)
	// Setters land just before pos so their value holds at pos.
	if duration > 0 && duration <= minDuration {
		at -= minDuration
	}
	tick(tl.Timer, at, true, true, tickAuto)
	c := build(at)
	c.init(true)
	tl.children = append(tl.children, c)
	tl.recompute()
	// Rewind so every child, the new one included, holds its start value.
	tl.init(true)
	return c
}

// recompute grows the iteration to cover every child and propagates the
// change to enclosing timelines.
func (t *Timer) recompute() {
	for n := t; n != nil; n = n.parent {
		var end time.Duration
		for _, c := range n.children {
			if e := c.offset + c.delay + c.duration; e > end {
				end = e
			}
		}
		n.iterationDuration = normalizeDuration(end)
		n.duration = totalDuration(n.iterationDuration, n.loopDelay, n.iterationCount)
	}
}
