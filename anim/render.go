package anim

import (
	"time"

	"github.com/matt-g-everett/ledmotion/value"
)

// tickThreshold is the jump in time past which a render counts as a seek
// and every tween is re-rendered.
const tickThreshold = 200 * time.Millisecond

// render brings t to local time now (delay included). It reports whether
// any tween wrote a value.
func render(t *Timer, now time.Duration, mute, internal bool, mode tickMode) bool {
	parent := t.parent
	duration := t.duration
	completed := t.completed
	iterationDuration := t.iterationDuration
	iterationCount := t.iterationCount
	prevIteration := t.currentIteration
	loopDelay := t.loopDelay
	hasChildren := t.kind == kindTimeline
	delay := t.delay
	prevAbsoluteTime := t.currentTime

	endTime := delay + iterationDuration
	absoluteTime := now - delay
	prevTime := clampDuration(prevAbsoluteTime, -delay, duration)
	currentTime := clampDuration(absoluteTime, -delay, duration)
	deltaTime := absoluteTime - prevAbsoluteTime
	aboveZero := currentTime > 0
	atEnd := currentTime >= duration
	isSetter := duration <= minDuration
	forced := mode == tickForce

	odd := false
	iterationElapsed := absoluteTime
	if iterationCount > 1 {
		span := iterationDuration
		if !atEnd {
			span += loopDelay
		}
		iteration := int(currentTime / span)
		if iteration < 0 {
			iteration = 0
		}
		if iteration > iterationCount {
			iteration = iterationCount
		}
		if atEnd {
			iteration--
		}
		t.currentIteration = iteration
		odd = iteration%2 == 1
		iterationElapsed = currentTime % (iterationDuration + loopDelay)
	}

	reversed := t.reversed != (t.alternate && odd)
	var iterationTime time.Duration
	switch {
	case atEnd && reversed:
		iterationTime = 0
	case atEnd:
		iterationTime = iterationDuration
	case reversed:
		iterationTime = iterationDuration - iterationElapsed
	default:
		iterationTime = iterationElapsed
	}
	if t.ease != nil {
		p := clampRatio(float64(iterationTime) / float64(iterationDuration))
		iterationTime = time.Duration(float64(iterationDuration) * t.ease.Ease(p))
	}

	backwards := absoluteTime < prevAbsoluteTime
	if parent != nil {
		backwards = parent.backwards
	}
	backwards = backwards != reversed

	t.currentTime = absoluteTime
	t.iterationTime = iterationTime
	t.backwards = backwards

	parentMutes := parent != nil && (backwards || !parent.began)
	if aboveZero && !t.began {
		t.began = true
		if !mute && !parentMutes {
			t.fire(t.callbacks.OnBegin)
		}
	} else if absoluteTime <= 0 {
		t.began = false
	}

	if !mute && !hasChildren && aboveZero && t.currentIteration != prevIteration {
		t.fire(t.callbacks.OnLoop)
	}

	rendered := false
	if forced ||
		mode == tickAuto && (now >= delay && now <= endTime ||
			now <= delay && prevTime > 0 ||
			now >= endTime && prevTime != duration) ||
		iterationTime <= 0 && prevTime > 0 ||
		now <= prevTime && prevTime == duration && completed ||
		atEnd && !completed && isSetter {

		if aboveZero {
			t.computeDeltaTime(absoluteTime)
			if !mute {
				t.fire(t.callbacks.OnBeforeUpdate)
			}
		}

		if !hasChildren {
			jump := deltaTime
			if backwards {
				jump = -jump
			}
			forcedRender := forced || jump >= tickThreshold
			engineTime := t.absoluteOffset() + delay + iterationTime
			for _, tw := range t.tweens {
				if t.renderTween(tw, iterationTime, engineTime, forcedRender) {
					rendered = true
				}
			}
			if rendered && !mute {
				t.fire(t.callbacks.OnRender)
			}
		}

		if !mute && aboveZero {
			t.fire(t.callbacks.OnUpdate)
		}
	}

	switch {
	case parent != nil && isSetter:
		// Setters inside a timeline complete again when played through
		// backwards.
		if !mute && (parent.began && !backwards && absoluteTime >= duration && !completed ||
			backwards && absoluteTime <= minDuration && completed) {
			t.fire(t.callbacks.OnComplete)
			t.completed = !backwards
		}
	case aboveZero && atEnd:
		if iterationCount == infiniteCount {
			t.startTime += t.duration
		} else if t.currentIteration >= iterationCount-1 {
			t.paused = true
			if !completed && !hasChildren {
				t.completed = true
				if !mute && !parentMutes {
					t.fire(t.callbacks.OnComplete)
					t.resolve()
				}
			}
		}
	default:
		t.completed = false
	}

	return rendered
}

// renderTween writes tw's value at iterationTime. engineTime is the same
// instant in engine time, used against the override chain.
func (t *Timer) renderTween(tw *Tween, iterationTime, engineTime time.Duration, forced bool) bool {
	reg := t.engine.registry
	prev, next := reg.neighbours(tw)
	absEnd := tw.absEnd()

	var nextDelay time.Duration
	if next != nil {
		nextDelay = next.delay
	}
	inWindow := forced ||
		(tw.currentTime != tw.changeDuration || engineTime <= absEnd+nextDelay) &&
			(tw.currentTime != 0 || engineTime >= tw.absStart)
	if !inWindow {
		return false
	}
	if tw.composition != None {
		if tw.overridden ||
			tw.overlapped && engineTime > absEnd ||
			next != nil && !next.overridden && engineTime > next.absStart ||
			prev != nil && !prev.overridden && engineTime < prev.absEnd()+tw.delay {
			return false
		}
	}

	tw.currentTime = clampDuration(iterationTime-tw.start, 0, tw.changeDuration)
	progress := tw.ease.Ease(float64(tw.currentTime) / float64(tw.updateDuration))
	precision := t.engine.precision
	if progress == 0 || progress == 1 {
		precision = -1
	}

	if tw.composition == Blend {
		tw.current = value.InterpolateDelta(tw.from, tw.to, progress, precision)
		reg.markDirty(tw)
		return true
	}
	tw.current = value.Interpolate(tw.from, tw.to, progress, precision, tw.modifier)
	t.engine.write(tw.target, tw.property, tw.current)
	return true
}

// tick renders t and, for timelines, its children. It reports whether
// anything wrote a value.
func tick(t *Timer, now time.Duration, mute, internal bool, mode tickMode) bool {
	prevIteration := t.currentIteration
	rendered := render(t, now, mute, internal, mode)
	if t.kind != kindTimeline {
		return rendered
	}

	backwards := t.backwards
	childrenTime := t.iterationTime
	if internal {
		childrenTime = now
	}
	engineNow := t.engine.now()

	if !internal && t.currentIteration != prevIteration {
		for _, c := range t.children {
			if !backwards {
				// Children skipped over by the loop still get their final
				// render and callbacks.
				if !c.completed && !c.backwards && c.currentTime < c.iterationDuration {
					tick(c, childTime(t.iterationDuration, c), mute, true, tickForce)
				}
				c.began = false
				c.completed = false
			} else {
				start := c.offset + c.delay
				end := start + c.duration
				if !mute && c.duration <= minDuration && (start == 0 || end == t.iterationDuration) {
					c.fire(c.callbacks.OnComplete)
				}
			}
		}
		if !mute {
			t.fire(t.callbacks.OnLoop)
		}
	}

	childrenRendered := false
	allCompleted := true
	visit := func(c *Timer) {
		mode := mode
		if c.fps < t.fps {
			mode = c.requestTick(engineNow)
		}
		if tick(c, childTime(childrenTime, c), mute, internal, mode) {
			childrenRendered = true
		}
		if !c.completed {
			allCompleted = false
		}
	}
	if backwards {
		for i := len(t.children) - 1; i >= 0; i-- {
			visit(t.children[i])
		}
	} else {
		for _, c := range t.children {
			visit(c)
		}
	}

	if !mute && childrenRendered {
		t.fire(t.callbacks.OnRender)
	}

	if (allCompleted || backwards) && t.currentTime >= t.duration {
		t.paused = true
		if !t.completed {
			t.completed = true
			if !mute {
				t.fire(t.callbacks.OnComplete)
				t.resolve()
			}
		}
	}
	return rendered || childrenRendered
}

func childTime(parentTime time.Duration, c *Timer) time.Duration {
	return time.Duration(float64(parentTime-c.offset) * c.speed)
}
