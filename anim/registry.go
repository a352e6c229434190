package anim

import (
	"time"

	"github.com/matt-g-everett/ledmotion/value"
)

type propKey struct {
	target   Target
	property string
}

// blendChain sums the deltas of every blended tween on a property on top of
// base, the absolute value the last composed tween heads towards.
type blendChain struct {
	base   value.Value
	tweens []*Tween
	dirty  bool
}

func (c *blendChain) sum() value.Value {
	deltas := make([]value.Value, len(c.tweens))
	for i, tw := range c.tweens {
		deltas[i] = tw.current
	}
	return value.Sum(c.base, deltas...)
}

// registry indexes tweens by target property. It references tweens, the
// owning animations own them.
type registry struct {
	replace map[propKey][]*Tween
	blend   map[propKey]*blendChain
}

func newRegistry() *registry {
	return &registry{
		replace: make(map[propKey][]*Tween),
		blend:   make(map[propKey]*blendChain),
	}
}

// previous returns the last live tween on key starting no later than at.
func (r *registry) previous(key propKey, at time.Duration) *Tween {
	var prev *Tween
	for _, s := range r.replace[key] {
		if s.absStart > at {
			break
		}
		if !s.overridden {
			prev = s
		}
	}
	return prev
}

// blendBase returns the value the blend chain on key currently heads
// towards.
func (r *registry) blendBase(key propKey) (value.Value, bool) {
	c, ok := r.blend[key]
	if !ok {
		return value.Value{}, false
	}
	return c.base.Clone(), true
}

func (r *registry) compose(tw *Tween) {
	switch tw.composition {
	case Replace:
		r.composeReplace(tw)
	case Blend:
		r.composeBlend(tw)
	}
}

func (r *registry) composeReplace(tw *Tween) {
	key := tw.key()
	chain := r.replace[key]

	// Overridden tweens stay in the chain while their owner lives; they
	// are skipped, never treated as the end of the walk.
	i := 0
	var prev *Tween
	for i < len(chain) && chain[i].absStart <= tw.absStart {
		if !chain[i].overridden {
			prev = chain[i]
		}
		i++
	}
	for _, later := range chain[i:] {
		overrideTween(later)
	}

	chain = append(chain, nil)
	copy(chain[i+1:], chain[i:])
	chain[i] = tw
	r.replace[key] = chain

	if prev == nil {
		return
	}

	prevOwner := prev.owner
	prevAbsEnd := prev.absEnd()

	// A looping animation keeps rendering the property on later iterations.
	if prevOwner != tw.owner && prevOwner.iterationCount > 1 &&
		prevAbsEnd+(prevOwner.duration-prevOwner.iterationDuration) > tw.absStart {
		for _, s := range chain[:i] {
			if s.owner == prevOwner {
				overrideTween(s)
			}
		}
	}

	updateStart := tw.absStart - tw.delay
	if prevAbsEnd > updateStart {
		change := updateStart - prev.absStart
		prev.changeDuration = change
		prev.currentTime = change
		prev.overlapped = true
		if change < minDuration {
			overrideTween(prev)
		}
	}

	if prevOwner == tw.owner || prevOwner.root() == tw.owner.root() || !fullyOverlapped(prevOwner) {
		return
	}
	if tl := prevOwner.parent; tl != nil {
		for _, c := range tl.children {
			if c != prevOwner && !fullyOverlapped(c) {
				return
			}
		}
		tl.Cancel()
		return
	}
	prevOwner.Cancel()
}

func (r *registry) composeBlend(tw *Tween) {
	key := tw.key()
	c, ok := r.blend[key]
	if !ok {
		c = &blendChain{base: tw.absFrom.Clone()}
		r.blend[key] = c
	}
	tw.from = value.Diff(c.base, tw.absTo)
	tw.to = value.Zero(tw.absTo)
	tw.current = tw.from.Clone()
	c.base = tw.absTo.Clone()
	c.tweens = append(c.tweens, tw)
	c.dirty = true
}

func (r *registry) markDirty(tw *Tween) {
	if c, ok := r.blend[tw.key()]; ok {
		c.dirty = true
	}
}

// neighbours returns the live tweens either side of tw in its replace
// chain.
func (r *registry) neighbours(tw *Tween) (prev, next *Tween) {
	if tw.composition != Replace {
		return nil, nil
	}
	chain := r.replace[tw.key()]
	at := -1
	for i, s := range chain {
		if s == tw {
			at = i
			break
		}
	}
	if at < 0 {
		return nil, nil
	}
	for i := at - 1; i >= 0; i-- {
		if !chain[i].overridden {
			prev = chain[i]
			break
		}
	}
	for i := at + 1; i < len(chain); i++ {
		if !chain[i].overridden {
			next = chain[i]
			break
		}
	}
	return prev, next
}

// owners returns the animations with a composed tween on target, paused
// ones included.
func (r *registry) owners(target Target) []*Timer {
	var out []*Timer
	for key, chain := range r.replace {
		if key.target != target {
			continue
		}
		for _, tw := range chain {
			out = append(out, tw.owner)
		}
	}
	for key, c := range r.blend {
		if key.target != target {
			continue
		}
		for _, tw := range c.tweens {
			out = append(out, tw.owner)
		}
	}
	return out
}

func (r *registry) remove(tw *Tween) {
	key := tw.key()
	switch tw.composition {
	case Replace:
		chain := r.replace[key]
		for i, s := range chain {
			if s == tw {
				chain = append(chain[:i], chain[i+1:]...)
				break
			}
		}
		if len(chain) == 0 {
			delete(r.replace, key)
		} else {
			r.replace[key] = chain
		}
	case Blend:
		c, ok := r.blend[key]
		if !ok {
			return
		}
		for i, s := range c.tweens {
			if s == tw {
				// Fold the delta into the base so the property holds still.
				c.base = value.Sum(c.base, s.current)
				c.tweens = append(c.tweens[:i], c.tweens[i+1:]...)
				break
			}
		}
		if len(c.tweens) == 0 {
			delete(r.blend, key)
		}
	}
}

// flush writes the summed value of every blend chain touched since the last
// flush and returns the number of writes.
func (r *registry) flush(sink Sink) int {
	n := 0
	for key, c := range r.blend {
		if !c.dirty {
			continue
		}
		c.dirty = false
		sink.Write(key.target, key.property, c.sum())
		n++
	}
	return n
}

func overrideTween(tw *Tween) {
	tw.overlapped = true
	tw.overridden = true
	tw.changeDuration = minDuration
	tw.currentTime = minDuration
}

// fullyOverlapped reports whether nothing in t would render anymore. Plain
// timers carry callbacks and never count as overlapped.
func fullyOverlapped(t *Timer) bool {
	switch t.kind {
	case kindAnimation:
		for _, tw := range t.tweens {
			if !tw.overlapped {
				return false
			}
		}
		return true
	case kindTimeline:
		for _, c := range t.children {
			if !fullyOverlapped(c) {
				return false
			}
		}
		return true
	}
	return false
}
