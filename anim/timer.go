package anim

import (
	"math"
	"sync"
	"time"

	"github.com/matt-g-everett/ledmotion/easing"
)

type nodeKind int

const (
	kindTimer nodeKind = iota
	kindAnimation
	kindTimeline
)

func (k nodeKind) String() string {
	switch k {
	case kindAnimation:
		return "animation"
	case kindTimeline:
		return "timeline"
	default:
		return "timer"
	}
}

const infiniteCount = math.MaxInt

// Timer is the schedulable node every animation and timeline is built on.
// On its own it only keeps time and fires callbacks.
//
// Control methods are not safe for concurrent use with Engine.Tick. From
// other goroutines call them inside Engine.Do.
type Timer struct {
	frameClock

	id        string
	kind      nodeKind
	engine    *Engine
	parent    *Timer
	defaults  Defaults
	callbacks Callbacks

	duration          time.Duration
	iterationDuration time.Duration
	iterationCount    int
	delay             time.Duration
	loopDelay         time.Duration
	offset            time.Duration

	currentTime      time.Duration
	iterationTime    time.Duration
	currentIteration int

	reversed        bool
	initialReversed bool
	alternate       bool
	backwards       bool
	paused          bool
	began           bool
	completed       bool
	cancelled       bool
	running         bool
	autoplay        bool

	ease easing.Easing

	tweens   []*Tween
	children []*Timer
	labels   map[string]time.Duration

	doneMu   sync.Mutex
	done     chan struct{}
	resolved bool
	thens    []func(*Timer)
}

// Timer creates a standalone timer, useful for its callbacks and as a clock.
// Unless p.Paused it starts playing on the next frame.
func (e *Engine) Timer(p Params) *Timer {
	t := newTimer(e, kindTimer, p, e.defaults, nil, 0)
	t.init(false)
	e.register(t)
	return t
}

func newTimer(e *Engine, kind nodeKind, p Params, d Defaults, parent *Timer, position time.Duration) *Timer {
	t := new(Timer)
	t.kind = kind
	t.engine = e
	t.parent = parent
	t.defaults = d
	t.callbacks = p.Callbacks
	if parent == nil {
		t.id = p.ID
	}

	loop := p.Loop
	if loop == 0 {
		loop = d.Loop
	}
	if loop == NoLoop {
		loop = 0
	}
	t.iterationCount = loop + 1
	if loop < 0 {
		t.iterationCount = infiniteCount
	}
	t.delay = orDuration(p.Delay, d.Delay)
	t.loopDelay = orDuration(p.LoopDelay, d.LoopDelay)
	t.iterationDuration = normalizeDuration(orDuration(p.Duration, d.Duration))
	t.duration = totalDuration(t.iterationDuration, t.loopDelay, t.iterationCount)

	t.reversed = p.Reversed || d.Reversed
	t.initialReversed = t.reversed
	t.alternate = p.Alternate || d.Alternate
	t.autoplay = parent == nil && !p.Paused
	t.ease = p.PlaybackEase
	t.paused = true
	t.currentTime = -t.delay

	start := time.Duration(0)
	if parent == nil {
		start = e.now()
		t.offset = start
	} else {
		t.offset = position
	}
	t.frameClock = newFrameClock(orFloat(p.FPS, d.FPS), orFloat(p.Speed, d.Speed), start)
	t.done = make(chan struct{})
	return t
}

func totalDuration(iteration, loopDelay time.Duration, count int) time.Duration {
	if count <= 0 {
		return minDuration
	}
	if count == infiniteCount {
		return maxDuration
	}
	d := float64(iteration+loopDelay)*float64(count) - float64(loopDelay)
	if d >= float64(maxDuration) {
		return maxDuration
	}
	return normalizeDuration(time.Duration(d))
}

func orDuration(v, def time.Duration) time.Duration {
	if v != 0 {
		return v
	}
	return def
}

func orFloat(v, def float64) float64 {
	if v != 0 {
		return v
	}
	if def != 0 {
		return def
	}
	return 1
}

// init renders the starting state and starts playback when autoplaying.
func (t *Timer) init(internal bool) *Timer {
	if !internal && t.kind == kindTimeline {
		tick(t, t.duration, true, false, tickForce)
	}
	t.reset(internal)
	if t.autoplay {
		t.Resume()
	}
	return t
}

func (t *Timer) reset(soft bool) *Timer {
	t.revive()
	if t.reversed && !t.initialReversed {
		t.reversed = false
	}
	t.iterationTime = t.iterationDuration
	tick(t, 0, true, soft, tickForce)
	resetProperties(t)
	for _, c := range t.children {
		resetProperties(c)
	}
	t.doneMu.Lock()
	if t.resolved {
		t.done = make(chan struct{})
		t.resolved = false
	}
	t.doneMu.Unlock()
	return t
}

func resetProperties(t *Timer) {
	t.paused = true
	t.began = false
	t.completed = false
}

// revive re-registers the tweens of a cancelled timer.
func (t *Timer) revive() {
	if !t.cancelled {
		return
	}
	if t.kind == kindTimeline {
		for _, c := range t.children {
			c.revive()
		}
	} else {
		for _, tw := range t.tweens {
			tw.overlapped = false
			tw.overridden = false
			tw.changeDuration = tw.updateDuration
			tw.from, tw.to = tw.absFrom.Clone(), tw.absTo.Clone()
			t.engine.registry.compose(tw)
		}
	}
	t.cancelled = false
}

func (t *Timer) resetTime() *Timer {
	timeScale := t.speed * t.engine.speed
	t.startTime = t.engine.now() - time.Duration(float64(t.currentTime+t.delay)/timeScale)
	return t
}

// Pause stops the timer. The engine drops it on its next frame.
func (t *Timer) Pause() *Timer {
	if t.paused {
		return t
	}
	t.paused = true
	t.fire(t.callbacks.OnPause)
	return t
}

// Resume continues from the current time.
func (t *Timer) Resume() *Timer {
	if !t.paused {
		return t
	}
	t.paused = false
	if t.duration <= minDuration && t.kind != kindTimeline {
		tick(t, minDuration, false, false, tickForce)
		// Never joins the run list, so release its tweens here.
		if t.parent == nil && t.completed && !t.cancelled {
			t.Cancel()
		}
		return t
	}
	if !t.running {
		t.engine.add(t)
		t.running = true
	}
	t.resetTime()
	return t
}

// Play resumes forwards. A timer that already completed forwards starts
// over.
func (t *Timer) Play() *Timer {
	if t.reversed {
		t.Alternate()
	}
	if t.completed && t.currentTime >= t.duration {
		t.reset(false)
	}
	return t.Resume()
}

// Reverse resumes backwards.
func (t *Timer) Reverse() *Timer {
	if !t.reversed {
		t.Alternate()
	}
	return t.Resume()
}

// Restart resets to the beginning and plays.
func (t *Timer) Restart() *Timer {
	return t.reset(false).Resume()
}

// Reset rewinds to the beginning without playing.
func (t *Timer) Reset() *Timer {
	return t.reset(false)
}

// Alternate flips the playback direction in place.
func (t *Timer) Alternate() *Timer {
	count := t.iterationCount
	iterations := count
	if count == infiniteCount {
		iterations = int(maxDuration / t.iterationDuration)
	}
	if !(t.alternate && iterations%2 == 0) {
		t.reversed = !t.reversed
	}
	if count == infiniteCount {
		p := t.IterationProgress()
		if t.reversed {
			p = 1 - p
		}
		t.SetIterationProgress(p)
	} else {
		t.seek(t.iterationDuration*time.Duration(iterations)-t.currentTime, false, false)
	}
	t.resetTime()
	return t
}

// Seek renders the timer at d, counted from the end of its delay, without
// waiting for a frame.
func (t *Timer) Seek(d time.Duration) *Timer {
	return t.seek(d, false, false)
}

func (t *Timer) seek(d time.Duration, mute, internal bool) *Timer {
	t.revive()
	wasPaused := t.paused
	t.paused = true
	tick(t, d+t.delay, mute, internal, tickAuto)
	t.engine.flush()
	if !wasPaused {
		t.Resume()
	}
	return t
}

// Cancel detaches the timer from the engine and releases its tweens.
func (t *Timer) Cancel() *Timer {
	if t.kind == kindTimeline {
		for i := len(t.children) - 1; i >= 0; i-- {
			t.children[i].Cancel()
		}
	} else {
		for _, tw := range t.tweens {
			t.engine.registry.remove(tw)
		}
	}
	t.cancelled = true
	return t.Pause()
}

// Revert renders the starting state, restores the values the targets had
// before the timer touched them and cancels.
func (t *Timer) Revert() *Timer {
	tick(t, 0, true, false, tickAuto)
	t.restoreOrigins()
	return t.Cancel()
}

func (t *Timer) restoreOrigins() {
	for i := len(t.children) - 1; i >= 0; i-- {
		t.children[i].restoreOrigins()
	}
	for i := len(t.tweens) - 1; i >= 0; i-- {
		tw := t.tweens[i]
		if tw.hasOrigin {
			t.engine.write(tw.target, tw.property, tw.origin)
		}
	}
}

// Complete jumps to the end and cancels.
func (t *Timer) Complete() *Timer {
	return t.Seek(t.duration).Cancel()
}

// Stretch rescales the timer, and everything inside it, to total duration d.
func (t *Timer) Stretch(d time.Duration) *Timer {
	t.stretch(d)
	t.root().refreshAbsoluteStarts()
	return t
}

func (t *Timer) stretch(d time.Duration) {
	current := t.duration
	if current == normalizeDuration(d) {
		return
	}
	k := float64(d) / float64(current)
	switch t.kind {
	case kindAnimation:
		for _, tw := range t.tweens {
			tw.stretch(k)
		}
	case kindTimeline:
		for _, c := range t.children {
			c.stretch(scale(c.duration, k))
		}
		for name, at := range t.labels {
			t.labels[name] = scale(at, k)
		}
	}
	if d <= minDuration {
		t.duration = minDuration
		t.iterationDuration = minDuration
	} else {
		t.duration = normalizeDuration(d)
		t.iterationDuration = normalizeDuration(scale(t.iterationDuration, k))
	}
	if t.parent != nil {
		t.offset = scale(t.offset, k)
	}
	t.delay = scale(t.delay, k)
	t.loopDelay = scale(t.loopDelay, k)
}

func (t *Timer) refreshAbsoluteStarts() {
	for _, c := range t.children {
		c.refreshAbsoluteStarts()
	}
	base := t.absoluteOffset() + t.delay
	for _, tw := range t.tweens {
		tw.absStart = base + tw.start
	}
}

// absoluteOffset sums the offsets from t up to the root.
func (t *Timer) absoluteOffset() time.Duration {
	var off time.Duration
	for n := t; n != nil; n = n.parent {
		off += n.offset
	}
	return off
}

func (t *Timer) root() *Timer {
	n := t
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// SetSpeed changes the playback rate.
func (t *Timer) SetSpeed(s float64) *Timer {
	t.setSpeed(s)
	t.resetTime()
	return t
}

// SetFPS caps how often the timer renders.
func (t *Timer) SetFPS(fps float64) *Timer {
	t.setFPS(fps)
	return t
}

// Then calls fn on completion, at once if the timer already completed.
func (t *Timer) Then(fn func(*Timer)) *Timer {
	if t.completed {
		fn(t)
		return t
	}
	t.thens = append(t.thens, fn)
	return t
}

// Done is closed when the timer completes. Restarting a completed timer
// hands out a fresh channel.
func (t *Timer) Done() <-chan struct{} {
	t.doneMu.Lock()
	defer t.doneMu.Unlock()
	return t.done
}

func (t *Timer) resolve() {
	t.doneMu.Lock()
	if !t.resolved {
		close(t.done)
		t.resolved = true
	}
	t.doneMu.Unlock()
	thens := t.thens
	t.thens = nil
	for _, fn := range thens {
		fn(t)
	}
}

func (t *Timer) fire(cb func(*Timer)) {
	if cb != nil {
		cb(t)
	}
}

func (t *Timer) ID() string                       { return t.id }
func (t *Timer) Parent() *Timer                   { return t.parent }
func (t *Timer) Duration() time.Duration          { return t.duration }
func (t *Timer) IterationDuration() time.Duration { return t.iterationDuration }
func (t *Timer) Delay() time.Duration             { return t.delay }
func (t *Timer) LoopDelay() time.Duration         { return t.loopDelay }
func (t *Timer) Offset() time.Duration            { return t.offset }
func (t *Timer) Paused() bool                     { return t.paused }
func (t *Timer) Began() bool                      { return t.began }
func (t *Timer) Completed() bool                  { return t.completed }
func (t *Timer) Cancelled() bool                  { return t.cancelled }
func (t *Timer) Running() bool                    { return t.running }
func (t *Timer) Reversed() bool                   { return t.reversed }
func (t *Timer) Backwards() bool                  { return t.backwards }

// IterationCount returns the number of iterations, -1 when infinite.
func (t *Timer) IterationCount() int {
	if t.iterationCount == infiniteCount {
		return Infinite
	}
	return t.iterationCount
}

// Tweens returns the tweens of an animation.
func (t *Timer) Tweens() []*Tween {
	return append([]*Tween(nil), t.tweens...)
}

// Children returns the children of a timeline.
func (t *Timer) Children() []*Timer {
	return append([]*Timer(nil), t.children...)
}

// CurrentTime is the time since the end of the delay, within [-delay,
// duration].
func (t *Timer) CurrentTime() time.Duration {
	return clampDuration(t.currentTime, -t.delay, t.duration)
}

// SetCurrentTime seeks to d, keeping the play state.
func (t *Timer) SetCurrentTime(d time.Duration) *Timer {
	paused := t.paused
	t.Pause().Seek(d)
	if !paused {
		t.Resume()
	}
	return t
}

// IterationCurrentTime is the time within the current iteration.
func (t *Timer) IterationCurrentTime() time.Duration { return t.iterationTime }

// SetIterationCurrentTime seeks within the current iteration.
func (t *Timer) SetIterationCurrentTime(d time.Duration) *Timer {
	return t.SetCurrentTime(t.iterationDuration*time.Duration(t.currentIteration) + d)
}

// Progress is CurrentTime over Duration, within [0, 1].
func (t *Timer) Progress() float64 {
	return clampRatio(float64(t.currentTime) / float64(t.duration))
}

// SetProgress seeks to p of the total duration.
func (t *Timer) SetProgress(p float64) *Timer {
	return t.SetCurrentTime(time.Duration(float64(t.duration) * p))
}

// IterationProgress is the progress within the current iteration.
func (t *Timer) IterationProgress() float64 {
	return clampRatio(float64(t.iterationTime) / float64(t.iterationDuration))
}

// SetIterationProgress seeks to p of the current iteration.
func (t *Timer) SetIterationProgress(p float64) *Timer {
	it := t.iterationDuration
	return t.SetCurrentTime(it*time.Duration(t.currentIteration) + time.Duration(float64(it)*p))
}

// CurrentIteration is the zero based iteration index.
func (t *Timer) CurrentIteration() int { return t.currentIteration }

// SetCurrentIteration seeks to the start of iteration i.
func (t *Timer) SetCurrentIteration(i int) *Timer {
	last := t.iterationCount - 1
	if i > last {
		i = last
	}
	if i < 0 {
		i = 0
	}
	return t.SetCurrentTime(t.iterationDuration * time.Duration(i))
}

func clampRatio(r float64) float64 {
	r = math.Round(r*1e10) / 1e10
	if r < 0 || math.IsNaN(r) {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// Status is a snapshot of a timer for reporting.
type Status struct {
	ID          string        `json:"id"`
	Kind        string        `json:"kind"`
	Progress    float64       `json:"progress"`
	CurrentTime time.Duration `json:"currentTime"`
	Duration    time.Duration `json:"duration"`
	Iteration   int           `json:"iteration"`
	Paused      bool          `json:"paused"`
	Completed   bool          `json:"completed"`
	Cancelled   bool          `json:"cancelled"`
	Reversed    bool          `json:"reversed"`
}

// Status returns a snapshot of t.
func (t *Timer) Status() Status {
	return Status{
		ID:          t.id,
		Kind:        t.kind.String(),
		Progress:    t.Progress(),
		CurrentTime: t.CurrentTime(),
		Duration:    t.duration,
		Iteration:   t.currentIteration,
		Paused:      t.paused,
		Completed:   t.completed,
		Cancelled:   t.cancelled,
		Reversed:    t.reversed,
	}
}
