package anim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/matt-g-everett/ledmotion/logging"
	"github.com/matt-g-everett/ledmotion/value"
)

// ErrUnknownNode is returned when no node is registered under an ID.
var ErrUnknownNode = errors.New("unknown node")

// TickStats describes one processed engine frame.
type TickStats struct {
	At      time.Duration
	Delta   time.Duration
	Running int
	Writes  int
	Took    time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSink sets where rendered values are read from and written to.
func WithSink(s Sink) Option {
	return func(e *Engine) { e.sink = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithDefaults lays d over StandardDefaults.
func WithDefaults(d Defaults) Option {
	return func(e *Engine) { e.defaults = e.defaults.merge(d) }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithFPS caps the engine frame rate.
func WithFPS(fps float64) Option {
	return func(e *Engine) { e.setFPS(fps) }
}

// WithSpeed scales the playback rate of every node.
func WithSpeed(s float64) Option {
	return func(e *Engine) { e.setSpeed(s) }
}

// WithPrecision sets the decimals rendered numbers are rounded to. A
// negative precision disables rounding.
func WithPrecision(p int) Option {
	return func(e *Engine) { e.precision = p }
}

// Engine schedules top level timers, animations and timelines and renders
// them once per frame.
//
// Tick and Do are safe for concurrent use. Everything else, including the
// control methods of the nodes, must run inside Do when the engine is
// driven from another goroutine.
type Engine struct {
	mu sync.Mutex
	frameClock

	clock     Clock
	epoch     time.Time
	sink      Sink
	log       *slog.Logger
	defaults  Defaults
	precision int
	observers []Observer

	registry *registry
	running  []*Timer
	nodes    map[string]*Timer
	paused   bool
	writes   int
	factors  map[factorKey]float64
}

type factorKey struct {
	target   Target
	property string
	from, to string
}

// NewEngine returns an idle engine. Nothing renders until Tick or Run.
func NewEngine(opts ...Option) *Engine {
	e := new(Engine)
	e.clock = systemClock{}
	e.sink = nopSink{}
	e.log = logging.NewNop()
	e.defaults = StandardDefaults()
	e.precision = 4
	e.registry = newRegistry()
	e.nodes = make(map[string]*Timer)
	e.factors = make(map[factorKey]float64)
	e.frameClock = newFrameClock(maxFPS, 1, 0)
	for _, opt := range opts {
		opt(e)
	}
	e.epoch = e.clock.Now()
	return e
}

// Defaults returns the defaults new nodes fall back on.
func (e *Engine) Defaults() Defaults { return e.defaults }

// now is the engine time: wall time since construction.
func (e *Engine) now() time.Duration {
	return e.clock.Now().Sub(e.epoch)
}

func (e *Engine) add(t *Timer) {
	e.running = append(e.running, t)
}

func (e *Engine) register(t *Timer) {
	if t.id != "" {
		e.nodes[t.id] = t
	}
}

func (e *Engine) write(target Target, property string, v value.Value) {
	e.sink.Write(target, property, v)
	e.writes++
}

func (e *Engine) flush() {
	e.writes += e.registry.flush(e.sink)
}

func (e *Engine) decompose(raw any, tw *Tween) value.Value {
	v, err := value.Decompose(raw)
	if err != nil {
		e.log.Debug("animating unparseable value from zero", "property", tw.property, "raw", raw, "error", err)
	}
	return v
}

// converter converts with the analytic unit tables first, then with the
// sink when it implements value.UnitConverter. Sink factors are cached per
// target property.
func (e *Engine) converter(target Target, property string) value.Converter {
	return func(n float64, from, to string) (float64, bool) {
		if v, ok := value.ConvertUnit(n, from, to); ok {
			return v, true
		}
		uc, ok := e.sink.(value.UnitConverter)
		if !ok {
			e.log.Debug("no unit converter", "property", property, "from", from, "to", to)
			return n, false
		}
		key := factorKey{target, property, from, to}
		if f, ok := e.factors[key]; ok {
			return n * f, true
		}
		v, ok := uc.ConvertUnit(target, property, n, from, to)
		if ok && n != 0 {
			e.factors[key] = v / n
		}
		return v, ok
	}
}

// filterTargets drops nil and non-comparable targets and duplicates.
func (e *Engine) filterTargets(targets []Target) []Target {
	out := make([]Target, 0, len(targets))
	seen := make(map[Target]bool, len(targets))
	for _, t := range targets {
		if t == nil {
			continue
		}
		if !reflect.TypeOf(t).Comparable() {
			e.log.Warn("skipping non-comparable target", "type", fmt.Sprintf("%T", t))
			continue
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Tick processes one frame if the frame rate allows.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tick()
}

func (e *Engine) tick() {
	if e.paused {
		return
	}
	started := time.Now()
	now := e.now()
	mode := e.requestTick(now)
	if mode == tickNone {
		return
	}
	delta := e.computeDeltaTime(now)
	e.writes = 0

	// Nodes started by callbacks during this frame are appended and picked
	// up by the same loop.
	for i := 0; i < len(e.running); i++ {
		t := e.running[i]
		if !t.paused {
			m := mode
			if t.fps < e.fps {
				m = t.requestTick(now)
			}
			local := time.Duration(float64(now-t.startTime) * t.speed * e.speed)
			tick(t, local, false, false, m)
			continue
		}
		e.running[i] = nil
		t.running = false
		if t.completed && !t.cancelled {
			t.Cancel()
		}
	}

	live := e.running[:0]
	for _, t := range e.running {
		if t != nil {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(e.running); i++ {
		e.running[i] = nil
	}
	e.running = live
	e.flush()

	stats := TickStats{
		At:      now,
		Delta:   delta,
		Running: len(e.running),
		Writes:  e.writes,
		Took:    time.Since(started),
	}
	for _, o := range e.observers {
		o.Observe(stats)
	}
}

// Run ticks at the engine frame rate until ctx ends.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.frameDuration)
	defer ticker.Stop()
	e.log.Info("engine running", "fps", e.fps)
	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopped")
			return ctx.Err()
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Do runs fn with the engine locked against Tick.
func (e *Engine) Do(fn func(*Engine)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e)
}

// Pause freezes every node until Resume.
func (e *Engine) Pause() *Engine {
	e.paused = true
	return e
}

// Resume continues after Pause without skipping the time spent paused.
func (e *Engine) Resume() *Engine {
	if !e.paused {
		return e
	}
	e.paused = false
	for _, t := range e.running {
		t.resetTime()
	}
	return e
}

func (e *Engine) Paused() bool { return e.paused }

// SetSpeed changes the playback rate of every node.
func (e *Engine) SetSpeed(s float64) *Engine {
	e.setSpeed(s)
	for _, t := range e.running {
		t.resetTime()
	}
	return e
}

// SetFPS changes the engine frame rate.
func (e *Engine) SetFPS(fps float64) *Engine {
	e.setFPS(fps)
	return e
}

// Node returns the top level node registered under id.
func (e *Engine) Node(id string) (*Timer, error) {
	t, ok := e.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %q: %w", id, ErrUnknownNode)
	}
	return t, nil
}

// Nodes returns every registered node ordered by ID.
func (e *Engine) Nodes() []*Timer {
	out := make([]*Timer, 0, len(e.nodes))
	for _, t := range e.nodes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Running returns the number of nodes in the run list.
func (e *Engine) Running() int { return len(e.running) }

// Remove stops animating properties of target, every property when none
// are given. Animations left without tweens are cancelled. It returns the
// number of tweens removed.
func (e *Engine) Remove(target Target, properties ...string) int {
	match := func(tw *Tween) bool {
		if tw.target != target {
			return false
		}
		if len(properties) == 0 {
			return true
		}
		for _, p := range properties {
			if tw.property == p {
				return true
			}
		}
		return false
	}

	seen := make(map[*Timer]bool)
	removed := 0
	var walk func(t *Timer)
	walk = func(t *Timer) {
		if seen[t] {
			return
		}
		seen[t] = true
		for _, c := range t.children {
			walk(c)
		}
		if t.kind != kindAnimation || len(t.tweens) == 0 {
			return
		}
		kept := t.tweens[:0]
		for _, tw := range t.tweens {
			if match(tw) {
				e.registry.remove(tw)
				removed++
				continue
			}
			kept = append(kept, tw)
		}
		t.tweens = kept
		if len(kept) == 0 && !t.cancelled {
			t.Cancel()
		}
	}
	for _, t := range e.running {
		walk(t)
	}
	for _, t := range e.Nodes() {
		walk(t)
	}
	for _, t := range e.registry.owners(target) {
		walk(t)
	}
	return removed
}
