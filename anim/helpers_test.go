package anim

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/ledmotion/value"
)

type memSink struct {
	mu     sync.Mutex
	values map[propKey]value.Value
	writes int
}

func newMemSink() *memSink {
	return &memSink{values: make(map[propKey]value.Value)}
}

func (s *memSink) Read(target Target, property string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[propKey{target, property}]
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

func (s *memSink) Write(target Target, property string, v value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[propKey{target, property}] = v.Clone()
	s.writes++
}

func (s *memSink) set(target Target, property string, n float64) {
	s.Write(target, property, value.Num(n))
}

func (s *memSink) get(t *testing.T, target Target, property string) float64 {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[propKey{target, property}]
	require.True(t, ok, "no value written for %v.%s", target, property)
	return v.Float()
}

type harness struct {
	engine *Engine
	clock  *ManualClock
	sink   *memSink
}

func newHarness(opts ...Option) *harness {
	h := &harness{clock: NewManualClock(), sink: newMemSink()}
	opts = append([]Option{WithClock(h.clock), WithSink(h.sink)}, opts...)
	h.engine = NewEngine(opts...)
	return h
}

// step advances the clock by d and processes a frame.
func (h *harness) step(d time.Duration) {
	h.clock.Advance(d)
	h.engine.Tick()
}

// run advances the clock by total in frames of d.
func (h *harness) run(total, d time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += d {
		h.step(d)
	}
}
