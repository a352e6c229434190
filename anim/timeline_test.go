package anim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/ledmotion/easing"
)

const ms = time.Millisecond

func pausedTimeline(h *harness, d Defaults) *Timeline {
	return h.engine.Timeline(TimelineParams{Params: Params{Paused: true}, Defaults: d})
}

func TestTimelineIterationDuration(t *testing.T) {
	h := newHarness()
	tl := pausedTimeline(h, Defaults{})

	for _, at := range []time.Duration{0, 100 * ms, 250 * ms} {
		tl.AddTimer(Params{Duration: 50 * ms}, At(at))
	}
	assert.Equal(t, 300*ms, tl.IterationDuration())
	assert.Equal(t, 300*ms, tl.Duration())
}

func TestTimelineLabelPlacement(t *testing.T) {
	h := newHarness()
	tl := pausedTimeline(h, Defaults{})
	tl.AddTimer(Params{Duration: 50 * ms}, At(0))
	tl.Label("mid", At(100*ms))

	byLabel := tl.AddTimer(Params{Duration: 50 * ms}, "mid")
	byOffset := tl.AddTimer(Params{Duration: 50 * ms}, At(100*ms))
	assert.Equal(t, byOffset.Offset(), byLabel.Offset())
	assert.Equal(t, 100*ms, byLabel.Offset())
	assert.Equal(t, map[string]time.Duration{"mid": 100 * ms}, tl.Labels())
}

func TestTimelinePositions(t *testing.T) {
	h := newHarness()
	tl := pausedTimeline(h, Defaults{})
	tl.AddTimer(Params{Duration: 100 * ms}, At(0))
	tl.AddTimer(Params{Duration: 50 * ms}, At(200*ms))
	tl.Label("intro", "50")

	for pos, want := range map[Position]time.Duration{
		"":            250 * ms,
		"400":         400 * ms,
		"1.5s":        1500 * ms,
		"<":           250 * ms,
		"<<":          200 * ms,
		"<+=10ms":     260 * ms,
		"<<-=50":      150 * ms,
		"+=100":       350 * ms,
		"-=100ms":     150 * ms,
		"*=2":         500 * ms,
		"intro":       50 * ms,
		"intro+=25ms": 75 * ms,
		"unknown":     250 * ms,
	} {
		assert.Equal(t, want, tl.resolvePosition(pos), "position %q", pos)
	}
}

func TestTimelinePositionsWhenEmpty(t *testing.T) {
	h := newHarness()
	tl := pausedTimeline(h, Defaults{})

	assert.Equal(t, time.Duration(0), tl.resolvePosition(""))
	assert.Equal(t, time.Duration(0), tl.resolvePosition("<"))
	assert.Equal(t, 100*ms, tl.resolvePosition("+=100"))
}

func TestTimelineSequencesChildren(t *testing.T) {
	h := newHarness()
	var order []string
	tl := h.engine.Timeline(TimelineParams{
		Params: Params{
			ID:        "show",
			Callbacks: Callbacks{OnComplete: func(*Timer) { order = append(order, "timeline") }},
		},
		Defaults: Defaults{Duration: 100 * ms, Ease: easing.Linear},
	})
	tl.Add([]Target{"p"}, Props{"x": []any{0, 100}}, Params{
		Callbacks: Callbacks{OnComplete: func(*Timer) { order = append(order, "x") }},
	}, "")
	tl.Add([]Target{"p"}, Props{"y": []any{0, 100}}, Params{
		Callbacks: Callbacks{OnComplete: func(*Timer) { order = append(order, "y") }},
	}, "")
	require.Equal(t, 200*ms, tl.Duration())
	assert.InDelta(t, 0, h.sink.get(t, "p", "x"), 1e-9)
	assert.InDelta(t, 0, h.sink.get(t, "p", "y"), 1e-9)

	h.step(50 * ms)
	assert.InDelta(t, 50, h.sink.get(t, "p", "x"), 1e-9)
	assert.InDelta(t, 0, h.sink.get(t, "p", "y"), 1e-9)

	h.step(100 * ms)
	assert.InDelta(t, 100, h.sink.get(t, "p", "x"), 1e-9)
	assert.InDelta(t, 50, h.sink.get(t, "p", "y"), 1e-9)

	h.step(100 * ms)
	assert.InDelta(t, 100, h.sink.get(t, "p", "y"), 1e-9)
	assert.Equal(t, []string{"x", "y", "timeline"}, order)

	select {
	case <-tl.Done():
	default:
		t.Fatal("timeline not resolved")
	}
}

func TestTimelineSeek(t *testing.T) {
	h := newHarness()
	tl := pausedTimeline(h, Defaults{Duration: 100 * ms, Ease: easing.Linear})
	tl.Add([]Target{"p"}, Props{"x": []any{0, 100}}, Params{}, "")
	tl.Add([]Target{"p"}, Props{"y": []any{0, 100}}, Params{}, "")

	tl.Seek(150 * ms)
	assert.InDelta(t, 100, h.sink.get(t, "p", "x"), 1e-9)
	assert.InDelta(t, 50, h.sink.get(t, "p", "y"), 1e-9)

	tl.Seek(50 * ms)
	assert.InDelta(t, 50, h.sink.get(t, "p", "x"), 1e-9)
	assert.InDelta(t, 0, h.sink.get(t, "p", "y"), 1e-9)
}

func TestTimelineChainsValues(t *testing.T) {
	h := newHarness()
	h.sink.set("p", "x", 10)
	tl := pausedTimeline(h, Defaults{Duration: 100 * ms, Ease: easing.Linear})
	tl.Add([]Target{"p"}, Props{"x": 50}, Params{}, "")
	second := tl.Add([]Target{"p"}, Props{"x": 90}, Params{}, "")

	assert.InDelta(t, 50, second.Tweens()[0].From().Float(), 1e-9)
	tl.Seek(150 * ms)
	assert.InDelta(t, 70, h.sink.get(t, "p", "x"), 1e-9)
	tl.Seek(50 * ms)
	assert.InDelta(t, 30, h.sink.get(t, "p", "x"), 1e-9)
}

func TestTimelineCallAndSet(t *testing.T) {
	h := newHarness()
	calls := 0
	tl := h.engine.Timeline(TimelineParams{})
	tl.Call(func(tt *Timer) {
		assert.Same(t, tl.Timer, tt)
		calls++
	}, At(50*ms))
	tl.Set([]Target{"p"}, Props{"x": 42}, At(100*ms))
	tl.AddTimer(Params{Duration: 200 * ms}, At(0))

	h.step(25 * ms)
	assert.Equal(t, 0, calls)
	h.step(50 * ms)
	assert.Equal(t, 1, calls)
	h.step(50 * ms)
	assert.InDelta(t, 42, h.sink.get(t, "p", "x"), 1e-9)
	h.run(200*ms, 50*ms)
	assert.Equal(t, 1, calls)
}

func TestNestedTimelineGrowsParent(t *testing.T) {
	h := newHarness()
	root := pausedTimeline(h, Defaults{Duration: 100 * ms, Ease: easing.Linear})
	root.Add([]Target{"p"}, Props{"x": []any{0, 100}}, Params{}, "")

	inner := root.AddTimeline(TimelineParams{}, "")
	assert.Equal(t, 100*ms, inner.Offset())
	inner.Add([]Target{"q"}, Props{"x": []any{0, 100}}, Params{}, "")
	inner.Add([]Target{"q"}, Props{"y": []any{0, 100}}, Params{}, "")

	assert.Equal(t, 200*ms, inner.Duration())
	assert.Equal(t, 300*ms, root.Duration())

	root.Seek(250 * ms)
	assert.InDelta(t, 100, h.sink.get(t, "q", "x"), 1e-9)
	assert.InDelta(t, 50, h.sink.get(t, "q", "y"), 1e-9)
}

func TestTimelineDefaultsLayerOverEngine(t *testing.T) {
	h := newHarness(WithDefaults(Defaults{Duration: 2 * time.Second}))
	tl := pausedTimeline(h, Defaults{Ease: easing.Linear})
	a := tl.Add([]Target{"p"}, Props{"x": 1}, Params{}, "")

	assert.Equal(t, 2*time.Second, a.Duration())
	assert.Equal(t, 2*time.Second, h.engine.Defaults().Duration)
	assert.Nil(t, h.engine.Defaults().Modifier)
}

func TestStretchTimelineKeepsProportions(t *testing.T) {
	h := newHarness()
	tl := pausedTimeline(h, Defaults{})
	var children []*Timer
	for _, at := range []time.Duration{0, 100 * ms, 250 * ms} {
		children = append(children, tl.AddTimer(Params{Duration: 50 * ms}, At(at)))
	}

	tl.Stretch(600 * ms)
	assert.Equal(t, 600*ms, tl.Duration())
	for i, want := range []time.Duration{0, 200 * ms, 500 * ms} {
		assert.Equal(t, want, children[i].Offset())
		assert.Equal(t, 100*ms, children[i].Duration())
	}
}
