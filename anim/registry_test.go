package anim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/ledmotion/easing"
)

func TestLaterAnimationOverridesEarlier(t *testing.T) {
	h := newHarness()
	px := "pixel"

	first := h.engine.Animate([]Target{px}, Props{
		"x": []any{0, 100},
		"y": []any{0, 100},
	}, Params{Duration: time.Second, Ease: easing.Linear})
	h.step(500 * time.Millisecond)
	assert.InDelta(t, 50, h.sink.get(t, px, "x"), 1e-9)

	second := h.engine.Animate([]Target{px}, Props{"x": 200}, Params{Duration: time.Second, Ease: easing.Linear})

	var xTween *Tween
	for _, tw := range first.Tweens() {
		if tw.Property() == "x" {
			xTween = tw
		}
	}
	require.NotNil(t, xTween)
	assert.True(t, xTween.Overlapped())
	assert.Equal(t, 500*time.Millisecond, xTween.ChangeDuration())
	assert.False(t, first.Cancelled(), "y is still animated by the first animation")

	h.step(250 * time.Millisecond)
	assert.InDelta(t, 87.5, h.sink.get(t, px, "x"), 1e-9)
	assert.InDelta(t, 75, h.sink.get(t, px, "y"), 1e-9)

	h.step(750 * time.Millisecond)
	assert.InDelta(t, 200, h.sink.get(t, px, "x"), 1e-9)
	assert.True(t, second.Completed())
}

func TestOverrideSkipsOverriddenSiblings(t *testing.T) {
	h := newHarness()
	px := "pixel"

	h.engine.Animate([]Target{px}, Props{
		"x": []any{0, 100},
		"y": []any{0, 100},
	}, Params{Duration: time.Second, Ease: easing.Linear})
	second := h.engine.Animate([]Target{px}, Props{"x": []any{0, 1000}}, Params{Duration: time.Second, Ease: easing.Linear})
	h.engine.Animate([]Target{px}, Props{"x": 7}, Params{
		Delay:    500 * time.Millisecond,
		Duration: 200 * time.Millisecond,
		Ease:     easing.Linear,
	})

	xTween := second.Tweens()[0]
	assert.True(t, xTween.Overlapped())
	assert.Equal(t, 500*time.Millisecond, xTween.ChangeDuration())

	h.step(900 * time.Millisecond)
	assert.InDelta(t, 7, h.sink.get(t, px, "x"), 1e-9)
	assert.InDelta(t, 90, h.sink.get(t, px, "y"), 1e-9)
}

func TestFullyOverlappedAnimationIsCancelled(t *testing.T) {
	h := newHarness()
	px := "pixel"

	first := h.engine.Animate([]Target{px}, Props{"x": []any{0, 100}}, Params{Duration: time.Second, Ease: easing.Linear})
	h.step(500 * time.Millisecond)
	h.engine.Animate([]Target{px}, Props{"x": 0}, Params{Duration: time.Second, Ease: easing.Linear})

	assert.True(t, first.Cancelled())
	h.step(500 * time.Millisecond)
	assert.InDelta(t, 25, h.sink.get(t, px, "x"), 1e-9)
}

func TestOverrideSameStartReplacesEarlierDeclaration(t *testing.T) {
	h := newHarness()
	px := "pixel"

	h.engine.Animate([]Target{px}, Props{"x": []any{0, 100}}, Params{Duration: time.Second, Ease: easing.Linear})
	h.engine.Animate([]Target{px}, Props{"x": []any{0, -100}}, Params{Duration: time.Second, Ease: easing.Linear})

	h.step(500 * time.Millisecond)
	assert.InDelta(t, -50, h.sink.get(t, px, "x"), 1e-9)
}

func TestBlendSumsConcurrentDeltas(t *testing.T) {
	for name, gap := range map[string]time.Duration{
		"together":       0,
		"staggered":      200 * time.Millisecond,
		"after the peak": 700 * time.Millisecond,
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			px := "pixel"
			h.sink.set(px, "x", 100)

			h.engine.Animate([]Target{px}, Props{"x": "+=10"}, Params{
				Duration: time.Second, Ease: easing.Linear, Composition: Blend,
			})
			if gap > 0 {
				h.step(gap)
			}
			h.engine.Animate([]Target{px}, Props{"x": "+=5"}, Params{
				Duration: 500 * time.Millisecond, Ease: easing.Linear, Composition: Blend,
			})

			h.run(2*time.Second, 100*time.Millisecond)
			assert.InDelta(t, 115, h.sink.get(t, px, "x"), 1e-9)
			assert.Empty(t, h.engine.registry.blend)
		})
	}
}

func TestBlendReverseDeclarationOrder(t *testing.T) {
	h := newHarness()
	px := "pixel"
	h.sink.set(px, "x", 100)

	h.engine.Animate([]Target{px}, Props{"x": "+=5"}, Params{
		Duration: 500 * time.Millisecond, Ease: easing.Linear, Composition: Blend,
	})
	h.step(100 * time.Millisecond)
	h.engine.Animate([]Target{px}, Props{"x": "+=10"}, Params{
		Duration: time.Second, Ease: easing.Linear, Composition: Blend,
	})

	h.run(2*time.Second, 100*time.Millisecond)
	assert.InDelta(t, 115, h.sink.get(t, px, "x"), 1e-9)
}

func TestBlendMidwayValue(t *testing.T) {
	h := newHarness()
	px := "pixel"
	h.sink.set(px, "x", 0)

	h.engine.Animate([]Target{px}, Props{"x": 10}, Params{
		Duration: time.Second, Ease: easing.Linear, Composition: Blend,
	})
	h.engine.Animate([]Target{px}, Props{"x": "+=20"}, Params{
		Duration: time.Second, Ease: easing.Linear, Composition: Blend,
	})

	h.step(500 * time.Millisecond)
	assert.InDelta(t, 15, h.sink.get(t, px, "x"), 1e-9)
}

func TestCancelReleasesRegistry(t *testing.T) {
	h := newHarness()
	px := "pixel"
	key := propKey{px, "x"}

	a := h.engine.Animate([]Target{px}, Props{"x": []any{0, 100}}, Params{
		Duration: time.Second, Ease: easing.Linear, Loop: Infinite,
	})
	b := h.engine.Animate([]Target{px}, Props{"y": "+=10"}, Params{
		Duration: time.Second, Ease: easing.Linear, Composition: Blend,
	})
	h.step(250 * time.Millisecond)
	require.Len(t, h.engine.registry.replace[key], 1)

	a.Cancel()
	b.Cancel()
	assert.NotContains(t, h.engine.registry.replace, key)
	assert.NotContains(t, h.engine.registry.blend, propKey{px, "y"})

	h.step(100 * time.Millisecond)
	assert.Equal(t, 0, h.engine.Running())

	c := h.engine.Animate([]Target{px}, Props{"x": 0}, Params{Duration: time.Second, Ease: easing.Linear})
	tw := c.Tweens()[0]
	assert.False(t, tw.Overlapped())
	assert.False(t, tw.Overridden())
	assert.InDelta(t, 25, tw.From().Float(), 1e-9)
	assert.Equal(t, []*Tween{tw}, h.engine.registry.replace[key])

	h.step(500 * time.Millisecond)
	assert.InDelta(t, 12.5, h.sink.get(t, px, "x"), 1e-9)
}

func TestRevivedAnimationRecomposes(t *testing.T) {
	h := newHarness()
	px := "pixel"

	a := h.engine.Animate([]Target{px}, Props{"x": []any{0, 100}}, Params{Duration: time.Second, Ease: easing.Linear})
	a.Cancel()
	require.NotContains(t, h.engine.registry.replace, propKey{px, "x"})

	a.Restart()
	assert.False(t, a.Cancelled())
	assert.Len(t, h.engine.registry.replace[propKey{px, "x"}], 1)

	h.step(500 * time.Millisecond)
	assert.InDelta(t, 50, h.sink.get(t, px, "x"), 1e-9)
}

func TestNoneCompositionIgnoresRegistry(t *testing.T) {
	h := newHarness()
	px := "pixel"

	a := h.engine.Animate([]Target{px}, Props{"x": []any{0, 100}}, Params{Composition: None})
	assert.Empty(t, h.engine.registry.replace)
	assert.Equal(t, None, a.Tweens()[0].Composition())
}
