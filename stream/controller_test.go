package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/easing"
)

func newControlled(t *testing.T) (*harness, *Controller) {
	t.Helper()
	h := newHarness(2)
	for id, color := range map[string]string{"red": "#ff0000", "blue": "#0000ff"} {
		h.engine.Animate(h.strip.Pixels(), anim.Props{Color: color}, anim.Params{
			ID:       id,
			Duration: 100 * time.Millisecond,
			Ease:     easing.Linear,
			Paused:   true,
		})
	}
	c := NewController(h.engine, []string{"red", "blue"}, time.Hour, 200*time.Millisecond, nil, nil)
	return h, c
}

func TestControllerStart(t *testing.T) {
	h, c := newControlled(t)
	c.Start()
	assert.Equal(t, "red", c.Current())

	h.step(200 * time.Millisecond)
	assertColor(t, "#ff0000", h.strip.Frame().Pixel(0))
}

func TestControllerCrossfades(t *testing.T) {
	h, c := newControlled(t)
	c.Start()
	h.step(200 * time.Millisecond)

	fade := c.Cycle()
	require.NotNil(t, fade)
	assert.Equal(t, "blue", c.Current())

	h.step(50 * time.Millisecond)
	master, _ := h.strip.Read(Master, Brightness)
	assert.Less(t, master.(float64), 1.0)
	assert.Greater(t, master.(float64), 0.0)

	h.step(50 * time.Millisecond)
	master, _ = h.strip.Read(Master, Brightness)
	assert.InDelta(t, 0, master.(float64), 1e-9)

	h.step(250 * time.Millisecond)
	assert.True(t, fade.Completed())
	master, _ = h.strip.Read(Master, Brightness)
	assert.InDelta(t, 1, master.(float64), 1e-9)
	assertColor(t, "#0000ff", h.strip.Frame().Pixel(1))

	red, err := h.engine.Node("red")
	require.NoError(t, err)
	assert.True(t, red.Cancelled())
}

func TestControllerSingleNodeDoesNotCycle(t *testing.T) {
	h := newHarness(1)
	c := NewController(h.engine, []string{"only"}, time.Hour, time.Second, nil, nil)
	assert.Nil(t, c.Cycle())
	assert.Equal(t, "only", c.Current())
}

func TestControllerSuspendsWhileCalibrating(t *testing.T) {
	h, _ := newControlled(t)
	client := newFakeClient()
	cal := NewCalibration(h.engine, h.strip, client, calibrateTopic, nil)
	c := NewController(h.engine, []string{"red", "blue"}, 10*time.Millisecond, 20*time.Millisecond, cal, nil)
	c.Start()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	cal.Start()
	assert.Eventually(t, func() bool {
		var cancelled bool
		h.engine.Do(func(e *anim.Engine) {
			n, _ := e.Node(c.Current())
			cancelled = n.Cancelled()
		})
		return cancelled
	}, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestControllerResumesWhenCalibrationIsCancelled(t *testing.T) {
	h, _ := newControlled(t)
	cal := NewCalibration(h.engine, h.strip, newFakeClient(), calibrateTopic, nil)
	c := NewController(h.engine, []string{"red", "blue"}, 10*time.Millisecond, 20*time.Millisecond, cal, nil)
	c.Start()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	currentCancelled := func() bool {
		var cancelled bool
		h.engine.Do(func(e *anim.Engine) {
			n, _ := e.Node(c.Current())
			cancelled = n.Cancelled()
		})
		return cancelled
	}

	node := cal.Start()
	require.NotNil(t, node)
	require.Eventually(t, currentCancelled, time.Second, 5*time.Millisecond)

	h.engine.Do(func(*anim.Engine) { node.Cancel() })
	assert.Eventually(t, func() bool { return !currentCancelled() }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
