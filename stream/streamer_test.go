package stream

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/value"
)

func TestStreamerSendsFrames(t *testing.T) {
	client := newFakeClient()
	strip := NewStrip(2)
	strip.Write(Pixel(1), Color, value.RGBA(0, 255, 0, 1))
	s := NewStreamer(client, "home/xmastree/stream", strip, nil)

	require.NoError(t, s.SendFrame())
	require.Len(t, client.published, 1)
	p := client.published[0]
	assert.Equal(t, "home/xmastree/stream", p.topic)
	assert.Equal(t, byte(2), p.qos)
	assert.Equal(t, []byte{2, 0, 0, 0, 0, 0, 255, 0}, p.payload)
}

func runStreamer(t *testing.T, s *Streamer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})
}

func TestStreamerObservesEngine(t *testing.T) {
	client := newFakeClient()
	h := newHarness(3)
	s := NewStreamer(client, "stream", h.strip, nil)
	h.engine = anim.NewEngine(
		anim.WithClock(h.clock),
		anim.WithSink(h.strip),
		anim.WithObserver(s),
	)
	h.engine.Animate(h.strip.Pixels(), anim.Props{Color: "#0000ff"}, anim.Params{Duration: 100 * time.Millisecond})
	h.run(300*time.Millisecond, 50*time.Millisecond)
	assert.Empty(t, client.sent())

	runStreamer(t, s)
	require.Eventually(t, func() bool { return len(client.sent()) == 6 }, time.Second, time.Millisecond)
	last := client.sent()[5].payload
	assert.Equal(t, []byte{0, 0, 255}, last[len(last)-3:])
}

func TestStreamerNeverWaitsOnBroker(t *testing.T) {
	client := newFakeClient()
	client.stall = make(chan struct{})
	s := NewStreamer(client, "stream", NewStrip(1), nil)
	runStreamer(t, s)
	defer close(client.stall)

	observed := make(chan struct{})
	go func() {
		for i := 0; i < 3*frameBacklog; i++ {
			s.Observe(anim.TickStats{})
		}
		close(observed)
	}()
	select {
	case <-observed:
	case <-time.After(time.Second):
		t.Fatal("Observe blocked on a stalled publish")
	}
	require.Eventually(t, func() bool { return len(client.sent()) == 1 }, time.Second, time.Millisecond)
}

func TestStreamerPublishError(t *testing.T) {
	client := newFakeClient()
	client.err = errBroker
	s := NewStreamer(client, "stream", NewStrip(1), nil)

	err := s.SendFrame()
	assert.ErrorIs(t, err, errBroker)

	s.Observe(anim.TickStats{})
	runStreamer(t, s)
	require.Eventually(t, func() bool { return len(client.sent()) == 2 }, time.Second, time.Millisecond)
}

func TestPreviewLine(t *testing.T) {
	var buf bytes.Buffer
	strip := NewStrip(4)
	p := NewPreview(&buf, strip, 100*time.Millisecond, termenv.WithProfile(termenv.Ascii))
	assert.Equal(t, "████", p.Line())

	p = NewPreview(&buf, strip, 0, termenv.WithProfile(termenv.TrueColor))
	strip.Write(Pixel(0), Color, value.RGBA(255, 0, 0, 1))
	assert.Contains(t, p.Line(), "38;2;255;0;0")
}

func TestPreviewThrottles(t *testing.T) {
	var buf bytes.Buffer
	p := NewPreview(&buf, NewStrip(2), 100*time.Millisecond, termenv.WithProfile(termenv.Ascii))

	for _, at := range []time.Duration{0, 50, 100, 150, 250} {
		p.Observe(anim.TickStats{At: at * time.Millisecond})
	}
	assert.Equal(t, 3, strings.Count(buf.String(), "\r"))
}
