package sink_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lucasb-eyer/go-colorful"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/easing"
	"github.com/matt-g-everett/ledmotion/sink"
	"github.com/matt-g-everett/ledmotion/value"
)

func TestStore(t *testing.T) {
	s := sink.NewStore()
	require.NoError(t, s.Set("led", "x", "10px"))

	v, ok := s.Get("led", "x")
	require.True(t, ok)
	assert.Equal(t, "10px", v.String())

	_, ok = s.Read("led", "y")
	assert.False(t, ok)

	s.Write("led", "y", value.Num(2))
	assert.Len(t, s.Properties("led"), 2)
	assert.Empty(t, s.Properties("other"))
}

func TestStoreDrivesEngine(t *testing.T) {
	s := sink.NewStore()
	require.NoError(t, s.Set("led", "brightness", 0.2))
	clock := anim.NewManualClock()
	e := anim.NewEngine(anim.WithClock(clock), anim.WithSink(s))

	e.Animate([]anim.Target{"led"}, anim.Props{"brightness": 1}, anim.Params{
		Duration: time.Second,
		Ease:     easing.Linear,
	})
	clock.Advance(500 * time.Millisecond)
	e.Tick()

	v, _ := s.Get("led", "brightness")
	assert.InDelta(t, 0.6, v.Float(), 1e-9)
}

type light struct {
	Brightness float64
	Level      int `mapstructure:"lvl"`
	Label      string
	Color      colorful.Color
	hidden     float64
}

func TestFields(t *testing.T) {
	f := sink.NewFields()
	var failures []string
	f.OnError = func(_ anim.Target, property string, _ error) {
		failures = append(failures, property)
	}
	l := &light{Brightness: 0.5, Label: "a"}

	v, ok := f.Read(l, "brightness")
	require.True(t, ok)
	assert.Equal(t, 0.5, v)

	f.Write(l, "brightness", value.Num(0.75))
	f.Write(l, "lvl", value.Num(3.9))
	f.Write(l, "label", value.WithUnit(12, "px"))
	f.Write(l, "color", value.RGBA(255, 0, 0, 1))
	f.Write(l, "hidden", value.Num(1))
	f.Write("not a struct", "x", value.Num(1))

	assert.Equal(t, 0.75, l.Brightness)
	assert.Equal(t, 3, l.Level)
	assert.Equal(t, "12px", l.Label)
	assert.InDelta(t, 1, l.Color.R, 1e-9)
	assert.Equal(t, 0.0, l.hidden)
	assert.Equal(t, []string{"hidden", "x"}, failures)

	_, ok = f.Read(l, "missing")
	assert.False(t, ok)
	c, ok := f.Read(l, "color")
	require.True(t, ok)
	assert.IsType(t, colorful.Color{}, c)
}

func TestFieldsDrivesEngine(t *testing.T) {
	l := &light{Color: colorful.Color{R: 0, G: 0, B: 0}}
	clock := anim.NewManualClock()
	e := anim.NewEngine(anim.WithClock(clock), anim.WithSink(sink.NewFields()))

	e.Animate([]anim.Target{l}, anim.Props{"color": "#0000ff", "brightness": 1}, anim.Params{
		Duration: time.Second,
		Ease:     easing.Linear,
	})
	clock.Advance(time.Second)
	e.Tick()

	assert.Equal(t, 1.0, l.Brightness)
	assert.InDelta(t, 1, l.Color.B, 1e-9)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *sink.Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	r := sink.NewRedisFromClient(client, sink.WithPrefix("test:"))
	t.Cleanup(func() { r.Close() })
	return mr, r
}

func runRedis(t *testing.T, r *sink.Redis) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestRedisBuffersUntilFrame(t *testing.T) {
	mr, r := newRedis(t)

	r.Write("led0", "color", value.RGBA(255, 0, 0, 1))
	r.Write("led0", "brightness", value.Num(0.5))
	assert.False(t, mr.Exists("test:led0"))

	v, ok := r.Read("led0", "brightness")
	require.True(t, ok)
	assert.Equal(t, value.Num(0.5), v)

	r.Observe(anim.TickStats{})
	assert.False(t, mr.Exists("test:led0"))

	runRedis(t, r)
	require.Eventually(t, func() bool { return mr.HGet("test:led0", "brightness") == "0.5" }, time.Second, time.Millisecond)
	assert.Equal(t, "rgba(255,0,0,1)", mr.HGet("test:led0", "color"))
}

func TestRedisKeepsWritesWhileBusy(t *testing.T) {
	mr, r := newRedis(t)

	r.Write("led0", "x", value.Num(1))
	r.Observe(anim.TickStats{})
	r.Write("led0", "x", value.Num(2))
	r.Write("led0", "y", value.Num(3))
	r.Observe(anim.TickStats{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	require.Eventually(t, func() bool { return mr.Exists("test:led0") }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, "2", mr.HGet("test:led0", "x"))
	assert.Equal(t, "3", mr.HGet("test:led0", "y"))
}

func TestRedisReadsExistingValues(t *testing.T) {
	mr, r := newRedis(t)
	mr.HSet("test:led1", "brightness", "0.25")

	v, ok := r.Read("led1", "brightness")
	require.True(t, ok)
	assert.Equal(t, "0.25", v)

	_, ok = r.Read("led1", "missing")
	assert.False(t, ok)
}

func TestRedisFlushError(t *testing.T) {
	mr, r := newRedis(t)
	r.Write("led0", "x", value.Num(1))
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, r.Flush(ctx))
}

func TestRedisAsEngineSink(t *testing.T) {
	mr, r := newRedis(t)
	mr.HSet("test:led2", "level", "20")
	clock := anim.NewManualClock()
	e := anim.NewEngine(anim.WithClock(clock), anim.WithSink(r), anim.WithObserver(r))

	e.Animate([]anim.Target{"led2"}, anim.Props{"level": 100}, anim.Params{
		Duration: time.Second,
		Ease:     easing.Linear,
	})
	runRedis(t, r)
	clock.Advance(250 * time.Millisecond)
	e.Tick()

	require.Eventually(t, func() bool { return mr.HGet("test:led2", "level") == "40" }, time.Second, time.Millisecond)
}

func TestMulti(t *testing.T) {
	a, b := sink.NewStore(), sink.NewStore()
	require.NoError(t, b.Set("led", "x", 4))
	m := sink.Multi{a, b}

	v, ok := m.Read("led", "x")
	require.True(t, ok)
	assert.Equal(t, value.Num(4), v)

	m.Write("led", "y", value.Num(1))
	_, okA := a.Get("led", "y")
	_, okB := b.Get("led", "y")
	assert.True(t, okA)
	assert.True(t, okB)

	_, ok = m.ConvertUnit("led", "x", 1, "px", "%")
	assert.False(t, ok)
}
