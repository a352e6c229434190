package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/api"
	"github.com/matt-g-everett/ledmotion/easing"
	"github.com/matt-g-everett/ledmotion/metrics"
	"github.com/matt-g-everett/ledmotion/sink"
)

type fixture struct {
	engine *anim.Engine
	clock  *anim.ManualClock
	store  *sink.Store
	server *httptest.Server
}

func newFixture(t *testing.T, opts ...api.Option) *fixture {
	t.Helper()
	f := new(fixture)
	f.clock = anim.NewManualClock()
	f.store = sink.NewStore()
	f.engine = anim.NewEngine(anim.WithClock(f.clock), anim.WithSink(f.store))
	f.engine.Animate([]anim.Target{"led0"}, anim.Props{"brightness": []any{0, 1}}, anim.Params{
		ID:       "fade",
		Duration: time.Second,
		Ease:     easing.Linear,
		Paused:   true,
	})
	f.server = httptest.NewServer(api.NewApi(f.engine, opts...).Handler())
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestNodes(t *testing.T) {
	f := newFixture(t)

	var list []anim.Status
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/nodes", "", &list))
	require.Len(t, list, 1)
	assert.Equal(t, "fade", list[0].ID)
	assert.True(t, list[0].Paused)

	var s anim.Status
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/nodes/fade", "", &s))
	assert.Equal(t, time.Second, s.Duration)

	var e map[string]string
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/nodes/missing", "", &e))
	assert.Contains(t, e["error"], "unknown node")
}

func TestControlNode(t *testing.T) {
	f := newFixture(t)

	var s anim.Status
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/nodes/fade/play", "", &s))
	assert.False(t, s.Paused)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/nodes/fade/cancel", "", &s))
	assert.True(t, s.Cancelled)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/nodes/fade/explode", "", nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/nodes/missing/play", "", nil))
}

func TestSeekNode(t *testing.T) {
	f := newFixture(t)

	var s anim.Status
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/nodes/fade/seek", `{"time":"500ms"}`, &s))
	assert.Equal(t, 500*time.Millisecond, s.CurrentTime)
	v, ok := f.store.Get("led0", "brightness")
	require.True(t, ok)
	assert.InDelta(t, 0.5, v.Float(), 1e-9)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/nodes/fade/seek", `{"progress":0.25}`, &s))
	assert.InDelta(t, 0.25, s.Progress, 1e-9)

	for _, body := range []string{`{`, `{}`, `{"progress":2}`, `{"time":"soon"}`} {
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/nodes/fade/seek", body, nil), body)
	}
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/nodes/missing/seek", `{"time":"1s"}`, nil))
}

func TestControlEngine(t *testing.T) {
	f := newFixture(t)

	var s struct {
		Paused  bool
		Running int
	}
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/engine/pause", "", &s))
	assert.True(t, s.Paused)
	assert.True(t, f.engine.Paused())

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/engine/resume", "", &s))
	assert.False(t, s.Paused)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/engine/stop", "", nil))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := metrics.NewObserver(reg)
	require.NoError(t, err)
	o.Observe(anim.TickStats{Writes: 3})
	f := newFixture(t, api.WithGatherer(reg))

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ledmotion_writes_total 3")
}

type fakeCycler struct {
	cycles int
	next   *anim.Timer
}

func (c *fakeCycler) Cycle() *anim.Timer {
	c.cycles++
	return c.next
}

func (c *fakeCycler) Current() string { return "fade" }

type fakeCalibrator struct {
	engine *anim.Engine
}

func (c *fakeCalibrator) Start() *anim.Timer {
	var t *anim.Timer
	c.engine.Do(func(e *anim.Engine) {
		t = e.Timer(anim.Params{ID: "calibration", Duration: time.Second})
	})
	return t
}

func TestCycle(t *testing.T) {
	cycler := new(fakeCycler)
	f := newFixture(t, api.WithCycler(cycler))

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/cycle", "", nil))
	f.engine.Do(func(e *anim.Engine) {
		cycler.next = e.Timer(anim.Params{Duration: time.Second})
	})
	var s struct{ Current string }
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/cycle", "", &s))
	assert.Equal(t, "fade", s.Current)
	assert.Equal(t, 2, cycler.cycles)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/calibrate", "", nil))
}

func TestCalibrate(t *testing.T) {
	cal := new(fakeCalibrator)
	f := newFixture(t, api.WithCalibrator(cal))
	cal.engine = f.engine

	var s anim.Status
	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/calibrate", "", &s))
	assert.Equal(t, "calibration", s.ID)
	assert.Equal(t, time.Second, s.Duration)
}
