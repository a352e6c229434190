package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calibrateTopic = "home/xmastree/calibrate/client"

func newCalibration(t *testing.T, pixels int) (*harness, *fakeClient, *Calibration) {
	t.Helper()
	h := newHarness(pixels)
	client := newFakeClient()
	c := NewCalibration(h.engine, h.strip, client, calibrateTopic, nil)
	require.NoError(t, c.Subscribe())
	return h, client, c
}

func TestCalibrationPatterns(t *testing.T) {
	h, client, c := newCalibration(t, 8)
	client.deliver(calibrateTopic, `{"type":"start"}`)

	node := <-c.Started
	assert.Equal(t, CalibrationID, node.ID())
	registered, err := h.engine.Node(CalibrationID)
	require.NoError(t, err)
	assert.Same(t, node, registered)

	// Bit 3 is clear for every pixel of an 8 pixel strip.
	h.step(100 * time.Millisecond)
	f := h.strip.Frame()
	for i := 0; i < 8; i++ {
		assertColor(t, "#404040", f.Pixel(i))
	}

	// Bit 1 splits the strip into runs of two.
	h.step(300 * time.Millisecond)
	f = h.strip.Frame()
	for i, lit := range []bool{true, true, false, false, true, true, false, false} {
		if lit {
			assertColor(t, "#404040", f.Pixel(i))
		} else {
			assertColor(t, "#000000", f.Pixel(i))
		}
	}

	// Bit 0 alternates.
	h.step(200 * time.Millisecond)
	f = h.strip.Frame()
	assertColor(t, "#404040", f.Pixel(0))
	assertColor(t, "#000000", f.Pixel(1))

	h.step(time.Second)
	assert.True(t, node.Completed())
	select {
	case <-node.Done():
	default:
		t.Fatal("calibration did not finish")
	}
}

func TestCalibrationRestartReplacesRunning(t *testing.T) {
	_, _, c := newCalibration(t, 4)
	first := c.Start()
	<-c.Started
	second := c.Start()

	assert.True(t, first.Cancelled())
	assert.NotSame(t, first, second)
	assert.Same(t, second, <-c.Started)
}

func TestCalibrationData(t *testing.T) {
	_, client, c := newCalibration(t, 4)
	client.deliver(calibrateTopic, `{"type":"data","locations":[{"x":1,"y":2},{"x":3,"y":4}]}`)
	client.deliver(calibrateTopic, `{"type":"ack","ackID":3}`)
	client.deliver(calibrateTopic, `not json`)
	client.deliver(calibrateTopic, `{"type":"other"}`)

	assert.Equal(t, []Point{{1, 2}, {3, 4}}, c.Locations())
	assert.Empty(t, c.Started)
}

func TestCalibrationSubscribeError(t *testing.T) {
	h := newHarness(1)
	client := newFakeClient()
	client.err = errBroker
	c := NewCalibration(h.engine, h.strip, client, calibrateTopic, nil)
	assert.ErrorIs(t, c.Subscribe(), errBroker)
}

func TestParseCalibrationMessage(t *testing.T) {
	m, err := parseCalibrationMessage([]byte(`{"type":"ack","ackID":7}`), 4)
	require.NoError(t, err)
	assert.Equal(t, uint8(7), m.AckID)

	m, err = parseCalibrationMessage([]byte(`{"type":"data","locations":[{"x":0.5,"y":1}]}`), 4)
	require.NoError(t, err)
	assert.Equal(t, []Point{{0.5, 1}}, m.Locations)

	for _, payload := range []string{
		`{`,
		`{"type":"other"}`,
		`{"type":"data"}`,
		`{"type":"data","locations":[{},{},{},{},{}]}`,
	} {
		_, err := parseCalibrationMessage([]byte(payload), 4)
		assert.ErrorIs(t, err, errBadMessage, payload)
	}
}
