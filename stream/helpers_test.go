package stream

import (
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"

	"github.com/matt-g-everett/ledmotion/anim"
)

type fakeToken struct {
	mqtt.Token
	err   error
	stall chan struct{}
}

func (t *fakeToken) Wait() bool {
	if t.stall != nil {
		<-t.stall
	}
	return true
}

func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mu        sync.Mutex
	published []published
	handlers  map[string]mqtt.MessageHandler
	err       error
	stall     chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]mqtt.MessageHandler)}
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, _ := payload.([]byte)
	c.published = append(c.published, published{topic, qos, b})
	return &fakeToken{err: c.err, stall: c.stall}
}

func (c *fakeClient) sent() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.published...)
}

func (c *fakeClient) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.handlers[topic] = callback
	}
	return &fakeToken{err: c.err}
}

func (c *fakeClient) deliver(topic, payload string) {
	c.mu.Lock()
	h := c.handlers[topic]
	c.mu.Unlock()
	h(nil, &fakeMessage{topic: topic, payload: []byte(payload)})
}

var errBroker = errors.New("broker unavailable")

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) MessageID() uint16 { return 1 }

type harness struct {
	engine *anim.Engine
	clock  *anim.ManualClock
	strip  *Strip
}

func newHarness(pixels int, opts ...anim.Option) *harness {
	h := &harness{clock: anim.NewManualClock(), strip: NewStrip(pixels)}
	opts = append([]anim.Option{anim.WithClock(h.clock), anim.WithSink(h.strip)}, opts...)
	h.engine = anim.NewEngine(opts...)
	return h
}

func (h *harness) step(d time.Duration) {
	h.clock.Advance(d)
	h.engine.Tick()
}

func (h *harness) run(total, d time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += d {
		h.step(d)
	}
}

func assertColor(t *testing.T, want string, got colorful.Color) {
	t.Helper()
	w, err := colorful.Hex(want)
	if assert.NoError(t, err) {
		assert.Equal(t, w.Clamped().Hex(), got.Clamped().Hex())
	}
}
