package stream

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/logging"
)

// CalibrationID is the engine ID of the calibration timeline.
const CalibrationID = "calibration"

// Subscriber is the part of an mqtt.Client a Calibration needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Calibration lights the strip in binary patterns so a camera can work out
// where each pixel is. Pattern k lights pixel i when bit k of i is clear;
// patterns run from the highest bit down to bit 0, one step apart.
type Calibration struct {
	engine *anim.Engine
	strip  *Strip
	client Subscriber
	topic  string
	step   time.Duration
	log    *slog.Logger

	// Started receives the calibration timeline each time one starts.
	Started chan *anim.Timer

	mu        sync.Mutex
	locations []Point
}

// NewCalibration creates a Calibration listening on topic.
func NewCalibration(engine *anim.Engine, strip *Strip, client Subscriber, topic string, log *slog.Logger) *Calibration {
	c := new(Calibration)
	c.engine = engine
	c.strip = strip
	c.client = client
	c.topic = topic
	c.step = 200 * time.Millisecond
	c.log = log
	if c.log == nil {
		c.log = logging.NewNop()
	}
	c.Started = make(chan *anim.Timer, 1)
	return c
}

// Subscribe listens for calibration messages from the client app.
func (c *Calibration) Subscribe() error {
	token := c.client.Subscribe(c.topic, 0, c.handleClientMessages)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.topic, err)
	}
	return nil
}

func (c *Calibration) handleClientMessages(_ mqtt.Client, msg mqtt.Message) {
	c.log.Debug("calibration message", "id", msg.MessageID(), "topic", msg.Topic())

	m, err := parseCalibrationMessage(msg.Payload(), c.strip.Len())
	if err != nil {
		c.log.Warn("ignoring calibration message", "error", err)
		return
	}

	switch m.Type {
	case msgStart:
		c.Start()
	case msgData:
		c.mu.Lock()
		c.locations = m.Locations
		c.mu.Unlock()
		c.log.Info("calibration data received", "locations", len(m.Locations))
	case msgAck:
		c.log.Debug("calibration frame acknowledged", "ack", m.AckID)
	}
}

// Locations returns the pixel locations last reported by the client app.
func (c *Calibration) Locations() []Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Point(nil), c.locations...)
}

// Start plays the calibration patterns, replacing a calibration already
// running.
func (c *Calibration) Start() *anim.Timer {
	var node *anim.Timer
	c.engine.Do(func(e *anim.Engine) {
		node = c.build(e)
	})
	c.log.Info("calibration started", "duration", node.Duration())
	select {
	case c.Started <- node:
	default:
	}
	return node
}

func (c *Calibration) litLength() int {
	return int(math.Ceil(math.Log2(float64(max(c.strip.Len(), 1)))))
}

func (c *Calibration) build(e *anim.Engine) *anim.Timer {
	if old, err := e.Node(CalibrationID); err == nil {
		old.Cancel()
	}

	tl := e.Timeline(anim.TimelineParams{Params: anim.Params{ID: CalibrationID}})
	tl.Set([]anim.Target{Master}, anim.Props{Brightness: 1}, "0")
	for k := c.litLength(); k >= 0; k-- {
		var lit, unlit []anim.Target
		for i := 0; i < c.strip.Len(); i++ {
			if (i>>k)%2 == 0 {
				lit = append(lit, Pixel(i))
			} else {
				unlit = append(unlit, Pixel(i))
			}
		}
		at := anim.At(time.Duration(c.litLength()-k) * c.step)
		tl.Set(lit, anim.Props{Color: "#404040", Brightness: 1}, at)
		if len(unlit) > 0 {
			tl.Set(unlit, anim.Props{Color: "#000000"}, at)
		}
	}
	tl.AddTimer(anim.Params{Duration: c.step}, "")
	return tl.Timer
}
