package stream

import (
	"context"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/logging"
)

// frameBacklog is the number of frames queued for publishing before new
// ones are dropped.
const frameBacklog = 16

// Publisher is the part of an mqtt.Client a Streamer needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Streamer streams RGB data frames of a Strip to an ledrx device. It is an
// engine Observer: every tick queues a frame, and Run publishes them.
type Streamer struct {
	client Publisher
	topic  string
	strip  *Strip
	log    *slog.Logger
	frames chan []byte
}

// NewStreamer creates an instance of a Streamer.
func NewStreamer(client Publisher, topic string, strip *Strip, log *slog.Logger) *Streamer {
	s := new(Streamer)
	s.client = client
	s.topic = topic
	s.strip = strip
	s.log = log
	if s.log == nil {
		s.log = logging.NewNop()
	}
	s.frames = make(chan []byte, frameBacklog)
	return s
}

// SendFrame sends the current frame as binary over MQTT to an ledrx device.
func (s *Streamer) SendFrame() error {
	b, err := s.strip.Frame().MarshalBinary()
	if err != nil {
		return err
	}
	return s.publish(b)
}

func (s *Streamer) publish(b []byte) error {
	token := s.client.Publish(s.topic, 2, false, b)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish frame to %s: %w", s.topic, err)
	}
	return nil
}

// Observe queues the frame rendered by the tick. It never waits on the
// broker; a frame is dropped when the backlog is full.
func (s *Streamer) Observe(anim.TickStats) {
	b, err := s.strip.Frame().MarshalBinary()
	if err != nil {
		s.log.Warn("dropped frame", "error", err)
		return
	}
	select {
	case s.frames <- b:
	default:
		s.log.Debug("dropped frame", "reason", "backlog full")
	}
}

// Run publishes queued frames until ctx ends.
func (s *Streamer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b := <-s.frames:
			if err := s.publish(b); err != nil {
				s.log.Warn("dropped frame", "error", err)
			}
		}
	}
}
