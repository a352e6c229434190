package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/easing"
	"github.com/matt-g-everett/ledmotion/logging"
)

// Controller cycles a strip through engine nodes, crossfading between them
// by dipping the master brightness.
type Controller struct {
	engine      *anim.Engine
	ids         []string
	interval    time.Duration
	fade        time.Duration
	calibration *Calibration
	log         *slog.Logger

	current int
}

// NewController creates a Controller cycling through the nodes registered
// under ids. calibration may be nil.
func NewController(engine *anim.Engine, ids []string, interval, fade time.Duration,
	calibration *Calibration, log *slog.Logger) *Controller {

	c := new(Controller)
	c.engine = engine
	c.ids = ids
	c.interval = interval
	c.fade = fade
	c.calibration = calibration
	c.log = log
	if c.log == nil {
		c.log = logging.NewNop()
	}
	return c
}

// Current returns the ID of the node on show.
func (c *Controller) Current() string {
	if len(c.ids) == 0 {
		return ""
	}
	return c.ids[c.current]
}

// Start shows the first node.
func (c *Controller) Start() {
	c.engine.Do(func(e *anim.Engine) {
		c.current = 0
		if len(c.ids) > 0 {
			c.show(e, c.ids[0])
		}
	})
}

// Cycle crossfades to the next node and returns the crossfade timeline.
func (c *Controller) Cycle() *anim.Timer {
	var fade *anim.Timer
	c.engine.Do(func(e *anim.Engine) {
		fade = c.cycle(e)
	})
	return fade
}

func (c *Controller) cycle(e *anim.Engine) *anim.Timer {
	if len(c.ids) < 2 {
		return nil
	}
	old := c.ids[c.current]
	c.current = (c.current + 1) % len(c.ids)
	next := c.ids[c.current]
	c.log.Info("cycling animation", "from", old, "to", next)

	half := anim.Params{Duration: c.fade / 2, Ease: easing.MustParse("inOutSine")}
	tl := e.Timeline(anim.TimelineParams{})
	tl.Add([]anim.Target{Master}, anim.Props{Brightness: 0}, half, "")
	tl.Call(func(*anim.Timer) {
		if n, err := e.Node(old); err == nil {
			n.Cancel()
		}
		c.show(e, next)
	}, "")
	tl.Add([]anim.Target{Master}, anim.Props{Brightness: 1}, half, "")
	return tl.Timer
}

// show restarts a node. Cancelling first puts its tweens back in front of
// any others on the same properties.
func (c *Controller) show(e *anim.Engine, id string) {
	n, err := e.Node(id)
	if err != nil {
		c.log.Warn("cannot show animation", "error", err)
		return
	}
	n.Cancel()
	n.Restart()
}

// Run cycles animations every interval until ctx ends. Cycling is suspended
// while a calibration runs, and resumes once it completes or is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var started chan *anim.Timer
	if c.calibration != nil {
		started = c.calibration.Started
	}
	var calibration *anim.Timer
	var calibrating <-chan struct{}
	resume := func(reason string) {
		calibration, calibrating = nil, nil
		c.log.Info("calibration finished", "reason", reason)
		c.engine.Do(func(e *anim.Engine) {
			if len(c.ids) > 0 {
				c.show(e, c.Current())
			}
		})
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if calibration == nil {
				c.Cycle()
				continue
			}
			var cancelled bool
			c.engine.Do(func(*anim.Engine) { cancelled = calibration.Cancelled() })
			if cancelled {
				resume("cancelled")
			}
		case node := <-started:
			c.log.Info("calibrating, cycling suspended")
			c.engine.Do(func(e *anim.Engine) {
				if n, err := e.Node(c.Current()); err == nil {
					n.Cancel()
				}
			})
			calibration, calibrating = node, node.Done()
		case <-calibrating:
			resume("completed")
		}
	}
}
