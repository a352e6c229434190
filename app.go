package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/api"
	"github.com/matt-g-everett/ledmotion/config"
	"github.com/matt-g-everett/ledmotion/logging"
	"github.com/matt-g-everett/ledmotion/metrics"
	"github.com/matt-g-everett/ledmotion/scene"
	"github.com/matt-g-everett/ledmotion/sink"
	"github.com/matt-g-everett/ledmotion/stream"
)

type app struct {
	config      *config.Config
	log         *slog.Logger
	strip       *stream.Strip
	engine      *anim.Engine
	registry    *prometheus.Registry
	redis       *sink.Redis
	calibration *stream.Calibration
	nodes       []*anim.Timer
}

func newApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	return newAppFromPath(path)
}

func newAppFromPath(path string) (*app, error) {
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	level, _ := logging.ParseLevel(c.Log.Level)

	a := new(app)
	a.config = c
	a.log = logging.New(level)
	a.strip = stream.NewStrip(c.Strip.Pixels)
	a.registry = prometheus.NewRegistry()
	a.log.Info("config loaded", "path", path, "pixels", c.Strip.Pixels, "scene", c.Scene)
	return a, nil
}

// setupEngine creates the engine rendering into the strip, and into Redis
// when an address is configured, then builds the scene on it.
func (a *app) setupEngine(clock anim.Clock, observers ...anim.Observer) error {
	c := a.config
	defaults, err := c.EngineDefaults()
	if err != nil {
		return err
	}

	sinks := sink.Multi{a.strip}
	if c.Redis.Addr != "" {
		a.redis = sink.NewRedis(c.Redis.Addr, c.Redis.Password, c.Redis.DB,
			sink.WithPrefix(c.Redis.Prefix), sink.WithLogger(a.log.With("component", "redis")))
		sinks = append(sinks, a.redis)
	}
	m, err := metrics.NewObserver(a.registry)
	if err != nil {
		return err
	}

	opts := []anim.Option{
		anim.WithSink(sinks),
		anim.WithLogger(a.log.With("component", "engine")),
		anim.WithDefaults(defaults),
		anim.WithFPS(c.Engine.FPS),
		anim.WithSpeed(c.Engine.Speed),
		anim.WithPrecision(c.Engine.Precision),
		anim.WithObserver(sinks),
		anim.WithObserver(m),
	}
	if clock != nil {
		opts = append(opts, anim.WithClock(clock))
	}
	for _, o := range observers {
		opts = append(opts, anim.WithObserver(o))
	}
	a.engine = anim.NewEngine(opts...)

	f, err := scene.Load(c.Scene)
	if err != nil {
		return err
	}
	a.nodes, err = f.Build(a.engine, a.strip)
	if err != nil {
		return err
	}
	a.log.Info("scene built", "nodes", len(a.nodes))
	return nil
}

// cycleIDs lists the nodes the controller cycles through.
func (a *app) cycleIDs() []string {
	if len(a.config.Cycle.Nodes) > 0 {
		return a.config.Cycle.Nodes
	}
	var ids []string
	for _, n := range a.nodes {
		if n.ID() != "" {
			ids = append(ids, n.ID())
		}
	}
	return ids
}

func (a *app) handleOnConnect(mqtt.Client) {
	a.log.Info("connected", "broker", a.config.Mqtt.URL)
	if a.calibration == nil {
		return
	}
	if err := a.calibration.Subscribe(); err != nil {
		a.log.Error("calibration unavailable", "error", err)
	}
}

// serve runs the engine, the controller, the Redis sender and, when given,
// the API and extra senders until ctx ends or one of them fails.
func (a *app) serve(ctx context.Context, ctrl *stream.Controller, server *api.Api, senders ...func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runners := []func(context.Context) error{a.engine.Run, ctrl.Run}
	if a.redis != nil {
		runners = append(runners, a.redis.Run)
	}
	if server != nil {
		runners = append(runners, func(ctx context.Context) error { return server.Serve(ctx, a.config.API.Addr) })
	}
	runners = append(runners, senders...)

	errs := make(chan error, len(runners))
	for _, fn := range runners {
		go func(fn func(context.Context) error) { errs <- fn(ctx) }(fn)
	}

	var first error
	for range runners {
		err := <-errs
		cancel()
		if first == nil && err != nil && !errors.Is(err, context.Canceled) {
			first = err
		}
	}
	return first
}

func (a *app) close() {
	if a.redis == nil {
		return
	}
	if err := a.redis.Close(); err != nil {
		a.log.Warn("redis close failed", "error", err)
	}
}

func describe(t *anim.Timer) string {
	s := t.Status()
	d := fmt.Sprint(s.Duration)
	if t.IterationCount() == anim.Infinite {
		d = "infinite"
	}
	return fmt.Sprintf("%-20s %-10s %-10s paused=%v", s.ID, s.Kind, d, s.Paused)
}
