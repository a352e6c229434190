// Package config reads the ledmotion YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/easing"
	"github.com/matt-g-everett/ledmotion/logging"
)

// ErrInvalid is returned for configuration values that cannot be used.
var ErrInvalid = errors.New("invalid config")

// maxPixels is the most a frame header can describe.
const maxPixels = 1<<16 - 1

type Config struct {
	Mqtt struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		ClientID string `yaml:"clientID"`
		Topics   struct {
			Stream          string `yaml:"stream"`
			CalibrateClient string `yaml:"calibrateClient"`
		} `yaml:"topics"`
	} `yaml:"mqtt"`

	Strip struct {
		Pixels int `yaml:"pixels"`
	} `yaml:"strip"`

	Engine struct {
		FPS       float64 `yaml:"fps"`
		Speed     float64 `yaml:"speed"`
		Precision int     `yaml:"precision"`
	} `yaml:"engine"`

	Defaults Defaults `yaml:"defaults"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	API struct {
		Addr string `yaml:"addr"`
	} `yaml:"api"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	// Scene is the path of the scene file to play.
	Scene string `yaml:"scene"`

	// Cycle configures the controller. With no nodes listed every scene
	// node with an ID takes part.
	Cycle struct {
		Interval time.Duration `yaml:"interval"`
		Fade     time.Duration `yaml:"fade"`
		Nodes    []string      `yaml:"nodes"`
	} `yaml:"cycle"`
}

// Defaults are the engine-wide animation defaults.
type Defaults struct {
	Duration    time.Duration `yaml:"duration"`
	Delay       time.Duration `yaml:"delay"`
	LoopDelay   time.Duration `yaml:"loopDelay"`
	Loop        int           `yaml:"loop"`
	Alternate   bool          `yaml:"alternate"`
	Reversed    bool          `yaml:"reversed"`
	Ease        string        `yaml:"ease"`
	Composition string        `yaml:"composition"`
}

// Default returns the configuration used for anything a file leaves out.
func Default() *Config {
	c := new(Config)
	c.Mqtt.URL = "tcp://localhost:1883"
	c.Mqtt.ClientID = "ledmotion"
	c.Mqtt.Topics.Stream = "home/xmastree/stream"
	c.Mqtt.Topics.CalibrateClient = "home/xmastree/calibrate/client"
	c.Strip.Pixels = 500
	c.Engine.FPS = 120
	c.Engine.Speed = 1
	c.Engine.Precision = 4
	c.Defaults.Duration = time.Second
	c.Defaults.Ease = "outQuad"
	c.Defaults.Composition = "replace"
	c.Redis.Prefix = "ledmotion:"
	c.API.Addr = ":3000"
	c.Log.Level = "info"
	c.Scene = "scene.yaml"
	c.Cycle.Interval = 2 * time.Minute
	c.Cycle.Fade = 5 * time.Second
	return c
}

// Load reads a config file over the defaults and validates it.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	defer f.Close()

	c := Default()
	decoder := yaml.NewDecoder(f)
	decoder.SetStrict(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every value the engine and transports depend on.
func (c *Config) Validate() error {
	var errs []error
	if c.Strip.Pixels < 1 || c.Strip.Pixels > maxPixels {
		errs = append(errs, fmt.Errorf("strip.pixels must be between 1 and %d", maxPixels))
	}
	if c.Engine.FPS <= 0 {
		errs = append(errs, errors.New("engine.fps must be positive"))
	}
	if c.Engine.Speed <= 0 {
		errs = append(errs, errors.New("engine.speed must be positive"))
	}
	if c.Engine.Precision < -1 {
		errs = append(errs, errors.New("engine.precision must be -1 or more"))
	}
	if c.Defaults.Duration < 0 || c.Defaults.Delay < 0 || c.Defaults.LoopDelay < 0 {
		errs = append(errs, errors.New("defaults durations cannot be negative"))
	}
	if c.Defaults.Loop < anim.Infinite {
		errs = append(errs, errors.New("defaults.loop must be -1 or more"))
	}
	if _, err := c.EngineDefaults(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Cycle.Interval <= 0 {
		errs = append(errs, errors.New("cycle.interval must be positive"))
	}
	if c.Cycle.Fade < 0 || c.Cycle.Fade >= c.Cycle.Interval {
		errs = append(errs, errors.New("cycle.fade must be shorter than cycle.interval"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// EngineDefaults converts the defaults section to engine Defaults.
func (c *Config) EngineDefaults() (anim.Defaults, error) {
	d := c.Defaults
	out := anim.Defaults{
		Duration:  d.Duration,
		Delay:     d.Delay,
		LoopDelay: d.LoopDelay,
		Loop:      d.Loop,
		Alternate: d.Alternate,
		Reversed:  d.Reversed,
	}
	if d.Ease != "" {
		e, err := easing.Parse(d.Ease)
		if err != nil {
			return anim.Defaults{}, fmt.Errorf("defaults.ease: %w", err)
		}
		out.Ease = e
	}
	comp, err := anim.ParseComposition(d.Composition)
	if err != nil {
		return anim.Defaults{}, fmt.Errorf("defaults.composition: %w", err)
	}
	out.Composition = comp
	return out, nil
}
