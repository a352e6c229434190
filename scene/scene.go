// Package scene builds animations and timelines from YAML scene files.
//
// A scene lists nodes. Each node is an animation (the default when targets
// are given), a timer, a timeline with children, or a named preset:
//
//	defaults:
//	  duration: 2s
//	  ease: inOutSine
//	nodes:
//	  - id: glow
//	    targets: 0-59
//	    props:
//	      color: ["#000000", "#ff8000"]
//	      brightness: {to: 1, duration: 500ms}
//	    params: {loop: -1, alternate: true, stagger: {step: 20ms, from: center}}
//	  - id: intro
//	    type: timeline
//	    children:
//	      - {label: start}
//	      - {targets: master, props: {brightness: 1}, at: start}
//	      - {type: set, targets: "0-9", props: {color: white}, at: "<<+=250ms"}
//	  - id: sparkle
//	    type: preset
//	    preset: twinkle
//	    settings: {particles: 40}
package scene

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/easing"
	"github.com/matt-g-everett/ledmotion/util"
	"github.com/matt-g-everett/ledmotion/value"
)

var (
	// ErrUnknownTarget is returned when a target selector cannot be resolved.
	ErrUnknownTarget = errors.New("unknown target")
	// ErrInvalid is returned for scenes that cannot be built.
	ErrInvalid = errors.New("invalid scene")
)

// Node types.
const (
	TypeAnimation = "animation"
	TypeTimer     = "timer"
	TypeTimeline  = "timeline"
	TypeSet       = "set"
	TypeLabel     = "label"
	TypePreset    = "preset"
)

// A Resolver turns target selectors into engine targets.
type Resolver interface {
	Resolve(spec string) ([]anim.Target, error)
}

// A Presetter builds named effects. Resolvers that also implement it can
// build preset nodes.
type Presetter interface {
	Preset(e *anim.Engine, name string, p anim.Params, settings map[string]any) (*anim.Timer, error)
}

// File is a decoded scene.
type File struct {
	Defaults Defaults `mapstructure:"defaults"`
	Nodes    []Node   `mapstructure:"nodes"`
}

// Defaults fill in the params a node leaves out.
type Defaults struct {
	Duration    time.Duration `mapstructure:"duration"`
	Delay       time.Duration `mapstructure:"delay"`
	LoopDelay   time.Duration `mapstructure:"loopDelay"`
	Loop        *int          `mapstructure:"loop"`
	Alternate   bool          `mapstructure:"alternate"`
	Reversed    bool          `mapstructure:"reversed"`
	Ease        string        `mapstructure:"ease"`
	Composition string        `mapstructure:"composition"`
	Round       *int          `mapstructure:"round"`
}

// Params mirror anim.Params.
type Params struct {
	Defaults     `mapstructure:",squash"`
	Paused       bool     `mapstructure:"paused"`
	PlaybackEase string   `mapstructure:"playbackEase"`
	Speed        float64  `mapstructure:"speed"`
	FPS          float64  `mapstructure:"fps"`
	Stagger      *Stagger `mapstructure:"stagger"`
}

// Stagger spreads target delays; see anim.Stagger.
type Stagger struct {
	Step     time.Duration `mapstructure:"step"`
	Start    time.Duration `mapstructure:"start"`
	From     string        `mapstructure:"from"`
	Reversed bool          `mapstructure:"reversed"`
	Ease     string        `mapstructure:"ease"`
}

// Node is a scene node or a timeline child.
type Node struct {
	ID       string         `mapstructure:"id"`
	Type     string         `mapstructure:"type"`
	Targets  string         `mapstructure:"targets"`
	Props    map[string]any `mapstructure:"props"`
	Params   Params         `mapstructure:"params"`
	Defaults Defaults       `mapstructure:"defaults"`
	Children []Node         `mapstructure:"children"`
	Label    string         `mapstructure:"label"`
	At       string         `mapstructure:"at"`
	Preset   string         `mapstructure:"preset"`
	Settings map[string]any `mapstructure:"settings"`
}

func (n Node) kind() string {
	switch {
	case n.Type != "":
		return n.Type
	case n.Label != "":
		return TypeLabel
	case n.Preset != "":
		return TypePreset
	case len(n.Children) > 0:
		return TypeTimeline
	case n.Targets != "":
		return TypeAnimation
	}
	return TypeTimer
}

// Load reads and decodes a scene file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a scene from YAML.
func Parse(data []byte) (*File, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	f := new(File)
	if err := decode(raw, f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return f, nil
}

func decode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       durationHook,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

var durationType = reflect.TypeOf(time.Duration(0))

// durationHook reads durations as Go duration strings, with bare numbers in
// milliseconds.
func durationHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String:
		s := strings.TrimSpace(data.(string))
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(ms * float64(time.Millisecond)), nil
		}
		return time.ParseDuration(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Millisecond, nil
	case reflect.Float32, reflect.Float64:
		return time.Duration(reflect.ValueOf(data).Float() * float64(time.Millisecond)), nil
	}
	return data, nil
}

// Build creates every node of f on e, in file order, and returns the top
// level nodes. It locks the engine, so it must not run inside Engine.Do.
func (f *File) Build(e *anim.Engine, r Resolver) ([]*anim.Timer, error) {
	var nodes []*anim.Timer
	var err error
	e.Do(func(e *anim.Engine) {
		nodes, err = f.build(e, r)
	})
	return nodes, err
}

func (f *File) build(e *anim.Engine, r Resolver) ([]*anim.Timer, error) {
	b := &builder{engine: e, resolver: r}
	seen := make(map[string]bool)
	nodes := make([]*anim.Timer, 0, len(f.Nodes))
	for i, n := range f.Nodes {
		name := n.ID
		if name == "" {
			name = "#" + strconv.Itoa(i)
		} else if seen[n.ID] {
			return nil, fmt.Errorf("%w: duplicate node id %q", ErrInvalid, n.ID)
		}
		seen[n.ID] = true

		p, err := b.params(n.Params, f.Defaults)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", name, err)
		}
		p.ID = n.ID
		t, err := b.node(n, p)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", name, err)
		}
		nodes = append(nodes, t)
	}
	return nodes, nil
}

type builder struct {
	engine   *anim.Engine
	resolver Resolver
}

func (b *builder) node(n Node, p anim.Params) (*anim.Timer, error) {
	switch n.kind() {
	case TypeAnimation:
		targets, props, err := b.animation(n)
		if err != nil {
			return nil, err
		}
		return b.engine.Animate(targets, props, p).Timer, nil
	case TypeTimer:
		return b.engine.Timer(p), nil
	case TypeTimeline:
		d, err := b.defaults(n.Defaults)
		if err != nil {
			return nil, err
		}
		tl := b.engine.Timeline(anim.TimelineParams{Params: p, Defaults: d})
		if err := b.children(tl, n.Children); err != nil {
			return nil, err
		}
		return tl.Timer, nil
	case TypePreset:
		pr, ok := b.resolver.(Presetter)
		if !ok {
			return nil, fmt.Errorf("%w: presets are not available", ErrInvalid)
		}
		return pr.Preset(b.engine, n.Preset, p, n.Settings)
	}
	return nil, fmt.Errorf("%w: %q cannot be a top level node", ErrInvalid, n.kind())
}

func (b *builder) children(tl *anim.Timeline, children []Node) error {
	for i, c := range children {
		at := anim.Position(c.At)
		var err error
		switch c.kind() {
		case TypeLabel:
			tl.Label(c.Label, at)
		case TypeSet:
			var targets []anim.Target
			var props anim.Props
			if targets, props, err = b.animation(c); err == nil {
				tl.Set(targets, props, at)
			}
		case TypeAnimation:
			var p anim.Params
			var targets []anim.Target
			var props anim.Props
			if p, err = b.params(c.Params, Defaults{}); err == nil {
				if targets, props, err = b.animation(c); err == nil {
					tl.Add(targets, props, p, at)
				}
			}
		case TypeTimer:
			var p anim.Params
			if p, err = b.params(c.Params, Defaults{}); err == nil {
				tl.AddTimer(p, at)
			}
		case TypeTimeline:
			var p anim.Params
			var d anim.Defaults
			if p, err = b.params(c.Params, Defaults{}); err == nil {
				if d, err = b.defaults(c.Defaults); err == nil {
					err = b.children(tl.AddTimeline(anim.TimelineParams{Params: p, Defaults: d}, at), c.Children)
				}
			}
		default:
			err = fmt.Errorf("%w: %q cannot be a timeline child", ErrInvalid, c.kind())
		}
		if err != nil {
			return fmt.Errorf("child %d: %w", i, err)
		}
	}
	return nil
}

func (b *builder) animation(n Node) ([]anim.Target, anim.Props, error) {
	if b.resolver == nil {
		return nil, nil, fmt.Errorf("%w: no resolver for %q", ErrUnknownTarget, n.Targets)
	}
	targets, err := b.resolver.Resolve(n.Targets)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUnknownTarget, err)
	}
	props := make(anim.Props, len(n.Props))
	for name, raw := range n.Props {
		v, err := propValue(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("prop %s: %w", name, err)
		}
		props[name] = v
	}
	return targets, props, nil
}

type keyframe struct {
	From        any           `mapstructure:"from"`
	To          any           `mapstructure:"to"`
	Duration    time.Duration `mapstructure:"duration"`
	Delay       time.Duration `mapstructure:"delay"`
	Ease        string        `mapstructure:"ease"`
	Composition string        `mapstructure:"composition"`
}

// propValue converts decoded YAML into a prop value: scalars stay as they
// are, lists become slices and maps become keyframes.
func propValue(raw any) (any, error) {
	switch v := raw.(type) {
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			conv, err := propValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = conv
		}
		return out, nil
	case map[any]any, map[string]any:
		var kf keyframe
		if err := decode(v, &kf); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		out := anim.Keyframe{From: kf.From, To: kf.To, Duration: kf.Duration, Delay: kf.Delay}
		if kf.Ease != "" {
			ease, err := easing.Parse(kf.Ease)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
			}
			out.Ease = ease
		}
		if kf.Composition != "" {
			c, err := anim.ParseComposition(kf.Composition)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
			}
			out.Composition = c
		}
		return out, nil
	}
	return raw, nil
}

func (b *builder) defaults(d Defaults) (anim.Defaults, error) {
	p, err := b.params(Params{Defaults: d}, Defaults{})
	if err != nil {
		return anim.Defaults{}, err
	}
	return anim.Defaults{
		Duration:    p.Duration,
		Delay:       p.Delay,
		LoopDelay:   p.LoopDelay,
		Loop:        p.Loop,
		Alternate:   p.Alternate,
		Reversed:    p.Reversed,
		Ease:        p.Ease,
		Composition: p.Composition,
		Modifier:    p.Modifier,
	}, nil
}

// params converts node params, falling back on the scene defaults.
func (b *builder) params(sp Params, d Defaults) (anim.Params, error) {
	p := anim.Params{
		Duration:  orDuration(sp.Duration, d.Duration),
		Delay:     orDuration(sp.Delay, d.Delay),
		LoopDelay: orDuration(sp.LoopDelay, d.LoopDelay),
		Alternate: sp.Alternate || d.Alternate,
		Reversed:  sp.Reversed || d.Reversed,
		Paused:    sp.Paused,
		Speed:     sp.Speed,
		FPS:       sp.FPS,
	}
	loop := sp.Loop
	if loop == nil {
		loop = d.Loop
	}
	if loop != nil {
		switch {
		case *loop < anim.Infinite:
			return p, fmt.Errorf("%w: loop must be -1 or more", ErrInvalid)
		case *loop == 0:
			p.Loop = anim.NoLoop
		default:
			p.Loop = *loop
		}
	}

	var err error
	if p.Ease, err = parseEase(or(sp.Ease, d.Ease)); err != nil {
		return p, err
	}
	if p.PlaybackEase, err = parseEase(sp.PlaybackEase); err != nil {
		return p, err
	}
	if c := or(sp.Composition, d.Composition); c != "" {
		if p.Composition, err = anim.ParseComposition(c); err != nil {
			return p, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	round := sp.Round
	if round == nil {
		round = d.Round
	}
	if round != nil {
		decimals := *round
		p.Modifier = value.Modifier(func(v float64) float64 { return util.Round(v, decimals) })
	}
	if sp.Stagger != nil {
		if p.DelayFunc, err = stagger(*sp.Stagger); err != nil {
			return p, err
		}
	}
	return p, nil
}

func stagger(s Stagger) (anim.DelayFunc, error) {
	sp := anim.StaggerParams{Start: s.Start, Reversed: s.Reversed}
	switch strings.ToLower(s.From) {
	case "", "first":
		sp.From = anim.FromFirst
	case "last":
		sp.From = anim.FromLast
	case "center", "centre":
		sp.From = anim.FromCenter
	default:
		i, err := strconv.Atoi(s.From)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("%w: stagger from %q", ErrInvalid, s.From)
		}
		sp.From = anim.StaggerFrom(i)
	}
	var err error
	if sp.Ease, err = parseEase(s.Ease); err != nil {
		return nil, err
	}
	return anim.Stagger(s.Step, sp), nil
}

func parseEase(s string) (easing.Easing, error) {
	if s == "" {
		return nil, nil
	}
	e, err := easing.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return e, nil
}

func orDuration(v, def time.Duration) time.Duration {
	if v != 0 {
		return v
	}
	return def
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
