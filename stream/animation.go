package stream

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/matt-g-everett/ledmotion/anim"
)

// ErrUnknownPreset is returned when no preset is registered under a name.
var ErrUnknownPreset = errors.New("unknown preset")

// ErrBadParams is returned for preset settings that cannot produce an effect.
var ErrBadParams = errors.New("bad preset parameters")

// A PresetFunc builds an effect on a strip. p carries the node parameters
// (ID, pausing, looping) and params the effect's own settings.
type PresetFunc func(e *anim.Engine, s *Strip, p anim.Params, params map[string]any) (*anim.Timer, error)

var presets = map[string]PresetFunc{
	"twinkle":       twinkle,
	"multiTwinkle":  multiTwinkle,
	"gradientTrail": gradientTrail,
	"streak":        streak,
	"stripes":       stripes,
}

// Presets lists the registered preset names.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset builds the named effect on the strip. It must run inside
// Engine.Do, or before the engine is driven.
func (s *Strip) Preset(e *anim.Engine, name string, p anim.Params, params map[string]any) (*anim.Timer, error) {
	fn, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	t, err := fn(e, s, p, params)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", name, err)
	}
	return t, nil
}

func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}

// looping fills in the node parameters shared by the looping presets.
func looping(p anim.Params, duration time.Duration) anim.Params {
	if p.Duration == 0 {
		p.Duration = duration
	}
	if p.Loop == 0 {
		p.Loop = anim.Infinite
	}
	return p
}
