package stream

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/easing"
)

type multiTwinkleParams struct {
	Particles int           `mapstructure:"particles"`
	Palette   []string      `mapstructure:"palette"`
	Back      string        `mapstructure:"back"`
	Min       time.Duration `mapstructure:"min"`
	Max       time.Duration `mapstructure:"max"`
	Seed      int64         `mapstructure:"seed"`
}

// multiTwinkle scintillates particles in colours from a palette. Every
// particle pulses its brightness over its own random length.
func multiTwinkle(e *anim.Engine, s *Strip, p anim.Params, params map[string]any) (*anim.Timer, error) {
	mp := multiTwinkleParams{
		Particles: s.Len() / 4,
		Palette:   []string{"#ff1040", "#20ff60", "#2040ff", "#ffc020"},
		Back:      "#000000",
		Min:       400 * time.Millisecond,
		Max:       1600 * time.Millisecond,
		Seed:      1,
	}
	if err := decodeParams(params, &mp); err != nil {
		return nil, err
	}
	if len(mp.Palette) == 0 || mp.Max < mp.Min || mp.Min <= 0 {
		return nil, fmt.Errorf("%w: need a palette and 0 < min <= max", ErrBadParams)
	}

	rng := rand.New(rand.NewSource(mp.Seed))
	picked := rng.Perm(s.Len())[:min(max(mp.Particles, 0), s.Len())]
	particles := make([]anim.Target, len(picked))
	colours := make([]string, len(picked))
	pulses := make([]time.Duration, len(picked))
	for i, px := range picked {
		particles[i] = Pixel(px)
		colours[i] = mp.Palette[rng.Intn(len(mp.Palette))]
		pulses[i] = mp.Min + time.Duration(rng.Int63n(int64(mp.Max-mp.Min)+1))
	}

	p = looping(p, mp.Max)
	tl := e.Timeline(anim.TimelineParams{Params: anim.Params{ID: p.ID, Paused: p.Paused}})
	tl.Set(s.Pixels(), anim.Props{Color: mp.Back, Brightness: 0}, "0")
	tl.Set(particles, anim.Props{
		Color: anim.Func(func(_ anim.Target, i, _ int) any { return colours[i] }),
	}, "0")
	tl.Add(particles, anim.Props{
		Brightness: anim.Func(func(_ anim.Target, i, _ int) any {
			half := pulses[i] / 2
			return []anim.Keyframe{
				{From: 0, To: 1, Duration: half},
				{To: 0, Duration: pulses[i] - half},
			}
		}),
	}, anim.Params{Loop: p.Loop, LoopDelay: p.LoopDelay, Ease: easing.MustParse("inOutQuad")}, "0")
	return tl.Timer, nil
}
