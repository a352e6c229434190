package stream

import (
	"math/rand"
	"sort"
	"time"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/easing"
)

type twinkleParams struct {
	Particles int    `mapstructure:"particles"`
	Back      string `mapstructure:"back"`
	Fore      string `mapstructure:"fore"`
	Seed      int64  `mapstructure:"seed"`
}

// twinkle fades random particles between a back and a fore colour, each on
// its own phase, over a background of the back colour.
func twinkle(e *anim.Engine, s *Strip, p anim.Params, params map[string]any) (*anim.Timer, error) {
	tp := twinkleParams{
		Particles: s.Len() / 8,
		Back:      "#000005",
		Fore:      "#808080",
		Seed:      1,
	}
	if err := decodeParams(params, &tp); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(tp.Seed))
	picked := rng.Perm(s.Len())[:min(max(tp.Particles, 0), s.Len())]
	sort.Ints(picked)
	particles := make([]anim.Target, len(picked))
	for i, px := range picked {
		particles[i] = Pixel(px)
	}

	p = looping(p, 1500*time.Millisecond)
	delays := make([]time.Duration, len(particles))
	for i := range delays {
		delays[i] = time.Duration(rng.Int63n(int64(p.Duration)))
	}

	tl := e.Timeline(anim.TimelineParams{Params: anim.Params{ID: p.ID, Paused: p.Paused}})
	tl.Set(s.Pixels(), anim.Props{Color: tp.Back, Brightness: 1}, "0")
	tl.Add(particles, anim.Props{Color: []any{tp.Back, tp.Fore}}, anim.Params{
		Duration:  p.Duration,
		Loop:      p.Loop,
		Alternate: true,
		Ease:      easing.MustParse("inOutSine"),
		DelayFunc: func(_ anim.Target, i, _ int) time.Duration { return delays[i] },
	}, "0")
	return tl.Timer, nil
}
